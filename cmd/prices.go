package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var pricesCmd = &cobra.Command{
	Use:   "prices [product...]",
	Short: "Show the latest price per kilogram of products",
	Long: `Show the latest parseable price of the given products, or of every
product in the price table. A product without any parseable price shows "-".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		return a.formatter.WritePrices(os.Stdout, a.evaluator.Prices(args...))
	},
}

func init() {
	rootCmd.AddCommand(pricesCmd)
}
