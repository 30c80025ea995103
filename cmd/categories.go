package cmd

import (
	"os"

	"github.com/ginjaninja78/mercado/internal/report"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the selectable categories of the requirements table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.close()

		report.WriteCategories(os.Stdout, a.evaluator.Categories())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
