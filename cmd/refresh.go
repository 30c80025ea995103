package cmd

import (
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Drop cached downloads and fetch the tables again",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.fetcher.Invalidate()
		if err != nil {
			return err
		}
		utils.Log.Infof("Removed %d cached download(s)", n)

		if err := a.loadData(cmd.Context()); err != nil {
			return err
		}
		utils.Log.Infof("Loaded %d requirement lines, %d price series, %d equivalences",
			len(a.dataset.Requirements), len(a.dataset.Prices), len(a.dataset.Equivalences))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
