package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ginjaninja78/mercado/internal/report"
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, create and delete planning sessions",
	Long: `A session holds a category selection, its checklist and its manual
entries. Commands work on the session named with --session, "default" when
none is given; it is created on first use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		sessions, err := a.db.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		return report.WriteSessions(os.Stdout, sessions, time.Now())
	},
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		s, err := a.db.CreateSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", s.Name, s.ID)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name|id>",
	Short: "Delete a session with its checklist and manual entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.db.DeleteSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		utils.Log.Infof("Deleted session %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsCreateCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
