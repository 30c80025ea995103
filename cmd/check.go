// =============================================================================
// mercado - Checklist Commands
// =============================================================================
//
// COMMAND USAGE:
//   mercado list                 Show the checklist of the session
//   mercado check <item>...      Mark items as bought
//   mercado check --uncheck <item>...
//   mercado check --toggle <item>...
//
// An item is referenced by its list position (as printed by 'list' or
// 'plan'), its checklist key, or a product name matching a single item.
//
// Both commands first re-evaluate the session's last selection so the
// checklist reflects the current tables.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/internal/report"
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	checkUncheck bool
	checkToggle  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the checklist of the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, session, ev, err := reconcileSession(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.db.SaveSession(cmd.Context(), session); err != nil {
			return err
		}
		if len(ev.Checklist) == 0 {
			fmt.Println("The checklist is empty. Plan some categories first.")
			return nil
		}
		return report.WriteChecklist(os.Stdout, ev.Checklist)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <item>...",
	Short: "Mark checklist items as bought (or not)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkUncheck && checkToggle {
			return fmt.Errorf("--uncheck and --toggle are mutually exclusive")
		}

		ctx := cmd.Context()
		a, session, ev, err := reconcileSession(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		for _, ref := range args {
			item, err := ev.Find(ref)
			if err != nil {
				return err
			}

			state := !checkUncheck
			if checkToggle {
				if state, err = session.Checklist.Toggle(item.Key); err != nil {
					return err
				}
			} else if err := session.Checklist.Set(item.Key, state); err != nil {
				return err
			}
			utils.Log.Debugf("%s -> %t", item.Key, state)
		}

		if err := a.db.SaveSession(ctx, session); err != nil {
			return err
		}

		// Refresh the printed state from the store.
		for i := range ev.Checklist {
			ev.Checklist[i].Checked, _ = session.Checklist.Checked(ev.Checklist[i].Key)
		}
		return report.WriteChecklist(os.Stdout, ev.Checklist)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkUncheck, "uncheck", false, "Mark the items as not bought")
	checkCmd.Flags().BoolVar(&checkToggle, "toggle", false, "Flip the bought state of the items")
}

// reconcileSession loads the tables and the session and evaluates the
// session's last selection. The caller owns the returned app.
func reconcileSession(ctx context.Context) (*app, *planner.Session, *planner.Evaluation, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, true)
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := a.session(ctx)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}

	ev, err := a.evaluator.Evaluate(session, session.Selection)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}
	return a, session, ev, nil
}
