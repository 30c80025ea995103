// =============================================================================
// mercado - Plan Command
// =============================================================================
//
// This file defines the 'plan' command, the main command of mercado. It runs
// one full evaluation of a session.
//
// COMMAND USAGE:
//   mercado plan [category...] [flags]
//
// FLAGS:
//   -c, --category : Category to plan (repeatable, adds to the arguments)
//   --all          : Plan every category of the requirements table
//   --clear        : Plan an empty selection (clears the checklist)
//   --detailed     : List every costed line
//   --export       : Also export the evaluation (xml or xlsx)
//   --issues       : Print the input table issues
//   --issues-log   : Write the input table issues to a file in export_dir
//
// Without categories the session's last selection is planned again.
//
// PROCESSING PIPELINE:
//   1. Load configuration, tables and the session
//   2. Evaluate: aggregate, reconcile checklist, resolve prices, cost
//   3. Save the session
//   4. Print the report and export it if requested
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ginjaninja78/mercado/internal/report"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/ginjaninja78/mercado/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	planCategories []string
	planAll        bool
	planClear      bool
	planDetailed   bool
	planExport     string
	planIssues     bool
	planIssuesLog  bool
)

// =============================================================================
// PLAN COMMAND DEFINITION
// =============================================================================

var planCmd = &cobra.Command{
	Use:   "plan [category...]",
	Short: "Build the shopping list, prices and costs of the selected categories",
	Long: `The plan command aggregates the requirement lines of the selected
categories (plus the session's manual entries) into a shopping list, prices
every product at its latest known price per kilogram, and totals the cost of
each category.

The session checklist is reconciled with the new list: items still on the
list keep their bought state, new items start unbought and items no longer
on the list are forgotten. The selection is saved with the session, so
'mercado plan' without categories re-plans it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd.Context(), append(args, planCategories...))
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringSliceVarP(&planCategories, "category", "c", nil, "Category to plan (repeatable)")
	planCmd.Flags().BoolVar(&planAll, "all", false, "Plan every category")
	planCmd.Flags().BoolVar(&planClear, "clear", false, "Plan an empty selection")
	planCmd.Flags().BoolVar(&planDetailed, "detailed", false, "List every costed line")
	planCmd.Flags().StringVar(&planExport, "export", "", "Export the evaluation: xml or xlsx")
	planCmd.Flags().BoolVar(&planIssues, "issues", false, "Print the input table issues")
	planCmd.Flags().BoolVar(&planIssuesLog, "issues-log", false, "Write the input table issues to a file in export_dir")
}

// =============================================================================
// PLAN EXECUTION
// =============================================================================

func runPlan(ctx context.Context, categories []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.session(ctx)
	if err != nil {
		return err
	}

	var selection types.Selection
	switch {
	case planClear:
		selection = types.Selection{}
	case planAll:
		selection = a.evaluator.Categories()
	case len(categories) > 0:
		selection = categories
	default:
		selection = session.Selection
		if len(selection) > 0 {
			utils.Log.Debugf("Re-planning the last selection of session %s", session.Name)
		}
	}

	ev, err := a.evaluator.Evaluate(session, selection)
	if err != nil {
		return err
	}
	if err := a.db.SaveSession(ctx, session); err != nil {
		return err
	}

	if err := a.formatter.Write(os.Stdout, ev, planDetailed); err != nil {
		return err
	}

	if planIssues {
		fmt.Println()
		if err := a.printIssues(); err != nil {
			return err
		}
	}
	if planIssuesLog {
		path, err := a.writeIssueLog()
		if err != nil {
			return err
		}
		if path != "" {
			utils.Log.Infof("Issue log written to %s", path)
		}
	}

	if planExport != "" {
		path, err := report.Export(ev, planExport, a.cfg.ExportDir)
		if err != nil {
			return err
		}
		utils.Log.Infof("Exported %s", path)
	}
	return nil
}
