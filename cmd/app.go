package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/mercado/internal/config"
	"github.com/ginjaninja78/mercado/internal/ingest"
	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/internal/report"
	"github.com/ginjaninja78/mercado/internal/source"
	"github.com/ginjaninja78/mercado/internal/storage"
	"github.com/ginjaninja78/mercado/internal/validation"
	"github.com/ginjaninja78/mercado/pkg/utils"
)

// app bundles what a command needs: the configuration, the session
// database and, when loaded, the input dataset.
type app struct {
	cfg       *config.MainConfig
	db        *storage.DB
	fetcher   *source.Fetcher
	dataset   *ingest.Dataset
	evaluator *planner.Evaluator
	formatter *report.Formatter
}

// openApp loads the configuration and opens the session database. With
// withData set, the three tables are loaded and ingested too.
func openApp(ctx context.Context, withData bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.StateDB)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		db:        db,
		fetcher:   source.New(source.OptionsFromConfig(cfg, utils.Log)),
		formatter: report.NewFormatter(cfg.Locale, cfg.Currency),
	}
	if withData {
		if err := a.loadData(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) loadData(ctx context.Context) error {
	tables, err := a.fetcher.LoadTables(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}

	ds, err := ingest.Load(tables, a.cfg)
	if err != nil {
		return err
	}
	if n := ds.Issues.Len(); n > 0 {
		utils.Log.Warnf("Found %d issue(s) in the input tables (%d errors), run with --issues to see them", n, ds.Issues.ErrorCount)
	}
	utils.Log.Debugf("Loaded %d requirement lines, %d price series, %d equivalences",
		len(ds.Requirements), len(ds.Prices), len(ds.Equivalences))

	a.dataset = ds
	a.evaluator = planner.NewEvaluator(ds, a.cfg.KeyPolicy(), utils.Log)
	return nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		utils.Log.Warnf("Failed to close the session database: %v", err)
	}
}

// session loads or creates the session selected with --session.
func (a *app) session(ctx context.Context) (*planner.Session, error) {
	s, created, err := a.db.LoadOrCreate(ctx, sessionRef)
	if err != nil {
		return nil, err
	}
	if created {
		utils.Log.Infof("Created session %s", s.Name)
	}
	return s, nil
}

// printIssues writes the input issues to stdout.
func (a *app) printIssues() error {
	if a.dataset == nil {
		return nil
	}
	return report.WriteIssues(os.Stdout, a.dataset.Issues.Issues)
}

// writeIssueLog writes the input issues to a log file in the export
// directory and returns its path.
func (a *app) writeIssueLog() (string, error) {
	if a.dataset == nil {
		return "", nil
	}
	return utils.WriteIssueLog(issueEntries(a.dataset.Issues.Issues), a.cfg.ExportDir)
}

func issueEntries(issues []validation.Issue) []utils.IssueLogEntry {
	entries := make([]utils.IssueLogEntry, 0, len(issues))
	for _, issue := range issues {
		entries = append(entries, utils.IssueLogEntry{
			Severity: strings.ToUpper(issue.Severity),
			Table:    issue.Table,
			Row:      issue.Row,
			Column:   issue.Column,
			Value:    issue.Value,
			Message:  issue.Message,
		})
	}
	return entries
}
