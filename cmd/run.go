package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobscout/internal/config"
	"jobscout/internal/core/notify"
	"jobscout/internal/core/run"
	"jobscout/internal/core/submission"
	"jobscout/internal/core/template"
	"jobscout/internal/utils/parser"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and print the summary",
	Long:  "Runs the pipeline synchronously for a stored submission (--submission) or for criteria given as flags, then prints the run summary as JSON.",
	RunE:  runRun,
}

var (
	runSubmissionID string
	runEmail        string
	runCompanies    string
	runRoles        string
	runSeniority    string
	runCities       string
	runVisa         bool
	runTemplate     string
	runNotify       bool
	runOutputFile   string
)

func init() {
	runCmd.Flags().StringVarP(&runSubmissionID, "submission", "s", "", "Stored submission ID (requires DATABASE_URL)")
	runCmd.Flags().StringVar(&runEmail, "email", "", "Recipient email")
	runCmd.Flags().StringVarP(&runCompanies, "companies", "c", "", "Comma-separated seed companies")
	runCmd.Flags().StringVarP(&runRoles, "roles", "r", "", "Comma-separated target roles")
	runCmd.Flags().StringVar(&runSeniority, "seniority", "", "Seniority level (advisory)")
	runCmd.Flags().StringVar(&runCities, "cities", "", "Comma-separated target cities")
	runCmd.Flags().BoolVar(&runVisa, "visa", false, "Visa sponsorship required")
	runCmd.Flags().StringVarP(&runTemplate, "template", "t", "", "Template CV path relative to DATA_DIR, or supabase://<object>")
	runCmd.Flags().BoolVar(&runNotify, "notify", false, "Send the digest when the run finishes")
	runCmd.Flags().StringVarP(&runOutputFile, "out", "o", "", "Write the summary JSON to this file instead of stdout")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	ctx := cmd.Context()

	deps := run.Deps{Templates: template.NewLoader(cfg)}
	if runNotify {
		deps.Notifier = notify.NewDispatcher(cfg)
	}

	var sub submission.Submission
	if runSubmissionID != "" {
		store, err := submission.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		if sub, err = store.Get(ctx, runSubmissionID); err != nil {
			return err
		}
		deps.Submissions = store
	} else {
		sub = submission.Submission{
			Email:        strings.TrimSpace(runEmail),
			Companies:    parser.ParseCommaList(runCompanies),
			Roles:        parser.ParseCommaList(runRoles),
			Seniority:    runSeniority,
			Cities:       parser.ParseCommaList(runCities),
			VisaRequired: runVisa,
			TemplatePath: runTemplate,
			CreatedAt:    time.Now().UTC(),
		}
	}

	orchestrator, err := newOrchestrator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	deps.Pipeline = orchestrator

	summary, err := run.NewService(deps).Execute(ctx, "", sub)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if runOutputFile == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(runOutputFile, out, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
