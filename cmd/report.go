package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-agent/internal/faults"
	"github.com/spigell/interview-agent/internal/interview"
	logging "github.com/spigell/interview-agent/internal/logger"
	"github.com/spigell/interview-agent/internal/report"
	"github.com/spigell/interview-agent/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Print the reports of a stored interview",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		showReport(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Bool("list", false, "list stored sessions")
	reportCmd.Flags().String("only", "both", "which report to print: candidate, hr or both")
}

func showReport(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logging.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	sessions, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the session store", zap.Error(err))
	}
	defer sessions.Close()

	if list, _ := cmd.Flags().GetBool("list"); list {
		ids, err := sessions.List(ctx)
		if err != nil {
			logger.Fatal("listing sessions", zap.Error(err))
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return
	}

	if len(args) == 0 {
		logger.Fatal("session id is required")
	}

	only, err := reportAudience(cmd.Flag("only").Value.String())
	if err != nil {
		logger.Fatal("parsing --only", zap.Error(err))
	}

	r, err := loadReport(ctx, sessions, args[0], config)
	if err != nil {
		logger.Fatal("building the report", zap.Error(err), zap.String(logging.FieldSession, args[0]))
	}

	writeReport(cmd, r, only)
}

// loadReport renders a stored session. Records saved before the summary was
// attached get it recomputed with the configured rubric.
func loadReport(ctx context.Context, sessions store.Store, id string, config *Config) (*report.Report, error) {
	rec, err := sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := rec.Summary
	if summary == nil {
		if summary, err = interview.Summarize(rec.State, config.Rubric); err != nil {
			return nil, err
		}
	}

	return report.Render(rec.State, summary)
}

func reportAudience(only string) (string, error) {
	only = strings.ToLower(strings.TrimSpace(only))
	switch only {
	case "candidate", "hr", "both":
		return only, nil
	case "":
		return "both", nil
	}
	return "", fmt.Errorf("%w: --only must be candidate, hr or both, got %q", faults.ErrInvalidInput, only)
}

func writeReport(cmd *cobra.Command, r *report.Report, only string) {
	out := cmd.OutOrStdout()

	if only != "hr" {
		fmt.Fprintf(out, "\n===== Feedback for the candidate =====\n%s\n", r.CandidateFeedback)
	}
	if only != "candidate" {
		fmt.Fprintf(out, "\n===== HR report (%s) =====\n%s\n", report.AuditRef(r.SessionID), r.HRReport)
	}
}
