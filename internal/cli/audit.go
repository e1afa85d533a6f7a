package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ads97/Veritas/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded verification runs",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the latest recorded runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withAuditStore(cmd.Context(), func(ctx context.Context, store *audit.SQLiteStore) error {
			return printRecent(ctx, cmd.OutOrStdout(), store, limit)
		})
	},
}

var auditShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one recorded run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuditStore(cmd.Context(), func(ctx context.Context, store *audit.SQLiteStore) error {
			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), run)
		})
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecentCmd)
	auditCmd.AddCommand(auditShowCmd)

	auditRecentCmd.Flags().Int("limit", 20, "number of runs to list")
}

func withAuditStore(ctx context.Context, fn func(context.Context, *audit.SQLiteStore) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	store, err := audit.Open(ctx, cfg.Audit.DSN, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(ctx, store)
}

func printRecent(ctx context.Context, w io.Writer, store *audit.SQLiteStore, limit int) error {
	ids, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		_, err := fmt.Fprintln(w, "No recorded runs.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTARTED\tNAME\tRESULT")
	for _, id := range ids {
		run, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", run.ID, run.StartedAt.Local().Format(time.DateTime), run.Subject.Name, runResult(run))
	}
	return tw.Flush()
}

func runResult(run *audit.Run) string {
	switch {
	case run.Verdict != nil:
		return fmt.Sprintf("%.2f %s", run.Verdict.ScamLikelihood, run.Verdict.RiskLevel())
	case run.Err != "":
		return "failed: " + strings.TrimSpace(run.Err)
	default:
		return "-"
	}
}
