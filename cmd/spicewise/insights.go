package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spicewise/internal/cli"
	"github.com/Veraticus/spicewise/internal/model"
	"github.com/Veraticus/spicewise/internal/service"
)

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Summarize spending for a period",
		Long: `Summarize the saved transactions in a date range. The latest summary for each
period label is cached; --refresh regenerates it.

Examples:
  spicewise insights --period "January 2025" --from 2025-01-01 --to 2025-01-31
  spicewise insights --period "January 2025" --refresh`,
		Args: cobra.NoArgs,
		RunE: runInsights,
	}

	cmd.Flags().String("period", "", "Label for the period (default derived from the dates)")
	cmd.Flags().String("from", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().Bool("refresh", false, "Regenerate the insight even when one is cached")

	return cmd
}

func runInsights(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	period, _ := cmd.Flags().GetString("period")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	refresh, _ := cmd.Flags().GetBool("refresh")

	filter, err := dateRange(from, to)
	if err != nil {
		return err
	}
	if period == "" {
		period = periodLabel(filter)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if !refresh {
		cached, err := a.gateway.Cached(ctx, period)
		if err != nil {
			slog.Warn("failed to read cached insight", "period", period, "error", err)
		}
		if cached != nil {
			_, _ = fmt.Fprintln(out, cli.FormatInsight(cached))
			return nil
		}
	}

	records, err := a.store.GetTransactions(ctx, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("No transactions in this period."))
		return nil
	}

	result, err := a.gateway.Refresh(ctx, records, period)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, cli.FormatInsight(result))
	return nil
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <question>",
		Short: "Answer a question about your transactions",
		Long: `Answer a question using only the saved transactions in a date range.

Examples:
  spicewise analyze "How much did I spend on food?" --from 2025-01-01 --to 2025-01-31`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().String("from", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day to include (YYYY-MM-DD)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	filter, err := dateRange(from, to)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.GetTransactions(ctx, filter)
	if err != nil {
		return err
	}

	answer, err := a.gateway.Analyze(ctx, strings.Join(args, " "), records)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTurn(model.RoleAssistant, answer))
	return nil
}

// periodLabel names a date range when no --period is given.
func periodLabel(filter service.TransactionFilter) string {
	switch {
	case filter.StartDate != nil && filter.EndDate != nil:
		return filter.StartDate.Format(time.DateOnly) + " to " + filter.EndDate.Format(time.DateOnly)
	case filter.StartDate != nil:
		return "since " + filter.StartDate.Format(time.DateOnly)
	case filter.EndDate != nil:
		return "until " + filter.EndDate.Format(time.DateOnly)
	default:
		return "all time"
	}
}
