package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/2beens/gymlog/internal/aggregation"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
)

func newQueryCmd(a *app) *cobra.Command {
	names := make([]string, 0, len(aggregation.AllQueries))
	for _, q := range aggregation.AllQueries {
		names = append(names, q.String())
	}

	return &cobra.Command{
		Use:       "query <name>",
		Short:     "Run a query over the workout history",
		Long:      "Run a query over the workout history. Queries: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := aggregation.ParseQuery(args[0])
			if err != nil {
				return err
			}

			runner := aggregation.NewRunner(a.newEngine())
			result, _ := runner.Run(cmd.Context(), query)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, result)
			if result.Status == aggregation.StatusFound {
				_, _ = fmt.Fprintf(out, "logged at %s\n", result.Record.Time().Format(time.DateTime))
			}
			if result.Status == aggregation.StatusFailed {
				return result.Err
			}
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Run every query over a single history reconstruction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := a.newEngine().Summary(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "records: %d (lifts: %d, runs: %d)\n", summary.Records, summary.Lifts, summary.Runs)
			for _, result := range summary.Results {
				_, _ = fmt.Fprintln(out, result)
			}
			for _, anomaly := range summary.Anomalies {
				_, _ = fmt.Fprintf(out, "anomaly: %s@%d\n", anomaly.Kind, anomaly.Timestamp)
			}
			_, _ = fmt.Fprintf(out, "probe cache hit rate: %.2f\n", a.client.HitRate())
			return metrics.WriteSummary(out, a.metricsRegistry)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <timestamp>",
		Short: "Delete a timestamp and its record from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || ts <= 0 {
				return fmt.Errorf("invalid timestamp: %s", args[0])
			}
			if err := a.client.DeleteTimestamp(cmd.Context(), ts); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", ts)
			return nil
		},
	}
}
