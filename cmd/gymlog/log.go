package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/2beens/gymlog/internal/logbook"
	"github.com/2beens/gymlog/internal/workout"
)

func newLogCmd(a *app) *cobra.Command {
	logCmd := &cobra.Command{Use: "log", Short: "Log a single workout"}

	var exercise, weight, sets string
	liftCmd := &cobra.Command{
		Use:   "lift",
		Short: "Log a weight lifting workout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := logOne(cmd.Context(), a.newBook(), workout.KindLift, map[logbook.Field]string{
				logbook.FieldExercise:  exercise,
				logbook.FieldWeightLbs: weight,
				logbook.FieldTotalSets: sets,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged lift@%d\n", entry.SubmittedTimestamp())
			return nil
		},
	}
	liftCmd.Flags().StringVar(&exercise, "exercise", "", "exercise name")
	liftCmd.Flags().StringVar(&weight, "weight", "0", "weight in lbs")
	liftCmd.Flags().StringVar(&sets, "sets", "0", "total sets")

	var distance, elapsed, incline string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Log a running workout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entry, err := logOne(cmd.Context(), a.newBook(), workout.KindRun, map[logbook.Field]string{
				logbook.FieldDistanceMiles: distance,
				logbook.FieldElapsedSecs:   elapsed,
				logbook.FieldInclineDeg:    incline,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged run@%d\n", entry.SubmittedTimestamp())
			return nil
		},
	}
	runCmd.Flags().StringVar(&distance, "distance", "0", "distance in miles")
	runCmd.Flags().StringVar(&elapsed, "elapsed", "0", "elapsed time in seconds")
	runCmd.Flags().StringVar(&incline, "incline", "0", "incline in degrees")

	logCmd.AddCommand(liftCmd, runCmd)
	return logCmd
}

// logOne creates an entry of the given kind, fills its fields and submits it.
func logOne(ctx context.Context, book *logbook.Book, kind workout.Kind, fields map[logbook.Field]string) (logbook.Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	id := book.Create()
	if _, err := book.Update(id, logbook.SelectType(kind)); err != nil {
		return logbook.Entry{}, err
	}
	for _, field := range logbook.FieldsFor(kind) {
		if _, err := book.Update(id, trySetField(field, fields[field])); err != nil {
			return logbook.Entry{}, err
		}
	}

	entry, err := book.Submit(ctx, id)
	if err != nil {
		return logbook.Entry{}, err
	}
	if entry.State() == logbook.StateFailed {
		return entry, submitFailure(entry)
	}
	return entry, nil
}

func trySetField(field logbook.Field, value string) logbook.Mutation {
	return func(e logbook.Entry) (logbook.Entry, error) {
		return e.TrySetField(field, value)
	}
}

func submitFailure(entry logbook.Entry) error {
	return fmt.Errorf("%s %w", entry.Message(), entry.Err())
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return s[len(s)-8:]
}
