package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymlog/internal/telemetry/tracing"
	"github.com/2beens/gymlog/internal/workout"
	"github.com/2beens/gymlog/pkg"
)

var (
	ErrTimestampExists   = errors.New("timestamp already exists")
	ErrTimestampNotFound = errors.New("timestamp not found")
)

// Schema creates the three tables: every stored workout has its timestamp
// row, plus exactly one row in either weight_lifting or running.
const Schema = `
CREATE TABLE IF NOT EXISTS workout_timestamp
(
    timestamp BIGINT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS weight_lifting
(
    timestamp  BIGINT PRIMARY KEY REFERENCES workout_timestamp (timestamp) ON DELETE CASCADE,
    exercise   VARCHAR          NOT NULL,
    weight_lbs DOUBLE PRECISION NOT NULL,
    total_sets INTEGER          NOT NULL
);

CREATE TABLE IF NOT EXISTS running
(
    timestamp      BIGINT PRIMARY KEY REFERENCES workout_timestamp (timestamp) ON DELETE CASCADE,
    distance_miles DOUBLE PRECISION NOT NULL,
    elapsed_secs   DOUBLE PRECISION NOT NULL,
    incline_deg    DOUBLE PRECISION NOT NULL
);
`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Setup creates the schema if missing.
func (r *Repo) Setup(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *Repo) ListTimestamps(ctx context.Context) (_ []int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.listTimestamps")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT timestamp FROM workout_timestamp ORDER BY timestamp;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	timestamps := make([]int64, 0)
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		timestamps = append(timestamps, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("timestamps.count", len(timestamps)))
	return timestamps, nil
}

// GetLift returns nil when the timestamp holds no lift.
func (r *Repo) GetLift(ctx context.Context, timestamp int64) (_ *workout.Lift, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.getLift")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	var lift workout.Lift
	err = r.db.QueryRow(
		ctx,
		`SELECT exercise, weight_lbs, total_sets FROM weight_lifting WHERE timestamp = $1;`,
		timestamp,
	).Scan(&lift.Exercise, &lift.WeightLbs, &lift.TotalSets)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lift, nil
}

// GetRun returns nil when the timestamp holds no run.
func (r *Repo) GetRun(ctx context.Context, timestamp int64) (_ *workout.Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.getRun")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	var run workout.Run
	err = r.db.QueryRow(
		ctx,
		`SELECT distance_miles, elapsed_secs, incline_deg FROM running WHERE timestamp = $1;`,
		timestamp,
	).Scan(&run.DistanceMiles, &run.ElapsedSecs, &run.InclineDeg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.SpeedMph = workout.SpeedMph(run.DistanceMiles, run.ElapsedSecs)
	return &run, nil
}

// Add stores the record and its timestamp in one transaction.
func (r *Repo) Add(ctx context.Context, record workout.Record) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("timestamp", record.Timestamp()),
		attribute.String("kind", record.Kind().String()),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Errorf("add record %d, rollback: %s", record.Timestamp(), err)
		}
	}()

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO workout_timestamp (timestamp) VALUES ($1);`,
		record.Timestamp(),
	); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrTimestampExists
		}
		return fmt.Errorf("insert timestamp: %w", err)
	}

	if lift, ok := record.Lift(); ok {
		_, err = tx.Exec(
			ctx,
			`INSERT INTO weight_lifting (timestamp, exercise, weight_lbs, total_sets) VALUES ($1, $2, $3, $4);`,
			record.Timestamp(), lift.Exercise, lift.WeightLbs, lift.TotalSets,
		)
	} else if run, ok := record.Run(); ok {
		_, err = tx.Exec(
			ctx,
			`INSERT INTO running (timestamp, distance_miles, elapsed_secs, incline_deg) VALUES ($1, $2, $3, $4);`,
			record.Timestamp(), run.DistanceMiles, run.ElapsedSecs, run.InclineDeg,
		)
	} else {
		return fmt.Errorf("record %d: %w", record.Timestamp(), workout.ErrEmptyPayload)
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", record.Kind(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Delete removes the timestamp; its record goes with it.
func (r *Repo) Delete(ctx context.Context, timestamp int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_timestamp WHERE timestamp = $1;`, timestamp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTimestampNotFound
	}
	return nil
}
