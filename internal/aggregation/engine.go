package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"
	"github.com/2beens/gymlog/internal/workout"
)

const defaultParallelism = 8

var errUnknownQuery = errors.New("unknown query")

// Store is the read side of the records store.
type Store interface {
	ListTimestamps(ctx context.Context) ([]int64, error)
	// FetchLift and FetchRun return nil when the timestamp holds no record
	// of that kind.
	FetchLift(ctx context.Context, timestamp int64) (*workout.Lift, error)
	FetchRun(ctx context.Context, timestamp int64) (*workout.Run, error)
}

type AnomalyKind string

const (
	// AnomalyNoRecord: a listed timestamp answered empty on both probes.
	AnomalyNoRecord AnomalyKind = "no_record"
	// AnomalyBothKinds: a timestamp holds a lift and a run. Only detected
	// with strict probing.
	AnomalyBothKinds AnomalyKind = "both_kinds"
)

type Anomaly struct {
	Timestamp int64
	Kind      AnomalyKind
}

// History is the reconstructed workout history, in the order the store
// listed the timestamps.
type History struct {
	Records   []workout.Record
	Anomalies []Anomaly
}

type Option func(*Engine)

// WithParallelism bounds the number of concurrent probes.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithStrictProbing probes both kinds for every timestamp, so a timestamp
// holding a lift and a run is reported.
func WithStrictProbing() Option {
	return func(e *Engine) {
		e.strictProbing = true
	}
}

func WithMetrics(metricsManager *metrics.ClientManager) Option {
	return func(e *Engine) {
		e.metricsManager = metricsManager
	}
}

// Engine reconstructs the workout history from the store and answers the
// queries over it. It holds no state between calls.
type Engine struct {
	store          Store
	parallelism    int
	strictProbing  bool
	metricsManager *metrics.ClientManager
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FetchAll reconstructs every record: lift probes first, then run probes
// for the timestamps with no lift.
func (e *Engine) FetchAll(ctx context.Context) (_ History, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "aggregation.fetchAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if e.metricsManager != nil {
		defer func(begin time.Time) {
			e.metricsManager.HistFetchAllDuration.Observe(time.Since(begin).Seconds())
		}(time.Now())
	}

	timestamps, err := e.store.ListTimestamps(ctx)
	if err != nil {
		return History{}, fmt.Errorf("list timestamps: %w", err)
	}
	span.SetAttributes(attribute.Int("timestamps.count", len(timestamps)))

	lifts := make([]*workout.Lift, len(timestamps))
	if err := e.probeEach(ctx, timestamps, nil, func(ctx context.Context, i int) (err error) {
		lifts[i], err = e.store.FetchLift(ctx, timestamps[i])
		return err
	}); err != nil {
		return History{}, err
	}

	runs := make([]*workout.Run, len(timestamps))
	needsRun := func(i int) bool {
		return e.strictProbing || lifts[i] == nil
	}
	if err := e.probeEach(ctx, timestamps, needsRun, func(ctx context.Context, i int) (err error) {
		runs[i], err = e.store.FetchRun(ctx, timestamps[i])
		return err
	}); err != nil {
		return History{}, err
	}

	history := History{
		Records: make([]workout.Record, 0, len(timestamps)),
	}
	for i, ts := range timestamps {
		switch {
		case lifts[i] != nil:
			history.Records = append(history.Records, workout.NewLiftRecord(ts, *lifts[i]))
			if runs[i] != nil {
				history.Anomalies = append(history.Anomalies, e.reportAnomaly(ts, AnomalyBothKinds))
			}
		case runs[i] != nil:
			history.Records = append(history.Records, workout.NewRunRecord(ts, *runs[i]))
		default:
			history.Anomalies = append(history.Anomalies, e.reportAnomaly(ts, AnomalyNoRecord))
		}
	}
	span.SetAttributes(
		attribute.Int("records.count", len(history.Records)),
		attribute.Int("anomalies.count", len(history.Anomalies)),
	)

	return history, nil
}

// probeEach runs probe for every index accepted by filter (all when nil),
// with at most parallelism probes in flight. The first error cancels the
// rest.
func (e *Engine) probeEach(
	ctx context.Context,
	timestamps []int64,
	filter func(i int) bool,
	probe func(ctx context.Context, i int) error,
) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := range timestamps {
		if filter != nil && !filter(i) {
			continue
		}
		if gCtx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := probe(gCtx, i); err != nil {
				return fmt.Errorf("probe %d: %w", timestamps[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// canceled before any probe failed
	return ctx.Err()
}

func (e *Engine) reportAnomaly(timestamp int64, kind AnomalyKind) Anomaly {
	log.Warnf("retrieval anomaly at timestamp %d: %s", timestamp, kind)
	if e.metricsManager != nil {
		e.metricsManager.CounterRetrievalAnomalies.WithLabelValues(string(kind)).Inc()
	}
	return Anomaly{Timestamp: timestamp, Kind: kind}
}

// LastBenchPress walks the timestamps from the newest, probing lifts only,
// one window of parallelism probes at a time, and stops at the first lift
// whose exercise mentions bench.
func (e *Engine) LastBenchPress(ctx context.Context) (result Result) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "aggregation.lastBenchPress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, result.Err)
	}()

	timestamps, err := e.store.ListTimestamps(ctx)
	if err != nil {
		return Failed(QueryLastBenchPress, fmt.Errorf("list timestamps: %w", err))
	}
	sorted := append([]int64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] > sorted[j] })

	probed := 0
	for start := 0; start < len(sorted); start += e.parallelism {
		window := sorted[start:min(start+e.parallelism, len(sorted))]
		lifts := make([]*workout.Lift, len(window))
		if err := e.probeEach(ctx, window, nil, func(ctx context.Context, i int) (err error) {
			lifts[i], err = e.store.FetchLift(ctx, window[i])
			return err
		}); err != nil {
			return Failed(QueryLastBenchPress, err)
		}
		probed += len(window)

		for i, lift := range lifts {
			if lift != nil && isBenchPress(lift.Exercise) {
				span.SetAttributes(attribute.Int("probed.count", probed))
				return Found(QueryLastBenchPress, workout.NewLiftRecord(window[i], *lift))
			}
		}
	}
	span.SetAttributes(attribute.Int("probed.count", probed))

	return NotFound(QueryLastBenchPress)
}

// Run answers a single query against the current store state.
func (e *Engine) Run(ctx context.Context, query Query) (result Result) {
	defer func() {
		e.countQuery(result)
		log.Debugf("query %s", result)
	}()

	switch query {
	case QueryLastBenchPress:
		return e.LastBenchPress(ctx)
	case QueryLastLift, QueryLastRun, QueryHeaviestLift, QueryLongestRun, QueryFastestRun:
		history, err := e.FetchAll(ctx)
		if err != nil {
			return Failed(query, err)
		}
		return Evaluate(query, history.Records)
	default:
		return Failed(query, fmt.Errorf("%w: %q", errUnknownQuery, query))
	}
}

// Summary is the result of every query over a single reconstruction.
type Summary struct {
	Results   []Result
	Records   int
	Lifts     int
	Runs      int
	Anomalies []Anomaly
}

func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	history, err := e.FetchAll(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Records:   len(history.Records),
		Anomalies: history.Anomalies,
	}
	for _, r := range history.Records {
		if r.Kind() == workout.KindLift {
			summary.Lifts++
		} else {
			summary.Runs++
		}
	}
	for _, q := range AllQueries {
		result := Evaluate(q, history.Records)
		e.countQuery(result)
		summary.Results = append(summary.Results, result)
	}
	return summary, nil
}

func (e *Engine) countQuery(result Result) {
	if e.metricsManager == nil {
		return
	}
	e.metricsManager.CounterQueries.WithLabelValues(string(result.Query), result.Status.String()).Inc()
}
