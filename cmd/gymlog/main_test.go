package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymlog/internal/logbook"
	"github.com/2beens/gymlog/internal/records"
	"github.com/2beens/gymlog/internal/workout"
)

// memRepo backs a real records handler so the commands talk HTTP to it.
type memRepo struct {
	mu      sync.Mutex
	records map[int64]workout.Record
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[int64]workout.Record{}}
}

func (r *memRepo) ListTimestamps(_ context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamps := make([]int64, 0, len(r.records))
	for ts := range r.records {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	return timestamps, nil
}

func (r *memRepo) GetLift(_ context.Context, timestamp int64) (*workout.Lift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lift, ok := r.records[timestamp].Lift(); ok {
		return &lift, nil
	}
	return nil, nil
}

func (r *memRepo) GetRun(_ context.Context, timestamp int64) (*workout.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.records[timestamp].Run(); ok {
		return &run, nil
	}
	return nil, nil
}

func (r *memRepo) Add(_ context.Context, record workout.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.Timestamp()]; ok {
		return records.ErrTimestampExists
	}
	r.records[record.Timestamp()] = record
	return nil
}

func (r *memRepo) Delete(_ context.Context, timestamp int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[timestamp]; !ok {
		return records.ErrTimestampNotFound
	}
	delete(r.records, timestamp)
	return nil
}

func (r *memRepo) all() []workout.Record {
	timestamps, _ := r.ListTimestamps(context.Background())
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]workout.Record, 0, len(timestamps))
	for _, ts := range timestamps {
		all = append(all, r.records[ts])
	}
	return all
}

func newStore(t *testing.T) (*memRepo, string) {
	t.Helper()
	repo := newMemRepo()
	router := mux.NewRouter()
	records.NewHandler(repo, nil).SetupRoutes(router, nil, 0)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return repo, srv.URL
}

func execute(t *testing.T, storeURL string, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeWithErr(t, storeURL, stdin, io.Discard, args...)
}

func executeWithErr(t *testing.T, storeURL string, stdin string, stderr io.Writer, args ...string) (string, error) {
	t.Helper()
	// every run gets a fresh clock; keep timestamps of consecutive runs apart
	time.Sleep(2 * time.Millisecond)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--store-url", storeURL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLogAndQuery(t *testing.T) {
	repo, storeURL := newStore(t)

	out, err := execute(t, storeURL, "", "log", "lift", "--exercise", "  Bench Press ", "--weight", "185", "--sets", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "logged lift@")

	out, err = execute(t, storeURL, "", "log", "run", "--distance", "3", "--elapsed", "1800", "--incline=-1.5")
	require.NoError(t, err)
	assert.Contains(t, out, "logged run@")

	all := repo.all()
	require.Len(t, all, 2)
	lift, ok := all[0].Lift()
	require.True(t, ok)
	assert.Equal(t, workout.Lift{Exercise: "Bench Press", WeightLbs: 185, TotalSets: 5}, lift)
	run, ok := all[1].Run()
	require.True(t, ok)
	assert.Equal(t, 6.0, run.SpeedMph)
	assert.Equal(t, -1.5, run.InclineDeg)

	out, err = execute(t, storeURL, "", "query", "last_bench_press")
	require.NoError(t, err)
	assert.Contains(t, out, "last_bench_press: lift@")
	assert.Contains(t, out, "Bench Press, 185.0 lbs, 5 sets")
	assert.Contains(t, out, "logged at "+all[0].Time().Format(time.DateTime))

	out, err = execute(t, storeURL, "", "query", "fastest_run", "--parallelism", "2", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "fastest_run: run@")
	assert.Contains(t, out, "6.00 mph")

	out, err = execute(t, storeURL, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "records: 2 (lifts: 1, runs: 1)")
	assert.Contains(t, out, "heaviest_lift: lift@")
	assert.Contains(t, out, "longest_run: run@")
	assert.NotContains(t, out, "anomaly")
	// one fresh reconstruction per invocation, nothing cached yet
	assert.Contains(t, out, "probe cache hit rate: 0.00")
	assert.Contains(t, out, `gymlog_cli_aggregation_queries{query="longest_run",status="found"} 1`)
	assert.Contains(t, out, `gymlog_cli_aggregation_queries{query="last_bench_press",status="found"} 1`)
	assert.Contains(t, out, "gymlog_cli_fetch_all_duration_seconds count=1")
}

func TestMetricsFlag(t *testing.T) {
	_, storeURL := newStore(t)

	var stderr bytes.Buffer
	_, err := executeWithErr(t, storeURL, "", &stderr, "--metrics", "log", "run", "--distance", "2", "--elapsed", "900")
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), `gymlog_cli_log_entry_submissions{outcome="submitted"} 1`)

	stderr.Reset()
	_, err = executeWithErr(t, storeURL, "", &stderr, "--metrics", "log", "lift", "--weight", "100")
	require.Error(t, err)
	// the post run hook is skipped when the command fails
	assert.NotContains(t, stderr.String(), "log_entry_submissions")

	stderr.Reset()
	_, err = executeWithErr(t, storeURL, "", &stderr, "query", "last_run")
	require.NoError(t, err)
	assert.NotContains(t, stderr.String(), "gymlog_cli_")
}

func TestLogLift_Invalid(t *testing.T) {
	repo, storeURL := newStore(t)

	_, err := execute(t, storeURL, "", "log", "lift", "--exercise", "squat", "--weight=-5")
	assert.ErrorIs(t, err, logbook.ErrNegativeRejected)

	_, err = execute(t, storeURL, "", "log", "lift", "--exercise", "squat", "--sets", "three")
	assert.ErrorIs(t, err, logbook.ErrInvalidNumber)

	// an empty exercise is rejected by the store
	_, err = execute(t, storeURL, "", "log", "lift", "--weight", "100")
	assert.ErrorContains(t, err, logbook.InvalidSubmissionMessage)

	assert.Empty(t, repo.all())
}

func TestQuery_Errors(t *testing.T) {
	_, storeURL := newStore(t)

	_, err := execute(t, storeURL, "", "query", "slowest_run")
	assert.ErrorContains(t, err, "unknown query")

	out, err := execute(t, storeURL, "", "query", "last_lift")
	require.NoError(t, err)
	assert.Equal(t, "last_lift: not found\n", out)

	_, err = execute(t, storeURL, "", "query", "last_lift", "--parallelism", "0")
	assert.ErrorContains(t, err, "invalid --parallelism")

	// nothing listening
	_, err = execute(t, "http://127.0.0.1:1", "", "query", "last_lift")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo, storeURL := newStore(t)

	_, err := execute(t, storeURL, "", "log", "run", "--distance", "1", "--elapsed", "600")
	require.NoError(t, err)
	all := repo.all()
	require.Len(t, all, 1)
	ts := all[0].Timestamp()

	out, err := execute(t, storeURL, "", "delete", itoa(ts))
	require.NoError(t, err)
	assert.Equal(t, "deleted "+itoa(ts)+"\n", out)
	assert.Empty(t, repo.all())

	_, err = execute(t, storeURL, "", "delete", itoa(ts))
	assert.Error(t, err)

	_, err = execute(t, storeURL, "", "delete", "-4")
	assert.Error(t, err)
}

func TestSession(t *testing.T) {
	repo, storeURL := newStore(t)

	script := strings.Join([]string{
		"help",
		"new",
		"type 1 lift",
		"set 1 exercise Incline Bench Press",
		"set 1 weight_lbs 135",
		"set 1 total_sets 3",
		"new",
		"type 2 run",
		"set 2 distance_miles 3",
		"set 2 elapsed_secs 1800",
		"new",
		"list",
		"submitall",
		"remove 3",
		"list",
		"query fastest_run",
		"quit",
	}, "\n")

	out, err := execute(t, storeURL, script, "session")
	require.NoError(t, err)

	assert.Contains(t, out, "commands:")
	assert.Contains(t, out, "entry #3 created")
	assert.Contains(t, out, `#1 [`)
	assert.Contains(t, out, `lift exercise="Incline Bench Press" weight_lbs=135 total_sets=3`)
	assert.Contains(t, out, "run distance_miles=3 elapsed_secs=1800 incline_deg=0")
	assert.Contains(t, out, "#3 [")
	assert.Contains(t, out, "] unset")
	assert.Contains(t, out, "submitted as lift@")
	assert.Contains(t, out, "submitted as run@")
	assert.Contains(t, out, "fastest_run: run@")

	// the untyped entry is not submitted
	assert.Len(t, repo.all(), 2)
}

func TestSession_Errors(t *testing.T) {
	repo, storeURL := newStore(t)

	script := strings.Join([]string{
		"dance",
		"type 1 lift",
		"new",
		"type 1 swim",
		"type 1 lift",
		"type 1 run",
		"set 1 distance_miles 3",
		"set 1 weight_lbs heavy",
		"submit",
		"submit 1",
		"latest",
		"query",
		"query nothing",
	}, "\n")

	out, err := execute(t, storeURL, script, "session")
	require.NoError(t, err)

	assert.Contains(t, out, "error: unknown command: dance")
	assert.Contains(t, out, "error: no entry #1")
	assert.Contains(t, out, `error: unknown workout kind: "swim"`)
	assert.Contains(t, out, "error: "+logbook.ErrTypeAlreadySet.Error())
	assert.Contains(t, out, "error: distance_miles for lift")
	assert.Contains(t, out, "error: weight_lbs [heavy]")
	assert.Contains(t, out, "error: missing entry number")
	// empty exercise
	assert.Contains(t, out, logbook.InvalidSubmissionMessage)
	assert.Contains(t, out, "no query result yet")
	assert.Contains(t, out, "error: usage: query <name>")
	assert.Contains(t, out, `error: unknown query: "nothing"`)

	assert.Empty(t, repo.all())
}

func itoa(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
