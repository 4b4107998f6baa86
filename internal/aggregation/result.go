package aggregation

import (
	"fmt"

	"github.com/2beens/gymlog/internal/workout"
)

type Query string

const (
	QueryLastBenchPress Query = "last_bench_press"
	QueryLastLift       Query = "last_lift"
	QueryLastRun        Query = "last_run"
	QueryHeaviestLift   Query = "heaviest_lift"
	QueryLongestRun     Query = "longest_run"
	QueryFastestRun     Query = "fastest_run"
)

// AllQueries in the order they are presented.
var AllQueries = []Query{
	QueryLastBenchPress,
	QueryLastLift,
	QueryLastRun,
	QueryHeaviestLift,
	QueryLongestRun,
	QueryFastestRun,
}

func ParseQuery(s string) (Query, error) {
	for _, q := range AllQueries {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("unknown query: %q", s)
}

func (q Query) String() string {
	return string(q)
}

type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result of a single query. Record is only set when Found, Err only when
// Failed.
type Result struct {
	Query  Query
	Status Status
	Record workout.Record
	Err    error
}

func Found(query Query, record workout.Record) Result {
	return Result{Query: query, Status: StatusFound, Record: record}
}

func NotFound(query Query) Result {
	return Result{Query: query, Status: StatusNotFound}
}

func Failed(query Query, err error) Result {
	return Result{Query: query, Status: StatusFailed, Err: err}
}

func (r Result) String() string {
	switch r.Status {
	case StatusFound:
		return fmt.Sprintf("%s: %s", r.Query, r.Record)
	case StatusFailed:
		return fmt.Sprintf("%s: failed: %s", r.Query, r.Err)
	default:
		return fmt.Sprintf("%s: not found", r.Query)
	}
}
