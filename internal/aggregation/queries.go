package aggregation

import (
	"strings"

	"github.com/2beens/gymlog/internal/workout"
)

// The query functions below are pure over an already reconstructed history.
// Every tie is resolved in favour of the later timestamp.

func isBenchPress(exercise string) bool {
	return strings.Contains(strings.ToLower(exercise), "bench")
}

// pickBest returns the record with the greatest score among those accepted.
func pickBest(records []workout.Record, score func(workout.Record) (float64, bool)) (workout.Record, bool) {
	var (
		best      workout.Record
		bestScore float64
		found     bool
	)
	for _, r := range records {
		s, ok := score(r)
		if !ok {
			continue
		}
		if !found || s > bestScore || (s == bestScore && r.Timestamp() > best.Timestamp()) {
			best, bestScore, found = r, s, true
		}
	}
	return best, found
}

func latestOfKind(kind workout.Kind) func(workout.Record) (float64, bool) {
	return func(r workout.Record) (float64, bool) {
		return float64(r.Timestamp()), r.Kind() == kind
	}
}

func LastBenchPress(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, func(r workout.Record) (float64, bool) {
		lift, ok := r.Lift()
		return float64(r.Timestamp()), ok && isBenchPress(lift.Exercise)
	})
}

func LastLift(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, latestOfKind(workout.KindLift))
}

func LastRun(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, latestOfKind(workout.KindRun))
}

func HeaviestLift(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, func(r workout.Record) (float64, bool) {
		lift, ok := r.Lift()
		return lift.WeightLbs, ok
	})
}

// LongestRun considers every run, including ones with zero distance.
func LongestRun(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, func(r workout.Record) (float64, bool) {
		run, ok := r.Run()
		return run.DistanceMiles, ok
	})
}

// FastestRun ignores runs with zero speed.
func FastestRun(records []workout.Record) (workout.Record, bool) {
	return pickBest(records, func(r workout.Record) (float64, bool) {
		run, ok := r.Run()
		return run.SpeedMph, ok && run.SpeedMph > 0
	})
}

var queryFuncs = map[Query]func([]workout.Record) (workout.Record, bool){
	QueryLastBenchPress: LastBenchPress,
	QueryLastLift:       LastLift,
	QueryLastRun:        LastRun,
	QueryHeaviestLift:   HeaviestLift,
	QueryLongestRun:     LongestRun,
	QueryFastestRun:     FastestRun,
}

// Evaluate runs query over records.
func Evaluate(query Query, records []workout.Record) Result {
	fn, ok := queryFuncs[query]
	if !ok {
		return Failed(query, errUnknownQuery)
	}
	if record, found := fn(records); found {
		return Found(query, record)
	}
	return NotFound(query)
}
