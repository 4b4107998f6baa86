package workout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind tells which shape a workout record holds. The backend does not store it,
// it is discovered by probing the lift and run endpoints.
//   - lift
//   - run
type Kind string

const (
	KindUnset Kind = ""
	KindLift  Kind = "lift"
	KindRun   Kind = "run"
)

func (k Kind) String() string {
	if k == KindUnset {
		return "unset"
	}
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindLift, KindRun:
		return true
	default:
		return false
	}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return KindUnset, fmt.Errorf("unknown workout kind: %q", s)
	}
	return k, nil
}

type Lift struct {
	Exercise  string  `json:"exercise"`
	WeightLbs float64 `json:"weight_lbs"`
	TotalSets int     `json:"total_sets"`
}

type Run struct {
	DistanceMiles float64 `json:"distance_miles"`
	ElapsedSecs   float64 `json:"elapsed_secs"`
	InclineDeg    float64 `json:"incline_deg"`
	SpeedMph      float64 `json:"speed_mph"`
}

// SpeedMph derives the average speed of a run; zero elapsed time gives zero speed.
func SpeedMph(distanceMiles, elapsedSecs float64) float64 {
	if elapsedSecs <= 0 {
		return 0
	}
	return distanceMiles / (elapsedSecs / 3600)
}

// Record is a persisted workout, identified by its timestamp (ms since epoch).
// Exactly one of the lift / run shapes is set, depending on Kind.
type Record struct {
	timestamp int64
	kind      Kind
	lift      Lift
	run       Run
}

func NewLiftRecord(timestamp int64, lift Lift) Record {
	return Record{
		timestamp: timestamp,
		kind:      KindLift,
		lift:      lift,
	}
}

// NewRunRecord builds a run record; speed is always derived from distance and
// elapsed time, whatever value the given run carries.
func NewRunRecord(timestamp int64, run Run) Record {
	run.SpeedMph = SpeedMph(run.DistanceMiles, run.ElapsedSecs)
	return Record{
		timestamp: timestamp,
		kind:      KindRun,
		run:       run,
	}
}

func (r Record) Timestamp() int64 {
	return r.timestamp
}

func (r Record) Time() time.Time {
	return time.UnixMilli(r.timestamp)
}

func (r Record) Kind() Kind {
	return r.kind
}

func (r Record) IsZero() bool {
	return r.kind == KindUnset
}

func (r Record) Lift() (Lift, bool) {
	if r.kind != KindLift {
		return Lift{}, false
	}
	return r.lift, true
}

func (r Record) Run() (Run, bool) {
	if r.kind != KindRun {
		return Run{}, false
	}
	return r.run, true
}

func (r Record) String() string {
	switch r.kind {
	case KindLift:
		return fmt.Sprintf(
			"lift@%d [%s, %.1f lbs, %d sets]",
			r.timestamp, r.lift.Exercise, r.lift.WeightLbs, r.lift.TotalSets,
		)
	case KindRun:
		return fmt.Sprintf(
			"run@%d [%.2f mi, %.0f s, %.1f deg, %.2f mph]",
			r.timestamp, r.run.DistanceMiles, r.run.ElapsedSecs, r.run.InclineDeg, r.run.SpeedMph,
		)
	default:
		return "<empty record>"
	}
}

type recordJson struct {
	Timestamp int64 `json:"timestamp"`
	Kind      Kind  `json:"kind"`
	Lift      *Lift `json:"lift,omitempty"`
	Run       *Run  `json:"run,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	rj := recordJson{
		Timestamp: r.timestamp,
		Kind:      r.kind,
	}
	switch r.kind {
	case KindLift:
		rj.Lift = &r.lift
	case KindRun:
		rj.Run = &r.run
	default:
		return nil, errors.New("marshal empty workout record")
	}
	return json.Marshal(rj)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var rj recordJson
	if err := json.Unmarshal(data, &rj); err != nil {
		return err
	}

	switch {
	case rj.Kind == KindLift && rj.Lift != nil && rj.Run == nil:
		*r = NewLiftRecord(rj.Timestamp, *rj.Lift)
	case rj.Kind == KindRun && rj.Run != nil && rj.Lift == nil:
		*r = NewRunRecord(rj.Timestamp, *rj.Run)
	default:
		return fmt.Errorf("invalid workout record of kind [%s]", rj.Kind)
	}

	return nil
}
