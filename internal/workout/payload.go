package workout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyPayload     = errors.New("payload has neither lift nor run fields")
	ErrMixedPayload     = errors.New("payload has both lift and run fields")
	ErrIncompleteFields = errors.New("payload fields incomplete")
	ErrNegativeValue    = errors.New("negative value")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrEmptyExercise    = errors.New("exercise empty")
)

// Payload is the enter-workout wire payload. Exactly the lift group
// (exercise, weight_lbs, total_sets) or the run group (distance_miles,
// elapsed_secs, speed_mph, incline_deg) is present, never both.
type Payload struct {
	Timestamp int64 `json:"timestamp"`

	Exercise  *string  `json:"exercise,omitempty"`
	WeightLbs *float64 `json:"weight_lbs,omitempty"`
	TotalSets *int     `json:"total_sets,omitempty"`

	DistanceMiles *float64 `json:"distance_miles,omitempty"`
	ElapsedSecs   *float64 `json:"elapsed_secs,omitempty"`
	SpeedMph      *float64 `json:"speed_mph,omitempty"`
	InclineDeg    *float64 `json:"incline_deg,omitempty"`
}

func NewLiftPayload(timestamp int64, lift Lift) Payload {
	exercise := lift.Exercise
	weight := lift.WeightLbs
	sets := lift.TotalSets
	return Payload{
		Timestamp: timestamp,
		Exercise:  &exercise,
		WeightLbs: &weight,
		TotalSets: &sets,
	}
}

// NewRunPayload builds a run payload, computing the speed at build time.
func NewRunPayload(timestamp int64, run Run) Payload {
	distance := run.DistanceMiles
	elapsed := run.ElapsedSecs
	incline := run.InclineDeg
	speed := SpeedMph(distance, elapsed)
	return Payload{
		Timestamp:     timestamp,
		DistanceMiles: &distance,
		ElapsedSecs:   &elapsed,
		SpeedMph:      &speed,
		InclineDeg:    &incline,
	}
}

func (p Payload) WithTimestamp(timestamp int64) Payload {
	p.Timestamp = timestamp
	return p
}

func (p Payload) hasLiftFields() bool {
	return p.Exercise != nil || p.WeightLbs != nil || p.TotalSets != nil
}

func (p Payload) hasRunFields() bool {
	return p.DistanceMiles != nil || p.ElapsedSecs != nil || p.SpeedMph != nil || p.InclineDeg != nil
}

// Kind reports which field group the payload carries.
func (p Payload) Kind() (Kind, error) {
	lift, run := p.hasLiftFields(), p.hasRunFields()
	switch {
	case lift && run:
		return KindUnset, ErrMixedPayload
	case lift:
		return KindLift, nil
	case run:
		return KindRun, nil
	default:
		return KindUnset, ErrEmptyPayload
	}
}

// Validate checks the payload the way the store does before persisting it.
func (p Payload) Validate() error {
	if p.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}

	kind, err := p.Kind()
	if err != nil {
		return err
	}

	if kind == KindLift {
		if p.Exercise == nil || p.WeightLbs == nil || p.TotalSets == nil {
			return ErrIncompleteFields
		}
		if strings.TrimSpace(*p.Exercise) == "" {
			return ErrEmptyExercise
		}
		if *p.WeightLbs < 0 {
			return fmt.Errorf("weight_lbs: %w", ErrNegativeValue)
		}
		if *p.TotalSets < 0 {
			return fmt.Errorf("total_sets: %w", ErrNegativeValue)
		}
		return nil
	}

	if p.DistanceMiles == nil || p.ElapsedSecs == nil {
		return ErrIncompleteFields
	}
	if *p.DistanceMiles < 0 {
		return fmt.Errorf("distance_miles: %w", ErrNegativeValue)
	}
	if *p.ElapsedSecs < 0 {
		return fmt.Errorf("elapsed_secs: %w", ErrNegativeValue)
	}

	return nil
}

// Record converts a valid payload into the record it describes.
func (p Payload) Record() (Record, error) {
	if err := p.Validate(); err != nil {
		return Record{}, err
	}

	if kind, _ := p.Kind(); kind == KindLift {
		return NewLiftRecord(p.Timestamp, Lift{
			Exercise:  strings.TrimSpace(*p.Exercise),
			WeightLbs: *p.WeightLbs,
			TotalSets: *p.TotalSets,
		}), nil
	}

	run := Run{
		DistanceMiles: *p.DistanceMiles,
		ElapsedSecs:   *p.ElapsedSecs,
	}
	if p.InclineDeg != nil {
		run.InclineDeg = *p.InclineDeg
	}
	return NewRunRecord(p.Timestamp, run), nil
}
