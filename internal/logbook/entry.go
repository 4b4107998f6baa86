package logbook

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2beens/gymlog/internal/workout"
)

// InvalidSubmissionMessage is shown on an entry the store refused to take.
const InvalidSubmissionMessage = "Invalid submission!"

var (
	ErrTypeAlreadySet   = errors.New("workout type already set")
	ErrTypeNotSet       = errors.New("workout type not set")
	ErrNotEditable      = errors.New("entry not editable in its current state")
	ErrNotSubmittable   = errors.New("entry cannot be submitted in its current state")
	ErrUnknownField     = errors.New("unknown field for workout type")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrNegativeRejected = errors.New("negative value rejected")
)

// State of a log entry:
//
//	Unset -> {Lift, Run} -> Submitting -> {Submitted, Failed}
//	Failed -> Submitting (retry)
type State int

const (
	StateUnset State = iota
	StateLift
	StateRun
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateLift:
		return "lift"
	case StateRun:
		return "run"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Field string

const (
	FieldExercise      Field = "exercise"
	FieldWeightLbs     Field = "weight_lbs"
	FieldTotalSets     Field = "total_sets"
	FieldDistanceMiles Field = "distance_miles"
	FieldElapsedSecs   Field = "elapsed_secs"
	FieldInclineDeg    Field = "incline_deg"
)

// FieldsFor lists the fields editable for a workout kind.
func FieldsFor(kind workout.Kind) []Field {
	switch kind {
	case workout.KindLift:
		return []Field{FieldExercise, FieldWeightLbs, FieldTotalSets}
	case workout.KindRun:
		return []Field{FieldDistanceMiles, FieldElapsedSecs, FieldInclineDeg}
	default:
		return nil
	}
}

type phase int

const (
	phaseEditing phase = iota
	phaseSubmitting
	phaseSubmitted
	phaseFailed
)

type liftFields struct {
	exercise  string
	weightLbs float64
	totalSets int
}

type runFields struct {
	distanceMiles float64
	elapsedSecs   float64
	inclineDeg    float64
}

// Entry is a single in-progress, not yet persisted workout log.
// It is a value: every transition returns a new Entry and leaves the
// receiver untouched.
type Entry struct {
	id        uuid.UUID
	createdAt time.Time

	kind  workout.Kind
	phase phase
	lift  liftFields
	run   runFields

	submittedTimestamp int64
	message            string
	err                error
}

func newEntry(id uuid.UUID, createdAt time.Time) Entry {
	return Entry{
		id:        id,
		createdAt: createdAt,
	}
}

func (e Entry) ID() uuid.UUID {
	return e.id
}

func (e Entry) CreatedAt() time.Time {
	return e.createdAt
}

func (e Entry) Kind() workout.Kind {
	return e.kind
}

func (e Entry) State() State {
	switch e.phase {
	case phaseSubmitting:
		return StateSubmitting
	case phaseSubmitted:
		return StateSubmitted
	case phaseFailed:
		return StateFailed
	}

	switch e.kind {
	case workout.KindLift:
		return StateLift
	case workout.KindRun:
		return StateRun
	default:
		return StateUnset
	}
}

// Message is the user facing outcome message, empty unless the last
// submission failed.
func (e Entry) Message() string {
	return e.message
}

// Err is the cause of the last failed submission.
func (e Entry) Err() error {
	return e.err
}

// SubmittedTimestamp is the record timestamp used by the last submission attempt.
func (e Entry) SubmittedTimestamp() int64 {
	return e.submittedTimestamp
}

func (e Entry) Exercise() string {
	return strings.TrimSpace(e.lift.exercise)
}

func (e Entry) WeightLbs() float64 {
	return e.lift.weightLbs
}

func (e Entry) TotalSets() int {
	return e.lift.totalSets
}

func (e Entry) DistanceMiles() float64 {
	return e.run.distanceMiles
}

func (e Entry) ElapsedSecs() float64 {
	return e.run.elapsedSecs
}

func (e Entry) InclineDeg() float64 {
	return e.run.inclineDeg
}

// SelectType types an Unset entry, starting it with an empty field set.
func (e Entry) SelectType(kind workout.Kind) (Entry, error) {
	if e.kind != workout.KindUnset {
		return e, ErrTypeAlreadySet
	}
	if !kind.IsValid() {
		return e, fmt.Errorf("select type [%s]: %w", kind, ErrTypeNotSet)
	}

	e.kind = kind
	e.lift = liftFields{}
	e.run = runFields{}
	return e, nil
}

func (e Entry) editable() bool {
	return e.kind.IsValid() && (e.phase == phaseEditing || e.phase == phaseFailed)
}

// SetField sets a field from its textual value. A value that cannot be
// applied (negative where not allowed, not a number, wrong field for the
// type, entry not editable) is ignored and the entry keeps its prior value.
func (e Entry) SetField(field Field, value string) Entry {
	updated, _ := e.TrySetField(field, value)
	return updated
}

// TrySetField is SetField that also reports why a value was not applied.
func (e Entry) TrySetField(field Field, value string) (Entry, error) {
	if !e.editable() {
		return e, ErrNotEditable
	}
	if !fieldAllowed(e.kind, field) {
		return e, fmt.Errorf("%s for %s: %w", field, e.kind, ErrUnknownField)
	}

	if field == FieldExercise {
		e.lift.exercise = value
		return e, nil
	}

	if field == FieldTotalSets {
		sets, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return e, fmt.Errorf("%s [%s]: %w", field, value, ErrInvalidNumber)
		}
		if sets < 0 {
			return e, fmt.Errorf("%s [%d]: %w", field, sets, ErrNegativeRejected)
		}
		e.lift.totalSets = sets
		return e, nil
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
		return e, fmt.Errorf("%s [%s]: %w", field, value, ErrInvalidNumber)
	}
	return e.setNumber(field, num)
}

func (e Entry) setNumber(field Field, num float64) (Entry, error) {
	if field != FieldInclineDeg && num < 0 {
		return e, fmt.Errorf("%s [%v]: %w", field, num, ErrNegativeRejected)
	}

	switch field {
	case FieldWeightLbs:
		e.lift.weightLbs = num
	case FieldDistanceMiles:
		e.run.distanceMiles = num
	case FieldElapsedSecs:
		e.run.elapsedSecs = num
	case FieldInclineDeg:
		e.run.inclineDeg = num
	default:
		return e, fmt.Errorf("%s: %w", field, ErrUnknownField)
	}
	return e, nil
}

func fieldAllowed(kind workout.Kind, field Field) bool {
	for _, f := range FieldsFor(kind) {
		if f == field {
			return true
		}
	}
	return false
}

// BuildPayload produces the enter-workout payload, without a timestamp;
// the timestamp is assigned when the entry is submitted.
func (e Entry) BuildPayload() (workout.Payload, error) {
	switch e.kind {
	case workout.KindLift:
		return workout.NewLiftPayload(0, workout.Lift{
			Exercise:  e.Exercise(),
			WeightLbs: e.lift.weightLbs,
			TotalSets: e.lift.totalSets,
		}), nil
	case workout.KindRun:
		return workout.NewRunPayload(0, workout.Run{
			DistanceMiles: e.run.distanceMiles,
			ElapsedSecs:   e.run.elapsedSecs,
			InclineDeg:    e.run.inclineDeg,
		}), nil
	default:
		return workout.Payload{}, ErrTypeNotSet
	}
}

// BeginSubmit moves a typed (or failed) entry into Submitting.
func (e Entry) BeginSubmit() (Entry, error) {
	if !e.editable() {
		return e, fmt.Errorf("%w: %s", ErrNotSubmittable, e.State())
	}
	e.phase = phaseSubmitting
	return e, nil
}

// CompleteSubmit records the outcome of the enter-workout call on a
// Submitting entry.
func (e Entry) CompleteSubmit(timestamp int64, submitErr error) Entry {
	if e.phase != phaseSubmitting {
		return e
	}

	e.submittedTimestamp = timestamp
	if submitErr != nil {
		e.phase = phaseFailed
		e.message = InvalidSubmissionMessage
		e.err = submitErr
		return e
	}

	e.phase = phaseSubmitted
	e.message = ""
	e.err = nil
	return e
}

// Submit sends the entry with a timestamp taken from clock at this moment.
// It makes exactly one call to the submitter and never returns the
// submission error: a failed call leaves the entry Failed, ready for a
// user initiated retry.
func (e Entry) Submit(ctx context.Context, submitter Submitter, clock TimestampSource) (Entry, error) {
	submitting, err := e.BeginSubmit()
	if err != nil {
		return e, err
	}

	timestamp, submitErr := submitting.send(ctx, submitter, clock)
	return submitting.CompleteSubmit(timestamp, submitErr), nil
}

func (e Entry) send(ctx context.Context, submitter Submitter, clock TimestampSource) (int64, error) {
	payload, err := e.BuildPayload()
	if err != nil {
		return 0, err
	}
	timestamp := clock.Next()
	if err := submitter.EnterWorkout(ctx, payload.WithTimestamp(timestamp)); err != nil {
		return timestamp, fmt.Errorf("enter workout: %w", err)
	}
	return timestamp, nil
}
