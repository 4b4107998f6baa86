package logbook

import (
	"context"

	"github.com/2beens/gymlog/internal/workout"
)

//go:generate mockgen -source=$GOFILE -destination=logbook_mocks_test.go -package=logbook_test

// Submitter persists a workout payload; it is the enter-workout operation
// of the backend store.
type Submitter interface {
	EnterWorkout(ctx context.Context, payload workout.Payload) error
}
