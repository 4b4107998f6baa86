package aggregation

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

type queryEngine interface {
	Run(ctx context.Context, query Query) Result
}

// Runner publishes the result of the most recently issued query only.
// Issuing a query cancels the one still in flight; a stale invocation still
// returns its result to its caller but never replaces the published one.
type Runner struct {
	engine queryEngine

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	latest     *Result
}

func NewRunner(engine queryEngine) *Runner {
	return &Runner{
		engine: engine,
	}
}

// Run executes query and reports whether its result got published.
func (r *Runner) Run(ctx context.Context, query Query) (Result, bool) {
	r.mu.Lock()
	r.generation++
	generation := r.generation
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	result := r.engine.Run(ctx, query)

	r.mu.Lock()
	defer r.mu.Unlock()
	if generation != r.generation {
		log.Debugf("query %s (generation %d) superseded by generation %d", query, generation, r.generation)
		return result, false
	}
	r.latest = &result
	r.cancel = nil
	return result, true
}

// Latest returns the published result, if any.
func (r *Runner) Latest() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return Result{}, false
	}
	return *r.latest, true
}
