package logbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"
)

// Book holds the current log collection of an editing session and submits
// its entries. It is safe for concurrent use: submissions of different
// entries run independently and each one only writes back its own entry.
type Book struct {
	mu         sync.Mutex
	collection Collection

	submitter      Submitter
	clock          TimestampSource
	metricsManager *metrics.ClientManager
	now            func() time.Time
}

func NewBook(submitter Submitter, clock TimestampSource, metricsManager *metrics.ClientManager) *Book {
	return &Book{
		collection:     NewCollection(),
		submitter:      submitter,
		clock:          clock,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// Snapshot returns the current collection value.
func (b *Book) Snapshot() Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.collection
}

func (b *Book) Create() uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	var id uuid.UUID
	b.collection, id = b.collection.Create(b.now())
	log.Tracef("log entry created: %s", id)
	return id
}

func (b *Book) Update(id uuid.UUID, mutation Mutation) (Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated, err := b.collection.UpdateEntry(id, mutation)
	if err != nil {
		return Entry{}, err
	}
	b.collection = updated

	entry, _ := b.collection.Get(id)
	return entry, nil
}

func (b *Book) Remove(id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated, err := b.collection.Remove(id)
	if err != nil {
		return err
	}
	b.collection = updated
	return nil
}

// Submit sends one entry to the store. The entry is Submitting while the
// call is in flight and ends up Submitted or Failed; a submission failure
// is recorded on the entry, not returned. The returned error is only set
// when the entry does not exist or cannot be submitted in its state.
func (b *Book) Submit(ctx context.Context, id uuid.UUID) (_ Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "logbook.submit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", id.String()))

	submitting, err := b.Update(id, Entry.BeginSubmit)
	if err != nil {
		return Entry{}, fmt.Errorf("begin submit: %w", err)
	}
	span.SetAttributes(attribute.String("entry.kind", submitting.Kind().String()))

	timestamp, submitErr := submitting.send(ctx, b.submitter, b.clock)
	if submitErr != nil {
		log.Errorf("log entry [%s] submission failed: %s", id, submitErr)
		span.SetAttributes(attribute.Bool("entry.submit.failed", true))
		b.countSubmission("failed")
	} else {
		log.Debugf("log entry [%s] submitted as %s@%d", id, submitting.Kind(), timestamp)
		b.countSubmission("submitted")
	}

	done, err := b.Update(id, func(e Entry) (Entry, error) {
		return e.CompleteSubmit(timestamp, submitErr), nil
	})
	if err != nil {
		// removed while in flight, the store outcome stands regardless
		log.Warnf("log entry [%s] gone before its submission completed: %s", id, err)
		return submitting.CompleteSubmit(timestamp, submitErr), nil
	}
	return done, nil
}

// SubmitAll concurrently submits every entry that can be submitted
// (typed, not yet submitted, or failed before).
func (b *Book) SubmitAll(ctx context.Context) []Entry {
	var ids []uuid.UUID
	for _, e := range b.Snapshot().Entries() {
		if e.editable() {
			ids = append(ids, e.ID())
		}
	}

	results := make([]Entry, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			entry, err := b.Submit(ctx, id)
			if err != nil {
				log.Warnf("submit all, entry [%s]: %s", id, err)
				entry, _ = b.Snapshot().Get(id)
			}
			results[i] = entry
		}(i, id)
	}
	wg.Wait()

	return results
}

func (b *Book) countSubmission(outcome string) {
	if b.metricsManager == nil {
		return
	}
	b.metricsManager.CounterSubmissions.WithLabelValues(outcome).Inc()
}
