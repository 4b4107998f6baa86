package logbook

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/2beens/gymlog/internal/workout"
)

var ErrEntryNotFound = errors.New("log entry not found")

// Mutation transforms one entry; see Entry.SetField, Entry.SelectType etc.
type Mutation func(Entry) (Entry, error)

// Collection is an ordered, immutable set of log entries. Every operation
// returns a new collection; entries not touched by an operation are carried
// over unchanged.
type Collection struct {
	entries []Entry
}

func NewCollection() Collection {
	return Collection{}
}

// Create appends a new Unset entry. Entry IDs are UUIDv7: time ordered and
// unique even when entries are created within the same clock tick.
func (c Collection) Create(now time.Time) (Collection, uuid.UUID) {
	id := uuid.Must(uuid.NewV7())

	entries := make([]Entry, len(c.entries), len(c.entries)+1)
	copy(entries, c.entries)
	entries = append(entries, newEntry(id, now))

	return Collection{entries: entries}, id
}

func (c Collection) indexOf(id uuid.UUID) int {
	for i := range c.entries {
		if c.entries[i].id == id {
			return i
		}
	}
	return -1
}

// UpdateEntry applies the mutation to exactly the entry with the given id.
// When the mutation fails the original collection is returned with the error.
func (c Collection) UpdateEntry(id uuid.UUID, mutation Mutation) (Collection, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return c, ErrEntryNotFound
	}

	original := c.entries[idx]
	updated, err := mutation(original)
	if err != nil {
		return c, err
	}
	// identity belongs to the collection, not to the mutation
	updated.id = original.id
	updated.createdAt = original.createdAt

	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	entries[idx] = updated

	return Collection{entries: entries}, nil
}

// Remove drops an entry explicitly; entries are never removed implicitly.
func (c Collection) Remove(id uuid.UUID) (Collection, error) {
	idx := c.indexOf(id)
	if idx < 0 {
		return c, ErrEntryNotFound
	}

	entries := make([]Entry, 0, len(c.entries)-1)
	entries = append(entries, c.entries[:idx]...)
	entries = append(entries, c.entries[idx+1:]...)

	return Collection{entries: entries}, nil
}

func (c Collection) Get(id uuid.UUID) (Entry, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// At returns the entry at a zero based position.
func (c Collection) At(i int) (Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return Entry{}, false
	}
	return c.entries[i], true
}

func (c Collection) Len() int {
	return len(c.entries)
}

func (c Collection) Entries() []Entry {
	entries := make([]Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// SetField is a Mutation setting one field; values that cannot be applied
// are ignored, as with Entry.SetField.
func SetField(field Field, value string) Mutation {
	return func(e Entry) (Entry, error) {
		return e.SetField(field, value), nil
	}
}

func SelectType(kind workout.Kind) Mutation {
	return func(e Entry) (Entry, error) {
		return e.SelectType(kind)
	}
}
