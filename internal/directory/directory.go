// Package directory holds the most recently fetched set of messages.
//
// The directory keeps exactly one snapshot at a time. Every fetch replaces
// it wholesale and bumps a generation counter, so an id handed out from an
// older fetch can be recognised as stale instead of silently missing.
package directory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/mail-assistant/internal/model"
)

// ErrNotFound is returned when no message with the requested id exists in
// the current snapshot.
var ErrNotFound = errors.New("email not found")

// StaleError reports a lookup or update made against a snapshot that has
// since been replaced.
type StaleError struct {
	Expected uint64
	Current  uint64
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("email list is stale (generation %d, current %d); refresh and try again",
		e.Expected, e.Current)
}

// Is makes a StaleError match ErrNotFound.
func (e *StaleError) Is(target error) bool {
	return target == ErrNotFound
}

// IsStale reports whether err is, or wraps, a StaleError.
func IsStale(err error) bool {
	var se *StaleError
	return errors.As(err, &se)
}

// Snapshot is an immutable view of one fetch.
type Snapshot struct {
	Generation uint64
	FetchedAt  time.Time

	ids      []string
	messages map[string]model.Message
}

// Len returns the number of messages in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.ids)
}

// Messages returns copies of the snapshot's messages in fetch order.
func (s *Snapshot) Messages() []model.Message {
	out := make([]model.Message, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.messages[id])
	}
	return out
}

// Get returns a copy of the message with the given id.
func (s *Snapshot) Get(id string) (model.Message, bool) {
	msg, ok := s.messages[id]
	return msg, ok
}

// Directory owns the current snapshot. It is safe for concurrent use.
type Directory struct {
	mu  sync.RWMutex
	cur *Snapshot
	now func() time.Time
}

// New returns an empty directory at generation 0.
func New() *Directory {
	return &Directory{
		cur: &Snapshot{messages: map[string]model.Message{}},
		now: time.Now,
	}
}

// Replace discards the current snapshot and installs msgs as the new one,
// preserving their order. Duplicate ids keep the first occurrence.
func (d *Directory) Replace(msgs []model.Message) *Snapshot {
	next := &Snapshot{
		ids:      make([]string, 0, len(msgs)),
		messages: make(map[string]model.Message, len(msgs)),
	}
	for _, m := range msgs {
		if _, dup := next.messages[m.ID]; dup {
			continue
		}
		next.ids = append(next.ids, m.ID)
		next.messages[m.ID] = m
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	next.Generation = d.cur.Generation + 1
	next.FetchedAt = d.now()
	d.cur = next
	return next
}

// Current returns the current snapshot.
func (d *Directory) Current() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cur
}

// Lookup returns the message with the given id. When expected is non-zero
// and does not match the current generation, a StaleError is returned.
func (d *Directory) Lookup(id string, expected uint64) (model.Message, uint64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkGeneration(expected); err != nil {
		return model.Message{}, d.cur.Generation, err
	}

	msg, ok := d.cur.messages[id]
	if !ok {
		return model.Message{}, d.cur.Generation, fmt.Errorf("email %s: %w", id, ErrNotFound)
	}
	return msg, d.cur.Generation, nil
}

// Update applies fn to the message with the given id in generation gen.
// The change is rejected with a StaleError if the snapshot was replaced
// after gen was observed. Once a message is marked replied it stays so.
func (d *Directory) Update(gen uint64, id string, fn func(*model.Message)) (model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkGeneration(gen); err != nil {
		return model.Message{}, err
	}

	msg, ok := d.cur.messages[id]
	if !ok {
		return model.Message{}, fmt.Errorf("email %s: %w", id, ErrNotFound)
	}

	replied := msg.Replied
	fn(&msg)
	msg.ID = id
	msg.Replied = msg.Replied || replied

	// Snapshots handed out earlier stay untouched.
	messages := make(map[string]model.Message, len(d.cur.messages))
	for k, v := range d.cur.messages {
		messages[k] = v
	}
	messages[id] = msg

	d.cur = &Snapshot{
		Generation: d.cur.Generation,
		FetchedAt:  d.cur.FetchedAt,
		ids:        d.cur.ids,
		messages:   messages,
	}
	return msg, nil
}

func (d *Directory) checkGeneration(expected uint64) error {
	if expected != 0 && expected != d.cur.Generation {
		return &StaleError{Expected: expected, Current: d.cur.Generation}
	}
	return nil
}
