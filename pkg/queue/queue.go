// Package queue implements a persistent, per-category FIFO job queue
// with single-in-flight enforcement and bounded retry. Long-running
// asynchronous work (fetch, describe, rate, fpo) is serialized through
// it; the fpo category in particular is what guarantees a single
// population writer at a time.
package queue

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
	"github.com/prompterlab/fedopt/pkg/storage"
)

const statePrefix = "queue:"

// MaxAttempts is the retry bound: an item that fails this many times is
// dropped from its queue and never processed again.
const MaxAttempts = 3

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Item is one unit of queued work. ID is the item's logical identity:
// re-enqueueing an ID already present in the category is a no-op.
type Item struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	QueuedAt  time.Time       `json:"queued_at"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	Status    Status          `json:"status"`
	Attempts  int             `json:"attempts"`
}

// categoryState is the persisted whole-document state of one category.
type categoryState struct {
	Items      []*Item `json:"items"`
	Processing *Item   `json:"processing,omitempty"`
}

// Snapshot is a read-only view of one category.
type Snapshot struct {
	Category    string `json:"category"`
	Processing  *Item  `json:"processing,omitempty"`
	QueuedCount int    `json:"queued_count"`
	Items       []Item `json:"items,omitempty"`
}

// Queue is the persistent job queue. Every mutation is written through
// to durable storage before it returns, so a restart resumes with all
// queued items intact.
type Queue struct {
	mu     sync.Mutex
	store  storage.Store
	states map[string]*categoryState
	logger *logging.Logger
}

// New loads all persisted category states. Items found mid-processing
// (the process died while a worker held them) are requeued at the head
// of their category so the work is not lost; their logical identity
// makes the repeat harmless.
func New(ctx context.Context, store storage.Store) (*Queue, error) {
	q := &Queue{
		store:  store,
		states: make(map[string]*categoryState),
		logger: logging.GetLogger(),
	}

	keys, err := store.List(ctx, statePrefix)
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		data, ok, err := store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var st categoryState
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.StorageUnavailable, "failed to decode queue state"),
				errors.Fields{"key": key})
		}

		category := strings.TrimPrefix(key, statePrefix)
		if st.Processing != nil {
			interrupted := st.Processing
			interrupted.Status = StatusQueued
			interrupted.StartedAt = nil
			st.Items = append([]*Item{interrupted}, st.Items...)
			st.Processing = nil
			q.logger.Warn(ctx, "requeued interrupted item %s at head of category %q", interrupted.ID, category)
		}
		q.states[category] = &st

		if err := q.persistLocked(ctx, category); err != nil {
			return nil, err
		}
	}

	return q, nil
}

func (q *Queue) state(category string) *categoryState {
	st, ok := q.states[category]
	if !ok {
		st = &categoryState{}
		q.states[category] = st
	}
	return st
}

// persistLocked writes one category's state. Callers must hold q.mu.
func (q *Queue) persistLocked(ctx context.Context, category string) error {
	data, err := json.Marshal(q.states[category])
	if err != nil {
		return errors.Wrap(err, errors.StorageUnavailable, "failed to encode queue state")
	}
	return q.store.Put(ctx, statePrefix+category, data)
}

// Enqueue appends an item unless its logical identity already exists in
// the category, in which case the existing position is returned. The
// queue never rejects work; backpressure is the returned position.
// Position 0 means the item is currently processing; queued items are
// numbered from 1.
func (q *Queue) Enqueue(ctx context.Context, category, id string, payload json.RawMessage) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.state(category)

	if st.Processing != nil && st.Processing.ID == id {
		return 0, nil
	}
	for i, item := range st.Items {
		if item.ID == id {
			return i + 1, nil
		}
	}

	st.Items = append(st.Items, &Item{
		ID:       id,
		Category: category,
		Payload:  payload,
		QueuedAt: time.Now(),
		Status:   StatusQueued,
	})

	if err := q.persistLocked(ctx, category); err != nil {
		st.Items = st.Items[:len(st.Items)-1]
		return 0, err
	}

	position := len(st.Items)
	q.logger.Info(ctx, "enqueued %s into category %q at position %d", id, category, position)
	return position, nil
}

// Dequeue pops the head of the category and marks it processing. It
// returns nil immediately when the queue is empty or the category
// already has an item in flight; this is the single admission-control
// gate guaranteeing at most one in-flight item per category.
func (q *Queue) Dequeue(ctx context.Context, category string) (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.state(category)
	if st.Processing != nil || len(st.Items) == 0 {
		return nil, nil
	}

	head := st.Items[0]
	st.Items = st.Items[1:]
	now := time.Now()
	head.Status = StatusProcessing
	head.StartedAt = &now
	st.Processing = head

	if err := q.persistLocked(ctx, category); err != nil {
		head.Status = StatusQueued
		head.StartedAt = nil
		st.Items = append([]*Item{head}, st.Items...)
		st.Processing = nil
		return nil, err
	}

	cp := *head
	return &cp, nil
}

// Complete clears the category's in-flight item. On failure the item's
// attempt count is incremented and, below the retry bound, the item is
// pushed back onto the tail for another attempt; at the bound it is
// dropped and logged as terminally failed. result is recorded for
// observability only.
func (q *Queue) Complete(ctx context.Context, category string, success bool, result interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := q.state(category)
	if st.Processing == nil {
		return errors.WithFields(
			errors.New(errors.InvalidInput, "no item processing in category"),
			errors.Fields{"category": category})
	}

	item := st.Processing
	st.Processing = nil

	if success {
		item.Status = StatusDone
		q.logger.Info(ctx, "completed %s in category %q: %v", item.ID, category, result)
	} else {
		item.Attempts++
		if item.Attempts < MaxAttempts {
			item.Status = StatusQueued
			item.StartedAt = nil
			st.Items = append(st.Items, item)
			q.logger.Warn(ctx, "item %s in category %q failed (attempt %d/%d), requeued: %v",
				item.ID, category, item.Attempts, MaxAttempts, result)
		} else {
			item.Status = StatusFailed
			q.logger.Error(ctx, "item %s in category %q terminally failed after %d attempts: %v",
				item.ID, category, item.Attempts, result)
		}
	}

	return q.persistLocked(ctx, category)
}

// Status returns a read-only snapshot of one category. It never mutates
// state.
func (q *Queue) Status(category string) Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked(category)
}

// StatusAll returns snapshots for every known category.
func (q *Queue) StatusAll() map[string]Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	all := make(map[string]Snapshot, len(q.states))
	for category := range q.states {
		all[category] = q.snapshotLocked(category)
	}
	return all
}

func (q *Queue) snapshotLocked(category string) Snapshot {
	snap := Snapshot{Category: category}
	st, ok := q.states[category]
	if !ok {
		return snap
	}

	if st.Processing != nil {
		cp := *st.Processing
		snap.Processing = &cp
	}
	snap.QueuedCount = len(st.Items)
	for _, item := range st.Items {
		snap.Items = append(snap.Items, *item)
	}
	return snap
}
