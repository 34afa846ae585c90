package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/storage"
)

// recorder collects handler invocations for assertions.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, id)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestManagerProcessesItemsInOrder(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	q, err := New(ctx, store)
	require.NoError(t, err)

	var rec recorder
	m := NewManager(q, 10*time.Millisecond, 2)
	m.Register("describe", func(ctx context.Context, payload json.RawMessage) error {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		rec.record(body.ID)
		return nil
	})

	for _, id := range []string{"one", "two", "three"} {
		_, err := q.Enqueue(ctx, "describe", id, json.RawMessage(`{"id":"`+id+`"}`))
		require.NoError(t, err)
	}

	m.Start(ctx)
	defer m.Stop()

	waitFor(t, func() bool { return len(rec.snapshot()) == 3 })
	assert.Equal(t, []string{"one", "two", "three"}, rec.snapshot())
	assert.Equal(t, 0, q.Status("describe").QueuedCount)
}

func TestManagerRetriesFailedHandler(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	q, err := New(ctx, store)
	require.NoError(t, err)

	var rec recorder
	m := NewManager(q, 10*time.Millisecond, 2)
	m.Register("fetch", func(ctx context.Context, payload json.RawMessage) error {
		rec.record("attempt")
		return errors.New(errors.JobExecutionFailed, "always fails")
	})

	_, err = q.Enqueue(ctx, "fetch", "doomed", nil)
	require.NoError(t, err)

	m.Start(ctx)
	defer m.Stop()

	// The handler runs exactly MaxAttempts times before the item is
	// dropped.
	waitFor(t, func() bool { return len(rec.snapshot()) == MaxAttempts })
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.snapshot(), MaxAttempts)
	assert.Equal(t, 0, q.Status("fetch").QueuedCount)
	assert.Nil(t, q.Status("fetch").Processing)
}

func TestManagerCategoriesRunIndependently(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	q, err := New(ctx, store)
	require.NoError(t, err)

	release := make(chan struct{})
	var rec recorder

	m := NewManager(q, 10*time.Millisecond, 4)
	m.Register("slow", func(ctx context.Context, payload json.RawMessage) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		rec.record("slow")
		return nil
	})
	m.Register("fast", func(ctx context.Context, payload json.RawMessage) error {
		rec.record("fast")
		return nil
	})

	_, err = q.Enqueue(ctx, "slow", "s1", nil)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "fast", "f1", nil)
	require.NoError(t, err)

	m.Start(ctx)

	// The fast category finishes even while slow holds its worker.
	waitFor(t, func() bool {
		calls := rec.snapshot()
		return len(calls) == 1 && calls[0] == "fast"
	})

	close(release)
	waitFor(t, func() bool { return len(rec.snapshot()) == 2 })
	m.Stop()
}

func TestManagerStopWaitsForInFlight(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	q, err := New(ctx, store)
	require.NoError(t, err)

	started := make(chan struct{})
	var finished bool
	var mu sync.Mutex

	m := NewManager(q, 10*time.Millisecond, 1)
	m.Register("describe", func(ctx context.Context, payload json.RawMessage) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return nil
	})

	_, err = q.Enqueue(ctx, "describe", "a", nil)
	require.NoError(t, err)

	m.Start(ctx)
	<-started
	m.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, finished, "Stop should wait for the running handler")
}
