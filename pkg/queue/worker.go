package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/prompterlab/fedopt/pkg/logging"
)

// Handler processes one dequeued item. A non-nil error sends the item
// through the queue's bounded-retry path.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Manager polls the queue and drives one sequential worker loop per
// registered category. Categories run concurrently with each other (up
// to the concurrency bound) while items within a category stay strictly
// serial, matching the queue's single-in-flight guarantee.
type Manager struct {
	queue         *Queue
	pollInterval  time.Duration
	maxConcurrent int
	logger        *logging.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewManager(q *Queue, pollInterval time.Duration, maxConcurrent int) *Manager {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		queue:         q,
		pollInterval:  pollInterval,
		maxConcurrent: maxConcurrent,
		logger:        logging.GetLogger(),
		handlers:      make(map[string]Handler),
	}
}

// Register binds a handler to a category. Must be called before Start.
func (m *Manager) Register(category string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[category] = h
}

// Start launches the per-category worker loops and returns immediately.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	handlers := make(map[string]Handler, len(m.handlers))
	for category, h := range m.handlers {
		handlers[category] = h
	}
	m.mu.Unlock()

	go func() {
		defer close(m.done)

		p := pool.New().WithMaxGoroutines(m.maxConcurrent)
		for category, h := range handlers {
			p.Go(func() {
				m.runCategory(ctx, category, h)
			})
		}
		p.Wait()
	}()
}

// Stop cancels the worker loops and waits for in-flight handlers to
// finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// runCategory drains the category whenever the poll ticker fires, one
// item at a time.
func (m *Manager) runCategory(ctx context.Context, category string, h Handler) {
	m.logger.Info(ctx, "worker started for category %q", category)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info(ctx, "worker stopped for category %q", category)
			return
		case <-ticker.C:
			m.drain(ctx, category, h)
		}
	}
}

func (m *Manager) drain(ctx context.Context, category string, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		item, err := m.queue.Dequeue(ctx, category)
		if err != nil {
			m.logger.Error(ctx, "dequeue failed for category %q: %v", category, err)
			return
		}
		if item == nil {
			return
		}

		handlerErr := h(ctx, item.Payload)
		if err := m.queue.Complete(ctx, category, handlerErr == nil, handlerErr); err != nil {
			m.logger.Error(ctx, "failed to complete item %s in category %q: %v", item.ID, category, err)
			return
		}
	}
}
