package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompterlab/fedopt/pkg/fpo"
	"github.com/prompterlab/fedopt/pkg/queue"
	"github.com/prompterlab/fedopt/pkg/storage"
)

func newTestServer(t *testing.T) (*server, *queue.Queue, fpo.PopulationStore) {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	popStore := fpo.NewStore(store)
	q, err := queue.New(ctx, store)
	require.NoError(t, err)

	seeds := []fpo.Seed{{Name: "base", Text: "Describe the sample."}}
	require.NoError(t, popStore.Save(ctx, fpo.NewSeedPopulation(seeds, []string{"general"})))

	return &server{
		service:        fpo.NewService(nil, popStore),
		queue:          q,
		defaultCadence: 3,
	}, q, popStore
}

func TestRunFPOEndpointEnqueues(t *testing.T) {
	s, q, _ := newTestServer(t)
	router := newRouter(s)

	body := `{"iterations": 5}`
	req := httptest.NewRequest(http.MethodPost, "/run-fpo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		ID       string `json:"id"`
		Position int    `json:"position"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, resp.Position)

	item, err := q.Dequeue(context.Background(), fpo.QueueCategory)
	require.NoError(t, err)
	require.NotNil(t, item)

	var payload fpo.RunRequest
	require.NoError(t, json.Unmarshal(item.Payload, &payload))
	assert.Equal(t, 5, payload.Iterations)
	// Omitted cadence falls back to the configured default.
	assert.Equal(t, 3, payload.EvolutionEvery)
}

func TestRunFPOEndpointIdempotent(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := newRouter(s)

	submit := func() (string, int) {
		req := httptest.NewRequest(http.MethodPost, "/run-fpo", strings.NewReader(`{"iterations": 5}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusAccepted, w.Code)

		var resp struct {
			ID       string `json:"id"`
			Position int    `json:"position"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.ID, resp.Position
	}

	id1, pos1 := submit()
	id2, pos2 := submit()
	assert.Equal(t, id1, id2)
	assert.Equal(t, pos1, pos2)
	assert.Equal(t, 1, s.queue.Status(fpo.QueueCategory).QueuedCount)
}

func TestRunFPOEndpointRejectsBadRequest(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := newRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/run-fpo", strings.NewReader(`{"iterations": 0}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFPOStatusEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := newRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/fpo-status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report fpo.StatusReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.PopulationSize)
	assert.NotEmpty(t, report.BestID)
}

func TestQueueStatusEndpoint(t *testing.T) {
	s, q, _ := newTestServer(t)
	router := newRouter(s)

	_, err := q.Enqueue(context.Background(), "describe", "job-1", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/queue-status?category=describe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var snap queue.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.QueuedCount)
}
