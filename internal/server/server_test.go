package server

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/config"
	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/modules/circuit"
	"github.com/quantalab/quanta/internal/modules/decomposer"
	"github.com/quantalab/quanta/internal/modules/interpreter"
	"github.com/quantalab/quanta/internal/modules/orchestrator"
	hybridhandlers "github.com/quantalab/quanta/internal/modules/orchestrator/handlers"
	"github.com/quantalab/quanta/internal/queue"
	qtesting "github.com/quantalab/quanta/internal/testing"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanupDB := qtesting.NewTestDB(t, "jobs")
	store := queue.NewStore(db, logger)
	bus := events.NewBus(logger)
	em := events.NewManager(bus, logger)

	service := queue.NewService(store, qtesting.NewMockBackendSelector("qasm_simulator"), qtesting.NewMockExecutor(), em, queue.Config{Workers: 2}, logger)
	require.NoError(t, service.Open())

	orch := orchestrator.New(
		decomposer.New(),
		circuit.New(rand.New(rand.NewSource(1))),
		service,
		interpreter.New(nil, logger),
		em,
		128,
		logger,
	)

	cfg := &config.Config{DataDir: t.TempDir(), Port: 0}

	srv := New(Config{
		Log:           logger,
		JobsDB:        db,
		Config:        cfg,
		Port:          0,
		DevMode:       true,
		EventBus:      bus,
		EventManager:  em,
		QueueService:  service,
		HybridHandler: hybridhandlers.NewHandler(orch, service, logger),
	})

	return srv, func() {
		service.Close()
		cleanupDB()
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "quanta", response["service"])
}

func TestRootEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "quanta", response["service"])
	assert.NotEmpty(t, response["endpoints"])
}

func TestSolveRoundTripThroughRouter(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	body, err := json.Marshal(map[string]interface{}{
		"description": "find the optimal route between 5 cities",
		"data": map[string]interface{}{
			"cities": []string{"a", "b", "c", "d", "e"},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/hybrid/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, true, response["isQuantumAdvantage"])

	// The job is then visible through the job endpoint
	problemID := response["problemId"].(string)
	assert.NotEmpty(t, problemID)
}

func TestQueueStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/queue/stats", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Contains(t, response, "data")
}

func TestSystemStatusEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "operational", response.Status)
	assert.NotNil(t, response.Queue)
}

func TestDatabaseStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/system/database/stats", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "jobs", response.Name)
}

func TestJobStreamUnknownJob(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/api/hybrid/jobs/no-such-job/stream", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusMonitorEmitsOnQueueChange(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	received := make(chan *events.Event, 4)
	defer srv.eventBus.Subscribe(events.SystemStatusChanged, func(event *events.Event) {
		select {
		case received <- event:
		default:
		}
	})()

	// First sample always reports
	srv.statusMonitor.checkStatus()

	select {
	case event := <-received:
		assert.Equal(t, events.SystemStatusChanged, event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a system status event")
	}

	// Unchanged queue depth does not re-emit
	srv.statusMonitor.checkStatus()
	select {
	case <-received:
		t.Fatal("unexpected second status event for unchanged queue")
	case <-time.After(100 * time.Millisecond):
	}
}
