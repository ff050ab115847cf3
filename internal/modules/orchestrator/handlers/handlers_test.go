package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/modules/circuit"
	"github.com/quantalab/quanta/internal/modules/decomposer"
	"github.com/quantalab/quanta/internal/modules/interpreter"
	"github.com/quantalab/quanta/internal/modules/orchestrator"
	"github.com/quantalab/quanta/internal/queue"
	qtesting "github.com/quantalab/quanta/internal/testing"
)

func setupTestHandler(t *testing.T) (*Handler, *qtesting.MockExecutor, func()) {
	t.Helper()

	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, cleanupDB := qtesting.NewTestDB(t, "jobs")
	store := queue.NewStore(db, logger)
	em := events.NewManager(events.NewBus(logger), logger)
	executor := qtesting.NewMockExecutor()

	service := queue.NewService(store, qtesting.NewMockBackendSelector("qasm_simulator"), executor, em, queue.Config{Workers: 2}, logger)
	require.NoError(t, service.Open())

	orch := orchestrator.New(
		decomposer.New(),
		circuit.New(rand.New(rand.NewSource(1))),
		service,
		interpreter.New(nil, logger),
		em,
		256,
		logger,
	)

	handler := NewHandler(orch, service, logger)
	return handler, executor, func() {
		service.Close()
		cleanupDB()
	}
}

func postSolve(t *testing.T, handler *Handler, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/hybrid/solve", bytes.NewReader(bodyBytes))
	w := httptest.NewRecorder()
	handler.HandleSolve(w, req)
	return w
}

func TestHandleSolveQuantumProblem(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	w := postSolve(t, handler, map[string]interface{}{
		"description": "find the optimal route between 5 cities",
		"data": map[string]interface{}{
			"cities": []string{"a", "b", "c", "d", "e"},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.NotEmpty(t, response["problemId"])
	assert.Equal(t, true, response["isQuantumAdvantage"])
	assert.Contains(t, response, "quantumSolution")
	assert.Contains(t, response, "classicalSolution")
	assert.Contains(t, response, "executionTime")
}

func TestHandleSolveClassicalProblem(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	w := postSolve(t, handler, map[string]interface{}{
		"description": "say hello",
		"data":        map[string]interface{}{"text": "hello"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.Equal(t, false, response["isQuantumAdvantage"])
	assert.NotContains(t, response, "quantumSolution")
}

func TestHandleSolveMissingFields(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing description", map[string]interface{}{"data": map[string]interface{}{}}},
		{"missing data", map[string]interface{}{"description": "factor 15"}},
		{"empty body", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSolve(t, handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Contains(t, response, "error")
			assert.Contains(t, response, "message")
		})
	}
}

func TestHandleSolveInvalidJSON(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	req := httptest.NewRequest("POST", "/api/hybrid/solve", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.HandleSolve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSolvePipelineFailure(t *testing.T) {
	handler, executor, cleanup := setupTestHandler(t)
	defer cleanup()

	executor.SetError(assert.AnError)

	w := postSolve(t, handler, map[string]interface{}{
		"description": "find the prime factors of 15",
		"data":        map[string]interface{}{"number": 15},
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "pipeline_failure", response["error"])
	assert.NotEmpty(t, response["message"])
}

func TestHandleGetJob(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	// Solve first so a job exists
	w := postSolve(t, handler, map[string]interface{}{
		"description": "search the database for a marked entry",
		"data":        map[string]interface{}{"databaseSize": 16},
	})
	require.Equal(t, http.StatusOK, w.Code)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	// Unknown job id
	req := httptest.NewRequest("GET", "/api/hybrid/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterRoutes(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := chi.NewRouter()

	assert.NotPanics(t, func() {
		handler.RegisterRoutes(router)
	}, "RegisterRoutes should not panic")
}
