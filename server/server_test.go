package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/dqagent/intent"
	"github.com/c360studio/dqagent/nl2sql"
	"github.com/c360studio/dqagent/orchestrator"
	"github.com/c360studio/dqagent/rule/memory"
	"github.com/c360studio/dqagent/session"
	"github.com/c360studio/dqagent/warehouse"
)

var testTarget = warehouse.Target{ProjectID: "acme-analytics", DatasetID: "sales"}

type stubSchemas struct {
	err error
}

func (s stubSchemas) GetSchema(_ context.Context, target warehouse.Target) (*warehouse.Schema, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &warehouse.Schema{Target: target}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, nl2sql.Request) (string, error) {
	return "SELECT 1", nil
}

type stubValidator struct{}

func (stubValidator) Validate(context.Context, string, warehouse.Target) error { return nil }

type stubExecutor struct{}

func (stubExecutor) Execute(context.Context, string, warehouse.Target) (string, error) {
	return "ok", nil
}

func newTestServer(t *testing.T, schemas warehouse.SchemaProvider) *Server {
	t.Helper()
	store := memory.New()
	t.Cleanup(func() { store.Close() })

	sessions := session.NewManager(schemas, testTarget)
	orch := orchestrator.New(
		intent.NewKeywordRouter(),
		stubGenerator{},
		stubValidator{},
		stubExecutor{},
		store,
		sessions,
		orchestrator.DefaultConfig(),
	)
	return New(":0", orch, sessions, slog.Default())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, stubSchemas{})
	rec := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, stubSchemas{})
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var started struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.SessionID)

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", started.SessionID),
		map[string]string{"text": "Create a null check rule for orders.customer_id"})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply orchestrator.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.True(t, reply.PendingApproval)
	assert.Contains(t, reply.Text, "SELECT 1")

	rec = doJSON(t, h, http.MethodDelete, "/v1/sessions/"+started.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Turns to the ended session are rejected.
	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/v1/sessions/%s/turns", started.SessionID),
		map[string]string{"text": "approve"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSessionSchemaUnavailable(t *testing.T) {
	s := newTestServer(t, stubSchemas{err: errors.New("warehouse down")})
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/sessions", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "schema is unavailable")
}

func TestTurnUnknownSession(t *testing.T) {
	s := newTestServer(t, stubSchemas{})
	rec := doJSON(t, s.Handler(), http.MethodPost, "/v1/sessions/nope/turns",
		map[string]string{"text": "list all rules"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTurnBadBody(t *testing.T) {
	s := newTestServer(t, stubSchemas{})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/x/turns", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	s := newTestServer(t, stubSchemas{})
	rec := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
