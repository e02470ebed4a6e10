package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfperdi/parishliturgyplanner/internal/activity"
	"github.com/mfperdi/parishliturgyplanner/internal/automation"
	"github.com/mfperdi/parishliturgyplanner/internal/event"
	"github.com/mfperdi/parishliturgyplanner/internal/eventbus"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/schema"
	"github.com/mfperdi/parishliturgyplanner/internal/session"
)

type testServer struct {
	*httptest.Server
	store *record.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)

	store := record.NewMemoryStore()
	store.Seed(automation.VolunteersCollection,
		record.Values{"V-001", "Ana", "Ruiz", "Ana Ruiz", "", "", "", "", "", "Active", "", "", ""},
	)
	store.Seed(automation.TimeoffsCollection,
		record.Values{"Ana Ruiz", "Not Available", "2025-03-01", "2025-03-08", "", "Pending", "", ""},
		record.Values{"Ghost", "Not Available", "2025-03-02", "2025-03-02", "", "Pending", "", ""},
	)
	store.Seed("Config",
		record.Values{"maxAssignmentsPerMonth", "10"},
		record.Values{"sendReminders", "yes"},
	)
	local := automation.NewLocal(store, reg, zerolog.Nop())

	hub := eventbus.NewHub()
	acts := activity.NewMemoryStore()
	indexer := activity.NewIndexer(acts)
	pub := event.PublisherFunc(func(ctx context.Context, evt event.DomainEvent) {
		_ = hub.HandleEvent(ctx, evt)
		_ = indexer.HandleEvent(ctx, evt)
	})

	sessions := session.NewManager(session.Deps{
		Registry:  reg,
		Store:     store,
		Backend:   local,
		Actions:   local,
		Publisher: pub,
		Log:       zerolog.Nop(),
	}, time.Hour, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Logging(zerolog.Nop()))
	New(reg, sessions, acts, hub, zerolog.Nop()).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *testServer) session(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, status)
	return "/api/v1/sessions/" + body["id"].(string)
}

func TestSchemaRoutes(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/api/v1/schema", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["entities"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/schema/Volunteers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Volunteers", body["id"])

	status, _ = srv.do(t, http.MethodGet, "/api/v1/schema/Parishioners", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, http.MethodGet, "/api/v1/sessions/nope/workflow", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])
}

func TestRecords_CreateAndValidation(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, body := srv.do(t, http.MethodPost, base+"/records/Volunteers", map[string]any{
		"values": map[string]any{"firstName": "Luis"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, "Volunteer ID is required", fields["0"])
	assert.NotNil(t, body["form"])

	status, body = srv.do(t, http.MethodPost, base+"/records/Volunteers", map[string]any{
		"values": map[string]any{"volunteerId": "V-002", "firstName": "Luis", "lastName": "Ortega"},
	})
	require.Equal(t, http.StatusCreated, status)
	rows := body["rows"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "Luis Ortega", rows[1].([]any)[3])

	status, body = srv.do(t, http.MethodPut, base+"/records/Volunteers/0", map[string]any{
		"values": map[string]any{"fullName": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_FIELD", body["code"])

	status, body = srv.do(t, http.MethodDelete, base+"/records/Volunteers/9", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "STALE_ROW", body["code"])
}

func TestRecords_Form(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, body := srv.do(t, http.MethodGet, base+"/records/Timeoffs/form", nil)
	require.Equal(t, http.StatusOK, status)
	fields := body["fields"].([]any)
	first := fields[0].(map[string]any)
	assert.Equal(t, "volunteerName", first["key"])
	assert.Equal(t, []any{"Ana Ruiz"}, first["options"])

	status, body = srv.do(t, http.MethodGet, base+"/records/Timeoffs/form?row=1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["row"])
}

func TestSettings_SaveChangedRows(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, _ := srv.do(t, http.MethodGet, base+"/settings", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := srv.do(t, http.MethodPut, base+"/settings", map[string]any{
		"edits": map[string]string{"0": "10", "1": "no"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{float64(1)}, body["changed"])

	rows, err := srv.store.Read(context.Background(), "Config")
	require.NoError(t, err)
	assert.Equal(t, "no", rows[1][1])
}

func TestSettings_SaveBeforeLoadAndUnknownRow(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, body := srv.do(t, http.MethodPut, base+"/settings", map[string]any{
		"edits": map[string]string{"1": "no"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{float64(1)}, body["changed"])

	status, body = srv.do(t, http.MethodPut, base+"/settings", map[string]any{
		"edits": map[string]string{"7": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "UNKNOWN_ROW", body["code"])
}

func TestWorkflow_Steps(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, body := srv.do(t, http.MethodPost, base+"/workflow/steps/3/run", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NO_PERIOD", body["code"])

	status, _ = srv.do(t, http.MethodPut, base+"/workflow/period", map[string]string{"period": "March"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = srv.do(t, http.MethodPut, base+"/workflow/period", map[string]string{"period": "2025-03"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2025-03", body["period"])

	status, body = srv.do(t, http.MethodPost, base+"/workflow/steps/2/run", nil)
	require.Equal(t, http.StatusOK, status)
	report := body["report"].(map[string]any)
	assert.NotEmpty(t, report["summary"])

	status, body = srv.do(t, http.MethodPost, base+"/workflow/steps/1/run", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "REMOTE_FAILURE", body["code"])
	assert.Equal(t, "generateCalendar is not available without an automation endpoint", body["error"])

	_, body = srv.do(t, http.MethodGet, base+"/workflow", nil)
	steps := body["steps"].([]any)
	assert.Equal(t, "error", steps[0].(map[string]any)["status"])

	status, body = srv.do(t, http.MethodPost, base+"/workflow/steps/5/run", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NOT_TRIGGERED", body["code"])

	status, _ = srv.do(t, http.MethodPost, base+"/workflow/steps/9/run", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestApprovals_RejectFlow(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	status, body := srv.do(t, http.MethodPost, base+"/approvals/fetch", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NO_PERIOD", body["code"])

	status, body = srv.do(t, http.MethodPost, base+"/approvals/fetch", map[string]string{"period": "2025-03"})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["items"], 2)

	status, body = srv.do(t, http.MethodPost, base+"/approvals/1/reject", map[string]string{"note": "unknown volunteer"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "REJECT_NOT_STARTED", body["code"])

	status, body = srv.do(t, http.MethodPost, base+"/approvals/1/reject/start", nil)
	require.Equal(t, http.StatusOK, status)
	item := body["items"].([]any)[1].(map[string]any)
	assert.Equal(t, true, item["rejecting"])

	status, body = srv.do(t, http.MethodPost, base+"/approvals/1/reject", map[string]string{"note": "unknown volunteer"})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, _ = srv.do(t, http.MethodPost, base+"/approvals/7/approve", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = srv.do(t, http.MethodPost, base+"/approvals/bulk-approve", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["approved"])
	assert.Empty(t, body["items"])

	_, body = srv.do(t, http.MethodGet, base+"/workflow", nil)
	steps := body["steps"].([]any)
	assert.Equal(t, "complete", steps[4].(map[string]any)["status"])
}

func TestActivity_SessionScoped(t *testing.T) {
	srv := newTestServer(t)
	a, b := srv.session(t), srv.session(t)

	srv.do(t, http.MethodPut, a+"/workflow/period", map[string]string{"period": "2025-03"})
	srv.do(t, http.MethodPut, b+"/workflow/period", map[string]string{"period": "2025-04"})

	status, body := srv.do(t, http.MethodGet, a+"/activity", nil)
	require.Equal(t, http.StatusOK, status)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "Period 2025-03 selected", entries[0].(map[string]any)["summary"])

	status, body = srv.do(t, http.MethodGet, "/api/v1/activity?categories=workflow", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])
}

func TestActivity_SummaryEscalatesRepeatedFailures(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	for range 3 {
		status, _ := srv.do(t, http.MethodPost, base+"/workflow/steps/1/run", nil)
		require.Equal(t, http.StatusBadGateway, status)
	}

	status, body := srv.do(t, http.MethodGet, base+"/activity/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "attention", body["health"])
	escalations := body["escalations"].([]any)
	require.Len(t, escalations, 1)
	rule := escalations[0].(map[string]any)["rule"].(map[string]any)
	assert.Equal(t, "repeated_step_failures", rule["id"])

	workflow := body["categories"].(map[string]any)["workflow"].(map[string]any)
	assert.Equal(t, float64(6), workflow["count"])
}

func TestEvents_StreamSessionEvents(t *testing.T) {
	srv := newTestServer(t)
	base := srv.session(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + base + "/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "session", msg.Type)

	srv.do(t, http.MethodPut, base+"/workflow/period", map[string]string{"period": "2025-03"})

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "event", msg.Type)
	var evt event.DomainEvent
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	assert.Equal(t, event.TypePeriodSelected, evt.EventType)

	conn.Close(websocket.StatusNormalClosure, "")
}
