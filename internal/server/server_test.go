package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marklens/marklens/internal/config"
	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/engine"
)

func newTestServer(t *testing.T) (*Server, *Controller) {
	t.Helper()
	controller := NewController(core.NewRunState())
	srv := New(config.ServerConfig{Host: "localhost", Port: 0}, controller)
	return srv, controller
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = doRequest(t, srv, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"marklens"`)
}

func TestStatusSnapshot(t *testing.T) {
	srv, controller := newTestServer(t)
	events := engine.NewEvents()
	go controller.Watch(events)

	events.SetStatus("searching")
	events.PublishProgress(2, 5)
	events.EmitRecord(core.ConflictRecord{RecordID: "rec-1", Status: core.StatusConflict})

	require.Eventually(t, func() bool {
		var snap StatusSnapshot
		rec := doRequest(t, srv, http.MethodGet, "/run/status", "")
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		return snap.Status == "searching" && snap.Records == 1 && snap.Progress.Current == 2
	}, time.Second, 5*time.Millisecond)

	rec := doRequest(t, srv, http.MethodGet, "/run/records", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var records []core.ConflictRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "rec-1", records[0].RecordID)
}

func TestCaptchaImageNotFoundBeforePublish(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/run/captcha", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestCaptchaImageServedAfterPublish(t *testing.T) {
	srv, controller := newTestServer(t)
	events := engine.NewEvents()
	go controller.Watch(events)

	events.PublishCaptcha([]byte{0x89, 'P', 'N', 'G'})

	require.Eventually(t, func() bool {
		rec := doRequest(t, srv, http.MethodGet, "/run/captcha", "")
		return rec.Code == http.StatusOK && rec.Header().Get("Content-Type") == "image/png"
	}, time.Second, 5*time.Millisecond)
}

func TestCaptchaSubmit(t *testing.T) {
	srv, controller := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/run/captcha", `{"code":"12345"}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "no acquisition pending yet")

	controller.State.SetAwaitingCaptcha(true)
	rec = doRequest(t, srv, http.MethodPost, "/run/captcha", `{"code":"12345"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "12345", controller.State.PendingCaptcha())

	rec = doRequest(t, srv, http.MethodPost, "/run/captcha", `{"code":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/run/captcha", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPauseResumeStop(t *testing.T) {
	srv, controller := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/run/pause", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, controller.State.Paused())

	rec = doRequest(t, srv, http.MethodPost, "/run/resume", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, controller.State.Paused())

	rec = doRequest(t, srv, http.MethodPost, "/run/stop", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, controller.State.Running())
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = doRequest(t, srv, http.MethodDelete, "/run/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecordsCompleteAfterControllerDone(t *testing.T) {
	_, controller := newTestServer(t)
	events := engine.NewEvents()

	// The worker emits its last records and the completion signal before the
	// watcher gets scheduled at all; waiting on Done must still observe
	// every record.
	events.EmitRecord(core.ConflictRecord{RecordID: "rec-1", Status: core.StatusConflict})
	events.EmitRecord(core.ConflictRecord{RecordID: "rec-2", Status: core.StatusClean, Variant: core.SummaryVariant})
	events.Finish(core.RunSummary{RunID: "run-7", Names: 1, Approved: 1})

	go controller.Watch(events)

	select {
	case <-controller.Done():
	case <-time.After(time.Second):
		t.Fatal("controller never signalled completion")
	}

	records := controller.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "rec-1", records[0].RecordID)
	assert.Equal(t, "rec-2", records[1].RecordID)
}

func TestControllerRetainsSummaryAfterDone(t *testing.T) {
	srv, controller := newTestServer(t)
	events := engine.NewEvents()

	events.EmitRecord(core.ConflictRecord{RecordID: "rec-1", Status: core.StatusClean, Variant: core.SummaryVariant})
	events.Finish(core.RunSummary{RunID: "run-9", Names: 1, Approved: 1})

	controller.Watch(events)

	var snap StatusSnapshot
	rec := doRequest(t, srv, http.MethodGet, "/run/status", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Summary)
	assert.Equal(t, "run-9", snap.Summary.RunID)
	assert.Equal(t, 1, snap.Records, "buffered records drained on completion")
}
