package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatchpoint/clienthub/internal/billing"
	"github.com/hatchpoint/clienthub/internal/event"
	"github.com/hatchpoint/clienthub/internal/health"
	"github.com/hatchpoint/clienthub/internal/metrics"
	"github.com/hatchpoint/clienthub/internal/model"
	"github.com/hatchpoint/clienthub/internal/store"
)

type testEnv struct {
	app        *fiber.App
	store      *store.Store
	dispatcher *event.Dispatcher
}

func newTestEnv(t *testing.T, auth AuthConfig, opts Options) *testEnv {
	t.Helper()
	ds, err := store.New(filepath.Join(t.TempDir(), "api-test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	dispatcher := event.NewDispatcher(16, zerolog.Nop())
	checker := health.NewChecker(zerolog.Nop())
	h := NewHandlers(ds, dispatcher, checker, metrics.New(), opts, zerolog.Nop())
	srv := NewServer(ServerConfig{ListenAddr: ":0", Auth: auth}, h, zerolog.Nop())

	return &testEnv{app: srv.App(), store: ds, dispatcher: dispatcher}
}

func seedProject(t *testing.T, ds *store.Store) *model.Project {
	t.Helper()
	p, err := ds.CreateProject("Alpha Site", "Acme")
	require.NoError(t, err)

	approved := &model.Task{ProjectID: p.ID, Title: "Homepage", Status: model.StatusClientApproved, IsDeliverable: true}
	require.NoError(t, ds.SaveTask(approved))

	deferred := &model.Task{ProjectID: p.ID, Title: "Logo", Status: model.StatusBlocked, IsDeliverable: true}
	require.NoError(t, ds.SaveTask(deferred))
	require.NoError(t, ds.AppendStatusHistory(deferred.ID, model.StatusHistoryEntry{
		Status: model.StatusBlocked, Context: model.ContextBillingDeferment,
	}))

	review := &model.Task{ProjectID: p.ID, Title: "Brand book", Status: model.StatusReadyForReview, IsDeliverable: true}
	require.NoError(t, ds.SaveTask(review))

	require.NoError(t, ds.SaveChecklistItem(&model.ChecklistItem{ProjectID: p.ID, Label: "Final sign-off"}))
	return p
}

func decodeBody(t *testing.T, r io.Reader, v interface{}) {
	t.Helper()
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestProjectProgress(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})
	seedProject(t, env.store)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/projects/alpha-site/progress", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var sum billing.ProgressSummary
	decodeBody(t, resp.Body, &sum)
	assert.Equal(t, billing.ProgressSummary{
		Total:          3,
		Approved:       1,
		Blocked:        1,
		ReadyForReview: 1,
		Deferred:       1,
	}, sum)
}

func TestProjectReadiness(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})
	seedProject(t, env.store)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/projects/alpha-site/readiness", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var res billing.ReadinessResult
	decodeBody(t, resp.Body, &res)
	assert.False(t, res.Ready)
	assert.Equal(t, "1 deliverable awaiting approval", res.Summary)
	assert.Len(t, res.Deliverables, 3)
	assert.Len(t, res.PendingChecklists, 1)
	assert.Empty(t, res.PendingFiles)
}

func TestProjectUpcoming(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})
	seedProject(t, env.store)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/projects/alpha-site/upcoming", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Upcoming []billing.UpcomingDeliverable `json:"upcoming"`
	}
	decodeBody(t, resp.Body, &body)
	// Only the undated ready-for-review task qualifies.
	require.Len(t, body.Upcoming, 1)
	assert.Equal(t, "Brand book", body.Upcoming[0].Title)
}

func TestProjectEndpoints_NotFound(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})

	for _, path := range []string{
		"/api/v1/projects/nope/progress",
		"/api/v1/projects/nope/upcoming",
		"/api/v1/projects/nope/readiness",
		"/api/v1/projects/nope/invoices",
	} {
		resp, err := env.app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)
	}
}

func TestIngestEvent_Queued(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})

	var received event.Envelope
	done := make(chan struct{})
	env.dispatcher.Subscribe(func(env event.Envelope) {
		received = env
		close(done)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go env.dispatcher.Run(ctx)

	body := `{"type":"workflow.event","event":{"entity":"task","entityId":"t-9"}}`
	req := httptest.NewRequest("POST", "/api/v1/workflow/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	select {
	case <-done:
		assert.Equal(t, "t-9", received.Event.EntityID)
	case <-time.After(time.Second):
		t.Fatal("event never reached dispatcher")
	}
}

func TestIngestEvent_MalformedIgnored(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{})

	for _, body := range []string{`{broken`, `{"type":"presence.ping"}`, `{"type":"workflow.event"}`} {
		req := httptest.NewRequest("POST", "/api/v1/workflow/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode, "malformed events are acknowledged, not errored")

		var out map[string]string
		decodeBody(t, resp.Body, &out)
		assert.Equal(t, "ignored", out["status"])
	}
}

func TestIngestEvent_WebhookSecret(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "none"}, Options{WebhookSecret: "s3cret"})

	body := `{"type":"workflow.event","event":{"entity":"task","entityId":"t-1"}}`
	req := httptest.NewRequest("POST", "/api/v1/workflow/events", strings.NewReader(body))
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/workflow/events", strings.NewReader(body))
	req.Header.Set("X-Webhook-Secret", "s3cret")
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestAuth_APIKey(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "api-key", APIKey: "k1"}, Options{})
	seedProject(t, env.store)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/projects", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/projects", nil)
	req.Header.Set("Authorization", "Bearer k1")
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuth_ProbesOpen(t *testing.T) {
	env := newTestEnv(t, AuthConfig{Mode: "api-key", APIKey: "k1"}, Options{})

	resp, err := env.app.Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
