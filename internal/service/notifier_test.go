package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intentgate/internal/config"
	"intentgate/internal/domain"
	"intentgate/internal/parser"
	"intentgate/internal/testutil"
)

type recordingNotifier struct {
	events []*domain.ElevationEvent
}

func (n *recordingNotifier) NotifyElevation(_ context.Context, event *domain.ElevationEvent) error {
	n.events = append(n.events, event)
	return nil
}

func TestPipeline_NotifiesOnEscalation(t *testing.T) {
	cfg := config.Default()
	cfg.Policy.BudgetCeiling = 900
	cfg.Policy.ToleranceMargin = 150
	fix := newPipeline(t, cfg, []parser.Parser{
		canned("rules", true, "find_experts", "supply chain", testutil.WithBudget(1000)),
	})
	rec := &recordingNotifier{}
	fix.svc.(*pipelineService).notifier = rec

	result, err := fix.svc.Process(context.Background(), testRequest("find experts with budget 1000"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusPendingApproval, result.Status)

	require.Len(t, rec.events, 1)
	assert.Equal(t, result.Elevation.ID, rec.events[0].ID)
}

func TestPipeline_NoNotificationWithoutEscalation(t *testing.T) {
	cfg := config.Default()
	rec := &recordingNotifier{}

	completed := newPipeline(t, cfg, []parser.Parser{parser.NewRuleParser()})
	completed.svc.(*pipelineService).notifier = rec
	result, err := completed.svc.Process(context.Background(), testRequest("Find experts on machine learning"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, result.Status)

	rejected := newPipeline(t, cfg, []parser.Parser{
		canned("rules", true, "delete_database", "everything"),
	})
	rejected.svc.(*pipelineService).notifier = rec
	result, err = rejected.svc.Process(context.Background(), testRequest("delete the database"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, result.Status)

	assert.Empty(t, rec.events, "only the review queue pages anyone")
}

func TestWebhookNotifier_DeliversPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(config.Notify{WebhookURL: srv.URL, TimeoutMs: 5000}, nil)
	event := testutil.NewTestElevation(testutil.WithElevationReason("budget over ceiling"))
	require.NoError(t, notifier.NotifyElevation(context.Background(), event))

	assert.Equal(t, event.ID, got.ElevationID)
	assert.Equal(t, "budget over ceiling", got.Reason)
	assert.Equal(t, "find_experts", got.Action)
	assert.Contains(t, got.Text, "budget over ceiling")
}

func TestWebhookNotifier_ReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(config.Notify{WebhookURL: srv.URL, TimeoutMs: 5000}, nil)
	err := notifier.NotifyElevation(context.Background(), testutil.NewTestElevation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestLogNotifier_AnnouncesPendingReview(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	event := testutil.NewTestElevation(testutil.WithElevationReason("parser conflict"))
	require.NoError(t, notifier.NotifyElevation(context.Background(), event))

	line := buf.String()
	assert.Contains(t, line, "review_pending")
	assert.Contains(t, line, event.ID)
	assert.Contains(t, line, "parser conflict")
}
