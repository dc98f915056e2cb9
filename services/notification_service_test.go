package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackNotifierPostsWebhook(t *testing.T) {
	var received slack.WebhookMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := services.NewSlackNotifier(srv.URL, discardLogger())
	err := n.NotifyOrphanedEnrollments(context.Background(), []model.Enrollment{
		{ID: 5, StudentID: 7, CohortID: 3, AgreedTotal: 1200000},
	})
	require.NoError(t, err)

	assert.Contains(t, received.Text, "1 enrollment(s)")
	require.Len(t, received.Attachments, 1)
	assert.Contains(t, received.Attachments[0].Text, "enrollment #5")
	assert.Contains(t, received.Attachments[0].Text, "1,200,000")
}

func TestSlackNotifierWithoutWebhookIsNoop(t *testing.T) {
	n := services.NewSlackNotifier("", nil)
	assert.NoError(t, n.NotifyOrphanedEnrollments(context.Background(), []model.Enrollment{{ID: 1}}))
}

func TestSlackNotifierReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := services.NewSlackNotifier(srv.URL, discardLogger())
	assert.Error(t, n.NotifyOrphanedEnrollments(context.Background(), []model.Enrollment{{ID: 1}}))
}
