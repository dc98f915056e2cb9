package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/slack-go/slack"
)

// FinanceNotifier alerts the finance team about settlement inconsistencies
type FinanceNotifier interface {
	NotifyOrphanedEnrollments(ctx context.Context, enrollments []model.Enrollment) error
}

// SlackNotifier posts finance alerts to an incoming webhook
type SlackNotifier struct {
	webhookURL string
	log        *slog.Logger
}

// NewSlackNotifier creates a notifier. An empty webhook URL makes every call a no-op.
func NewSlackNotifier(webhookURL string, log *slog.Logger) *SlackNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &SlackNotifier{webhookURL: webhookURL, log: log}
}

func (n *SlackNotifier) NotifyOrphanedEnrollments(ctx context.Context, enrollments []model.Enrollment) error {
	if n.webhookURL == "" || len(enrollments) == 0 {
		return nil
	}

	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":warning: %d enrollment(s) had no invoices and were cancelled", len(enrollments)),
		Attachments: []slack.Attachment{
			{
				Color: "warning",
				Text:  orphanSummary(enrollments),
			},
		},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		n.log.Error("failed to post finance alert", slog.Any("error", err))
		return err
	}
	return nil
}

func orphanSummary(enrollments []model.Enrollment) string {
	var b strings.Builder
	for _, e := range enrollments {
		fmt.Fprintf(&b, "• enrollment #%d student #%d cohort #%d total %s (created %s)\n",
			e.ID, e.StudentID, e.CohortID, FormatAmount(e.AgreedTotal), e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
