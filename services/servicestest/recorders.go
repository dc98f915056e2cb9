package servicestest

import (
	"context"
	"sync"

	"github.com/code-centre/tech-centre-api/model"
	"github.com/code-centre/tech-centre-api/services"
	"github.com/code-centre/tech-centre-api/services/events"
)

// Publisher keeps every published event
type Publisher struct {
	mu     sync.Mutex
	events []events.Event
}

var _ events.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *Publisher) Close() error { return nil }

// Types lists the published event types in order
func (p *Publisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// Notifier records every finance alert
type Notifier struct {
	mu     sync.Mutex
	alerts [][]model.Enrollment
}

var _ services.FinanceNotifier = (*Notifier)(nil)

func (n *Notifier) NotifyOrphanedEnrollments(_ context.Context, enrollments []model.Enrollment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, enrollments)
	return nil
}

// Alerts returns the enrollments of each alert sent so far
func (n *Notifier) Alerts() [][]model.Enrollment {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]model.Enrollment(nil), n.alerts...)
}
