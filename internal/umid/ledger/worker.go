package ledger

import (
	"context"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

// Worker consumes appended ledger entries from a channel and hands them to
// the publisher. It keeps background processing testable without wiring a
// broker into unit tests.
type Worker struct {
	publisher *Publisher
	inbox     <-chan models.AccessLogEntry
}

// NewWorker constructs a worker draining inbox into the publisher.
func NewWorker(publisher *Publisher, inbox <-chan models.AccessLogEntry) *Worker {
	return &Worker{publisher: publisher, inbox: inbox}
}

// Run drains the inbox until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.publisher.Publish(ctx, entry)
		}
	}
}
