package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

// Producer is the subset of the franz-go client the publisher needs, kept as
// an interface so unit tests can swap in a fake.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Publisher emits appended ledger entries to a Kafka topic for the
// integrating platform's SIEM pipeline. Delivery is asynchronous and
// best effort: the ledger store is the source of truth, the topic is a feed.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewPublisher constructs a publisher for the given topic.
func NewPublisher(producer Producer, topic string, logger *slog.Logger) (*Publisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("kafka producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}, nil
}

// securityEvent is the JSON payload published per ledger entry.
type securityEvent struct {
	EntryID       string    `json:"entry_id"`
	IdentityID    string    `json:"identity_id"`
	StaffID       string    `json:"staff_id"`
	DeclaredRole  string    `json:"declared_role"`
	Purpose       string    `json:"purpose"`
	AttemptedAt   time.Time `json:"attempted_at"`
	AccessType    string    `json:"access_type"`
	Outcome       string    `json:"outcome"`
	FailureReason string    `json:"failure_reason,omitempty"`
}

// Publish produces one entry. Failures are logged, never propagated: the
// authoritative record is already in the ledger store.
func (p *Publisher) Publish(ctx context.Context, entry models.AccessLogEntry) {
	payload, err := json.Marshal(securityEvent{
		EntryID:       entry.ID.String(),
		IdentityID:    entry.IdentityID.String(),
		StaffID:       entry.StaffID.String(),
		DeclaredRole:  entry.DeclaredRole,
		Purpose:       entry.Purpose,
		AttemptedAt:   entry.AttemptedAt,
		AccessType:    string(entry.AccessType),
		Outcome:       string(entry.Outcome),
		FailureReason: string(entry.FailureReason),
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal security event", "error", err)
		return
	}

	record := &kgo.Record{
		Topic: p.topic,
		// Key by identity so per-identity event order survives partitioning.
		Key:   []byte(entry.IdentityID.String()),
		Value: payload,
	}
	p.producer.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to publish security event",
				"error", err,
				"entry_id", entry.ID.String(),
			)
		}
	})
}
