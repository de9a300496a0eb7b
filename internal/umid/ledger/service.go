package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// Service fronts the ledger store and fans appended entries out to the
// optional security-event sink. The store write is authoritative; the sink is
// best effort and never blocks or fails an append.
type Service struct {
	store  Store
	sink   chan<- models.AccessLogEntry
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEventSink wires a channel consumed by the security-event worker. Sends
// are non-blocking; a full sink drops the event (the store already holds the
// authoritative copy).
func WithEventSink(sink chan<- models.AccessLogEntry) Option {
	return func(s *Service) { s.sink = sink }
}

// New constructs a ledger service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	svc := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Append writes one entry. A store failure is escalated as StoreUnavailable
// and must abort the surrounding authentication attempt.
func (s *Service) Append(ctx context.Context, entry *models.AccessLogEntry) (id.EntryID, error) {
	entryID, err := s.store.Append(ctx, entry)
	if err != nil {
		return id.EntryID{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to append access log entry")
	}

	if s.sink != nil {
		select {
		case s.sink <- *entry:
		default:
			s.logger.WarnContext(ctx, "security event sink full, dropping event",
				"entry_id", entry.ID.String(),
				"identity_id", entry.IdentityID.String(),
			)
		}
	}
	return entryID, nil
}

// ListByIdentity returns one reverse-chronological page of an identity's
// access history.
func (s *Service) ListByIdentity(ctx context.Context, identityID id.IdentityID, pageSize int, cursor string) (*Page, error) {
	page, err := s.store.ListByIdentity(ctx, identityID, pageSize, cursor)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to list access history")
	}
	return page, nil
}
