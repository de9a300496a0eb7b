// Package credential orchestrates the medical identity credential lifecycle:
// issuance, one-time-code and emergency authentication, alerting,
// deactivation and access-history reads. Every authentication attempt that
// resolves to an identity leaves exactly one ledger entry.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/grant"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/identity"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/ledger"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/lockout"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/metrics"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/secrets"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/totp"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/sentinel"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/requestcontext"
)

// DefaultGrantTTL is the fixed lifetime of an issued grant. Not configurable
// per request.
const DefaultGrantTTL = 30 * time.Minute

var errLockedOut = dErrors.New(dErrors.CodeLockedOut, "identity is locked out")

// LockedOutError is returned for attempts against a locked identity. Unlike
// the other failure modes it is allowed to disclose the retry time.
type LockedOutError struct {
	Until time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("identity is locked out until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedOutError) Unwrap() error { return errLockedOut }

// Service is the credential orchestrator. Construct once per process and
// share; all dependencies are injected, there are no hidden singletons.
type Service struct {
	identities identity.Store
	ledger     *ledger.Service
	keeper     *secrets.Keeper
	grants     grant.Store
	engine     *totp.Engine
	locks      *identityLocks
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	grantTTL             time.Duration
	singleActiveIdentity bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics wires the Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithGrantTTL overrides the fixed grant lifetime at process start.
func WithGrantTTL(ttl time.Duration) Option {
	return func(s *Service) { s.grantTTL = ttl }
}

// WithSingleActiveIdentity enforces at most one active identity per patient.
// Off by default.
func WithSingleActiveIdentity(enabled bool) Option {
	return func(s *Service) { s.singleActiveIdentity = enabled }
}

// New constructs the credential service.
func New(identities identity.Store, ledgerSvc *ledger.Service, keeper *secrets.Keeper, grants grant.Store, opts ...Option) (*Service, error) {
	if identities == nil {
		return nil, errors.New("identity store is required")
	}
	if ledgerSvc == nil {
		return nil, errors.New("ledger service is required")
	}
	if keeper == nil {
		return nil, errors.New("secret keeper is required")
	}
	if grants == nil {
		return nil, errors.New("grant store is required")
	}
	svc := &Service{
		identities: identities,
		ledger:     ledgerSvc,
		keeper:     keeper,
		grants:     grants,
		engine:     totp.New(),
		locks:      newIdentityLocks(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("umid/credential"),
		grantTTL:   DefaultGrantTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue creates a new credential for a patient: fresh random seed, encrypted
// at rest, collision-checked public number. Pass nil overrides to use the
// defaults.
func (s *Service) Issue(ctx context.Context, patientID id.PatientID, data models.LinkedMedicalData, securityOverride *models.SecuritySettings) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Issue")
	defer span.End()

	now := requestcontext.Now(ctx)

	if s.singleActiveIdentity {
		_, err := s.identities.FindActiveByPatient(ctx, patientID)
		switch {
		case err == nil:
			return nil, dErrors.New(dErrors.CodeConflict, "patient already has an active identity")
		case errors.Is(err, sentinel.ErrNotFound):
			// No active identity, proceed.
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to check existing identities")
		}
	}

	security := models.DefaultSecuritySettings()
	if securityOverride != nil {
		security = *securityOverride
	}
	code := models.DefaultCodeSettings()

	rawSecret, err := secrets.GenerateSecret()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIssuanceFailure, "secret generation failed")
	}
	encrypted, err := s.keeper.Encrypt(rawSecret)
	if err != nil {
		return nil, err
	}

	created, err := identity.Create(ctx, s.identities, patientID, encrypted, data, security, code, now)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementIssued()
	}
	s.logger.InfoContext(ctx, "identity issued",
		"identity_id", created.ID.String(),
		"patient_id", patientID.String(),
	)
	return created, nil
}

// Authenticate runs one staff access attempt. Failures are typed errors;
// unknown-number and wrong-code failures carry the same external shape so
// callers cannot probe which public numbers exist. Attempts for the same
// identity are serialized.
func (s *Service) Authenticate(ctx context.Context, req models.AuthenticateRequest) (*models.AuthenticateResult, error) {
	ctx, span := s.tracer.Start(ctx, "credential.Authenticate")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Resolve the public number outside the lock; an unknown number has no
	// identity to serialize on or write a ledger row for.
	found, err := s.identities.FindByPublicNumber(ctx, req.PublicNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordAttempt(string(models.OutcomeFailure), string(models.ReasonUnknownOrInactive))
			s.logger.WarnContext(ctx, "authentication attempt against unknown public number",
				"staff_id", req.StaffID.String(),
			)
			return nil, dErrors.New(dErrors.CodeUnknownOrInactive, "authentication failed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to look up identity")
	}

	release, err := s.locks.acquire(ctx, found.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "authentication canceled")
	}
	defer release()

	// Re-read under the lock so concurrent attempts observe each other's
	// lockout transitions.
	ident, err := s.identities.FindByID(ctx, found.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to look up identity")
	}

	now := requestcontext.Now(ctx)

	if !ident.IsActive {
		if err := s.logAttempt(ctx, ident, req, models.OutcomeFailure, models.ReasonUnknownOrInactive, nil, now); err != nil {
			return nil, err
		}
		return nil, dErrors.New(dErrors.CodeUnknownOrInactive, "authentication failed")
	}

	if decision := lockout.Evaluate(ident.Lockout, now); decision.Locked {
		// Rejected before any code comparison; does not touch the counter.
		if err := s.logAttempt(ctx, ident, req, models.OutcomeFailure, models.ReasonLockedOut, nil, now); err != nil {
			return nil, err
		}
		return nil, &LockedOutError{Until: decision.Until}
	}

	if !req.EmergencyOverride {
		rawSecret, err := s.keeper.Decrypt(ident.EncryptedSecret)
		if err != nil {
			// Fails closed. No ledger reason exists for crypto faults; the
			// error log is the trail here.
			s.logger.ErrorContext(ctx, "secret decryption failed",
				"identity_id", ident.ID.String(),
				"error", err,
			)
			return nil, err
		}
		if !s.engine.Verify(rawSecret, req.SuppliedCode, now, ident.CodeSettings) {
			return nil, s.failInvalidCode(ctx, ident, req, now)
		}
	}

	return s.succeed(ctx, ident, req, now)
}

// failInvalidCode records a wrong-code failure and advances the lockout
// state. The ledger append comes first: if it fails the whole attempt aborts
// with no state change.
func (s *Service) failInvalidCode(ctx context.Context, ident *models.Identity, req models.AuthenticateRequest, now time.Time) error {
	if err := s.logAttempt(ctx, ident, req, models.OutcomeFailure, models.ReasonInvalidCode, nil, now); err != nil {
		return err
	}

	next := lockout.ApplyFailure(ident.Lockout, ident.SecuritySettings, now)
	if err := s.identities.UpdateLockout(ctx, ident.ID, next); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to update lockout state")
	}
	if next.LockedUntil != nil && ident.Lockout.LockedUntil == nil {
		if s.metrics != nil {
			s.metrics.IncrementLockouts()
		}
		s.logger.WarnContext(ctx, "identity locked out",
			"identity_id", ident.ID.String(),
			"locked_until", next.LockedUntil.UTC().Format(time.RFC3339),
		)
	}
	return dErrors.New(dErrors.CodeInvalidCode, "authentication failed")
}

// succeed logs the success entry, resets the lockout counter and issues the
// grant with the filtered medical data.
func (s *Service) succeed(ctx context.Context, ident *models.Identity, req models.AuthenticateRequest, now time.Time) (*models.AuthenticateResult, error) {
	disclosed := ident.ActiveMedicalData(now)
	fields := disclosed.DisclosedFields()

	if err := s.logAttempt(ctx, ident, req, models.OutcomeSuccess, "", fields, now); err != nil {
		return nil, err
	}

	if ident.Lockout.ConsecutiveFailures > 0 || ident.Lockout.LockedUntil != nil {
		if err := s.identities.UpdateLockout(ctx, ident.ID, lockout.ApplySuccess()); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to reset lockout state")
		}
	}

	level := models.GrantLevelFull
	if req.EmergencyOverride {
		level = models.GrantLevelEmergency
		if s.metrics != nil {
			s.metrics.IncrementEmergencyOverrides()
		}
	}
	issued, err := grant.Issue(ctx, s.grants, ident.ID, req.StaffID, level, s.grantTTL, now)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "access granted",
		"identity_id", ident.ID.String(),
		"staff_id", req.StaffID.String(),
		"access_level", string(level),
	)
	return &models.AuthenticateResult{Grant: *issued, MedicalData: disclosed}, nil
}

// logAttempt appends exactly one ledger entry for the attempt and records the
// attempt metric. An append failure aborts the caller.
func (s *Service) logAttempt(ctx context.Context, ident *models.Identity, req models.AuthenticateRequest, outcome models.AccessOutcome, reason models.FailureReason, disclosed []string, now time.Time) error {
	entry, err := models.NewAccessLogEntry(ident.ID, req, outcome, reason, disclosed, now)
	if err != nil {
		return err
	}
	start := time.Now()
	if _, err := s.ledger.Append(ctx, entry); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveLedgerAppend(time.Since(start).Seconds())
	}
	s.recordAttempt(string(outcome), string(reason))
	return nil
}

func (s *Service) recordAttempt(outcome, reason string) {
	if s.metrics != nil {
		s.metrics.RecordAttempt(outcome, reason)
	}
}

// AddAlert attaches a medical alert to an identity. An expiry already in the
// past is rejected with InvalidAlert.
func (s *Service) AddAlert(ctx context.Context, identityID id.IdentityID, severity models.AlertSeverity, message string, expiresAt *time.Time) (*models.Alert, error) {
	ctx, span := s.tracer.Start(ctx, "credential.AddAlert")
	defer span.End()

	now := requestcontext.Now(ctx)
	alert, err := models.NewAlert(severity, message, expiresAt, now)
	if err != nil {
		return nil, err
	}

	ident, err := s.findIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}

	data := ident.MedicalData
	data.MedicalAlerts = append(data.MedicalAlerts, *alert)
	if err := s.identities.UpdateMedicalData(ctx, identityID, data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to store alert")
	}
	return alert, nil
}

// ActiveAlerts returns the identity's unexpired alerts, most recent first.
// Expired alerts are filtered, never purged.
func (s *Service) ActiveAlerts(ctx context.Context, identityID id.IdentityID) ([]models.Alert, error) {
	ident, err := s.findIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return ident.ActiveMedicalData(requestcontext.Now(ctx)).MedicalAlerts, nil
}

// UpdateMedicalData applies a partial update to the linked medical data.
func (s *Service) UpdateMedicalData(ctx context.Context, identityID id.IdentityID, patch models.MedicalDataPatch) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "credential.UpdateMedicalData")
	defer span.End()

	ident, err := s.findIdentity(ctx, identityID)
	if err != nil {
		return nil, err
	}
	data := ident.MedicalData
	patch.Apply(&data)
	if err := s.identities.UpdateMedicalData(ctx, identityID, data); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to update medical data")
	}
	ident.MedicalData = data
	return ident, nil
}

// Deactivate retires an identity. Idempotent; deactivating twice is a no-op.
func (s *Service) Deactivate(ctx context.Context, identityID id.IdentityID) error {
	ctx, span := s.tracer.Start(ctx, "credential.Deactivate")
	defer span.End()

	err := s.identities.Deactivate(ctx, identityID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to deactivate identity")
	}
	s.logger.InfoContext(ctx, "identity deactivated", "identity_id", identityID.String())
	return nil
}

// ListAccessHistory returns one reverse-chronological page of the identity's
// access ledger.
func (s *Service) ListAccessHistory(ctx context.Context, identityID id.IdentityID, pageSize int, cursor string) (*ledger.Page, error) {
	ctx, span := s.tracer.Start(ctx, "credential.ListAccessHistory")
	defer span.End()

	if _, err := s.findIdentity(ctx, identityID); err != nil {
		return nil, err
	}
	return s.ledger.ListByIdentity(ctx, identityID, pageSize, cursor)
}

// ValidateGrant resolves an opaque grant token for the integrating system.
// Expired or unknown tokens fail with NotFound.
func (s *Service) ValidateGrant(ctx context.Context, token string) (*models.Grant, error) {
	g, err := s.grants.Get(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "grant not found or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to resolve grant")
	}
	if g.IsExpired(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeNotFound, "grant not found or expired")
	}
	return g, nil
}

// RebuildLockout reconstructs the lockout snapshot from the ledger tail and
// persists it. Recovery path after a crash left the cached state stale.
func (s *Service) RebuildLockout(ctx context.Context, identityID id.IdentityID) (models.LockoutState, error) {
	ctx, span := s.tracer.Start(ctx, "credential.RebuildLockout")
	defer span.End()

	ident, err := s.findIdentity(ctx, identityID)
	if err != nil {
		return models.LockoutState{}, err
	}

	release, err := s.locks.acquire(ctx, identityID)
	if err != nil {
		return models.LockoutState{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "rebuild canceled")
	}
	defer release()

	// Walk the ledger newest-first until the most recent success; everything
	// beyond it cannot affect the counter.
	var entries []models.AccessLogEntry
	cursor := ""
	for {
		page, err := s.ledger.ListByIdentity(ctx, identityID, ledger.DefaultPageSize, cursor)
		if err != nil {
			return models.LockoutState{}, err
		}
		entries = append(entries, page.Entries...)
		if pageHasSuccess(page.Entries) || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	state := lockout.Rebuild(entries, ident.SecuritySettings)
	if err := s.identities.UpdateLockout(ctx, identityID, state); err != nil {
		return models.LockoutState{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to persist rebuilt lockout state")
	}
	return state, nil
}

func pageHasSuccess(entries []models.AccessLogEntry) bool {
	for _, e := range entries {
		if e.Outcome == models.OutcomeSuccess {
			return true
		}
	}
	return false
}

func (s *Service) findIdentity(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	ident, err := s.identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to look up identity")
	}
	return ident, nil
}
