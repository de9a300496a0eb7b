package models

import (
	"time"

	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// AccessType distinguishes the normal code-verified path from the audited
// emergency override.
type AccessType string

const (
	AccessTypeCode              AccessType = "one_time_code"
	AccessTypeEmergencyOverride AccessType = "emergency_override"
)

// AccessOutcome is the result recorded for one authentication attempt.
type AccessOutcome string

const (
	OutcomeSuccess AccessOutcome = "success"
	OutcomeFailure AccessOutcome = "failure"
)

// FailureReason tags why an attempt failed. Only set on failure entries.
type FailureReason string

const (
	ReasonUnknownOrInactive FailureReason = "unknown_or_inactive"
	ReasonLockedOut         FailureReason = "locked_out"
	ReasonInvalidCode       FailureReason = "invalid_code"
)

// DeviceInfo is coarse device/connection metadata recorded with each attempt.
type DeviceInfo struct {
	Platform string `json:"platform,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Mobile   bool   `json:"mobile"`
	IP       string `json:"ip,omitempty"`
}

// AccessLogEntry is one row of the append-only access ledger. Once written it
// is never mutated or deleted.
type AccessLogEntry struct {
	ID              id.EntryID    `json:"id"`
	IdentityID      id.IdentityID `json:"identity_id"`
	StaffID         id.StaffID    `json:"staff_id"`
	DeclaredRole    string        `json:"declared_role"`
	Purpose         string        `json:"purpose"`
	AttemptedAt     time.Time     `json:"attempted_at"`
	AccessType      AccessType    `json:"access_type"`
	Outcome         AccessOutcome `json:"outcome"`
	FailureReason   FailureReason `json:"failure_reason,omitempty"`
	DisclosedFields []string      `json:"disclosed_fields,omitempty"`
	Device          DeviceInfo    `json:"device"`
}

// NewAccessLogEntry creates a ledger entry with domain invariant validation.
func NewAccessLogEntry(identityID id.IdentityID, req AuthenticateRequest, outcome AccessOutcome, reason FailureReason, disclosed []string, now time.Time) (*AccessLogEntry, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity id is required")
	}
	accessType := AccessTypeCode
	if req.EmergencyOverride {
		accessType = AccessTypeEmergencyOverride
	}
	if outcome == OutcomeFailure && reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "failure entries require a reason")
	}
	if outcome == OutcomeSuccess && reason != "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "success entries cannot carry a failure reason")
	}
	return &AccessLogEntry{
		ID:              id.NewEntryID(),
		IdentityID:      identityID,
		StaffID:         req.StaffID,
		DeclaredRole:    req.DeclaredRole,
		Purpose:         req.Purpose,
		AttemptedAt:     now,
		AccessType:      accessType,
		Outcome:         outcome,
		FailureReason:   reason,
		DisclosedFields: disclosed,
		Device:          req.Device,
	}, nil
}

// GrantAccessLevel scopes what an issued grant may read.
type GrantAccessLevel string

const (
	GrantLevelFull      GrantAccessLevel = "full"
	GrantLevelEmergency GrantAccessLevel = "emergency"
)

// Grant is the short-lived opaque access token returned on successful
// authentication. Immutable once issued.
type Grant struct {
	Token       string           `json:"token"`
	IdentityID  id.IdentityID    `json:"identity_id"`
	StaffID     id.StaffID       `json:"staff_id"`
	AccessLevel GrantAccessLevel `json:"access_level"`
	IssuedAt    time.Time        `json:"issued_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
}

// IsExpired reports whether the grant has expired at the given instant.
func (g Grant) IsExpired(now time.Time) bool {
	return !g.ExpiresAt.After(now)
}

// AuthenticateRequest carries one staff access attempt against a credential.
type AuthenticateRequest struct {
	PublicNumber      string     `json:"public_number"`
	SuppliedCode      string     `json:"supplied_code,omitempty"`
	StaffID           id.StaffID `json:"staff_id"`
	DeclaredRole      string     `json:"declared_role"`
	Purpose           string     `json:"purpose"`
	EmergencyOverride bool       `json:"emergency_override"`
	Device            DeviceInfo `json:"device"`
}

// Validate enforces the request invariants shared by all attempt paths.
func (r AuthenticateRequest) Validate() error {
	if r.PublicNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "public_number is required")
	}
	if r.StaffID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "staff_id is required")
	}
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "purpose is required")
	}
	if !r.EmergencyOverride && r.SuppliedCode == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "supplied_code is required unless emergency_override is set")
	}
	return nil
}

// AuthenticateResult is returned on a successful attempt: the grant plus the
// filtered view of the linked medical data (active alerts only).
type AuthenticateResult struct {
	Grant       Grant             `json:"grant"`
	MedicalData LinkedMedicalData `json:"medical_data"`
}
