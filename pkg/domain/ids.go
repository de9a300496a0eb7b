// Package domain holds typed identifiers shared across the credential
// subsystem. Each ID is a distinct UUID-backed type so the compiler rejects
// cross-type assignment (an EntryID can never stand in for an IdentityID).
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

type (
	// IdentityID identifies one issued medical credential.
	IdentityID uuid.UUID
	// PatientID identifies the patient a credential is bound to.
	PatientID uuid.UUID
	// StaffID identifies the staff member making an access attempt.
	StaffID uuid.UUID
	// EntryID identifies one append-only access log entry.
	EntryID uuid.UUID
)

// NewIdentityID returns a fresh random identity ID.
func NewIdentityID() IdentityID { return IdentityID(uuid.New()) }

// NewEntryID returns a fresh random ledger entry ID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }

func (i IdentityID) String() string { return uuid.UUID(i).String() }
func (p PatientID) String() string  { return uuid.UUID(p).String() }
func (s StaffID) String() string    { return uuid.UUID(s).String() }
func (e EntryID) String() string    { return uuid.UUID(e).String() }

func (i IdentityID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (p PatientID) IsNil() bool  { return uuid.UUID(p) == uuid.Nil }
func (s StaffID) IsNil() bool    { return uuid.UUID(s) == uuid.Nil }
func (e EntryID) IsNil() bool    { return uuid.UUID(e) == uuid.Nil }

// ParseIdentityID parses and validates an identity ID from its string form.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseIdentityID(s string) (IdentityID, error) {
	u, err := parse(s, "identity id")
	return IdentityID(u), err
}

// ParsePatientID parses and validates a patient ID from its string form.
func ParsePatientID(s string) (PatientID, error) {
	u, err := parse(s, "patient id")
	return PatientID(u), err
}

// ParseStaffID parses and validates a staff ID from its string form.
func ParseStaffID(s string) (StaffID, error) {
	u, err := parse(s, "staff id")
	return StaffID(u), err
}

// ParseEntryID parses and validates a ledger entry ID from its string form.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parse(s, "entry id")
	return EntryID(u), err
}

func parse(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be empty", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}
