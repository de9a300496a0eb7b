package models

import (
	"sort"
	"time"

	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// EncryptionLevel selects the at-rest protection profile for a credential.
type EncryptionLevel string

const (
	EncryptionStandard EncryptionLevel = "standard"
	EncryptionHigh     EncryptionLevel = "high"
	EncryptionMilitary EncryptionLevel = "military"
)

// IsValid checks if the encryption level is one of the supported enum values.
func (l EncryptionLevel) IsValid() bool {
	switch l {
	case EncryptionStandard, EncryptionHigh, EncryptionMilitary:
		return true
	}
	return false
}

// AccessControlLevel selects how strictly staff access requests are screened.
type AccessControlLevel string

const (
	AccessControlBasic    AccessControlLevel = "basic"
	AccessControlEnhanced AccessControlLevel = "enhanced"
	AccessControlStrict   AccessControlLevel = "strict"
)

// IsValid checks if the access control level is one of the supported enum values.
func (l AccessControlLevel) IsValid() bool {
	switch l {
	case AccessControlBasic, AccessControlEnhanced, AccessControlStrict:
		return true
	}
	return false
}

// SecuritySettings governs lockout and screening behavior for one credential.
// Set at issuance; mutable only through an authorized administrative action.
type SecuritySettings struct {
	MaxFailedAttempts  int                `json:"max_failed_attempts"`
	LockoutDuration    time.Duration      `json:"lockout_duration"`
	RequireBiometric   bool               `json:"require_biometric"`
	AllowOfflineAccess bool               `json:"allow_offline_access"`
	EncryptionLevel    EncryptionLevel    `json:"encryption_level"`
	AccessControlLevel AccessControlLevel `json:"access_control_level"`
}

// DefaultSecuritySettings returns the issuance defaults.
func DefaultSecuritySettings() SecuritySettings {
	return SecuritySettings{
		MaxFailedAttempts:  3,
		LockoutDuration:    30 * time.Minute,
		RequireBiometric:   false,
		AllowOfflineAccess: false,
		EncryptionLevel:    EncryptionHigh,
		AccessControlLevel: AccessControlEnhanced,
	}
}

// Validate enforces the security settings invariants.
func (s SecuritySettings) Validate() error {
	if s.MaxFailedAttempts < 1 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max_failed_attempts must be at least 1")
	}
	if s.LockoutDuration < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "lockout_duration cannot be negative")
	}
	if !s.EncryptionLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid encryption level")
	}
	if !s.AccessControlLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid access control level")
	}
	return nil
}

// CodeSettings parameterizes one-time code derivation. Immutable after issuance.
type CodeSettings struct {
	Digits    int           `json:"digits"`
	Period    time.Duration `json:"period"`
	Algorithm string        `json:"algorithm"`
	Issuer    string        `json:"issuer"`
}

// DefaultCodeSettings returns the issuance defaults.
func DefaultCodeSettings() CodeSettings {
	return CodeSettings{
		Digits:    6,
		Period:    30 * time.Second,
		Algorithm: "HMAC-SHA256",
		Issuer:    "HealthSphere UMID",
	}
}

// Validate enforces code settings invariants. Digits outside [6,8] is a
// configuration error at issuance time, never at verification time.
func (c CodeSettings) Validate() error {
	if c.Digits < 6 || c.Digits > 8 {
		return dErrors.New(dErrors.CodeInvariantViolation, "digits must be between 6 and 8")
	}
	if c.Period <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "period must be positive")
	}
	return nil
}

// AlertSeverity classifies medical alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// IsValid checks if the severity is one of the supported enum values.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Alert is a time-bounded medical alert attached to an identity. Expired
// alerts are excluded from disclosure but never physically purged.
type Alert struct {
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	AddedAt   time.Time     `json:"added_at"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// NewAlert creates an Alert with domain invariant validation. An expiry
// already in the past at insertion time is rejected.
func NewAlert(severity AlertSeverity, message string, expiresAt *time.Time, now time.Time) (*Alert, error) {
	if !severity.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidAlert, "invalid alert severity")
	}
	if message == "" {
		return nil, dErrors.New(dErrors.CodeInvalidAlert, "alert message cannot be empty")
	}
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidAlert, "alert expiry is already in the past")
	}
	return &Alert{
		Severity:  severity,
		Message:   message,
		AddedAt:   now,
		ExpiresAt: expiresAt,
	}, nil
}

// IsExpired reports whether the alert's expiry has passed at the given instant.
func (a Alert) IsExpired(now time.Time) bool {
	if a.ExpiresAt == nil {
		return false
	}
	return !a.ExpiresAt.After(now)
}

// LinkedMedicalData is the structured payload disclosed on successful
// authentication.
type LinkedMedicalData struct {
	FullName           string   `json:"full_name"`
	DateOfBirth        string   `json:"date_of_birth"`
	BloodType          string   `json:"blood_type,omitempty"`
	CriticalAllergies  []string `json:"critical_allergies,omitempty"`
	ChronicConditions  []string `json:"chronic_conditions,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
	DoNotResuscitate   bool     `json:"do_not_resuscitate"`
	OrganDonor         bool     `json:"organ_donor"`
	EmergencyNotes     string   `json:"emergency_notes,omitempty"`
	MedicalAlerts      []Alert  `json:"medical_alerts,omitempty"`
}

// DisclosedFields returns the names of the fields a successful authentication
// actually reveals, for the audit trail.
func (d LinkedMedicalData) DisclosedFields() []string {
	fields := []string{"full_name", "date_of_birth", "do_not_resuscitate", "organ_donor"}
	if d.BloodType != "" {
		fields = append(fields, "blood_type")
	}
	if len(d.CriticalAllergies) > 0 {
		fields = append(fields, "critical_allergies")
	}
	if len(d.ChronicConditions) > 0 {
		fields = append(fields, "chronic_conditions")
	}
	if len(d.CurrentMedications) > 0 {
		fields = append(fields, "current_medications")
	}
	if d.EmergencyNotes != "" {
		fields = append(fields, "emergency_notes")
	}
	if len(d.MedicalAlerts) > 0 {
		fields = append(fields, "medical_alerts")
	}
	return fields
}

// MedicalDataPatch carries a partial medical-data update. Nil fields are
// left untouched.
type MedicalDataPatch struct {
	FullName           *string   `json:"full_name,omitempty"`
	DateOfBirth        *string   `json:"date_of_birth,omitempty"`
	BloodType          *string   `json:"blood_type,omitempty"`
	CriticalAllergies  *[]string `json:"critical_allergies,omitempty"`
	ChronicConditions  *[]string `json:"chronic_conditions,omitempty"`
	CurrentMedications *[]string `json:"current_medications,omitempty"`
	DoNotResuscitate   *bool     `json:"do_not_resuscitate,omitempty"`
	OrganDonor         *bool     `json:"organ_donor,omitempty"`
	EmergencyNotes     *string   `json:"emergency_notes,omitempty"`
}

// Apply merges the patch into the data in place.
func (p MedicalDataPatch) Apply(d *LinkedMedicalData) {
	if p.FullName != nil {
		d.FullName = *p.FullName
	}
	if p.DateOfBirth != nil {
		d.DateOfBirth = *p.DateOfBirth
	}
	if p.BloodType != nil {
		d.BloodType = *p.BloodType
	}
	if p.CriticalAllergies != nil {
		d.CriticalAllergies = *p.CriticalAllergies
	}
	if p.ChronicConditions != nil {
		d.ChronicConditions = *p.ChronicConditions
	}
	if p.CurrentMedications != nil {
		d.CurrentMedications = *p.CurrentMedications
	}
	if p.DoNotResuscitate != nil {
		d.DoNotResuscitate = *p.DoNotResuscitate
	}
	if p.OrganDonor != nil {
		d.OrganDonor = *p.OrganDonor
	}
	if p.EmergencyNotes != nil {
		d.EmergencyNotes = *p.EmergencyNotes
	}
}

// LockoutState is the cached per-identity failure counter. It is derivable
// from the access ledger tail; the cached copy only exists to keep the hot
// path cheap.
type LockoutState struct {
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
}

// IsLockedAt reports whether the identity is locked at the given instant.
// Locks expire passively; there is no background sweep.
func (l LockoutState) IsLockedAt(now time.Time) bool {
	if l.LockedUntil == nil {
		return false
	}
	return now.Before(*l.LockedUntil)
}

// Identity is one issued medical credential bound to a patient.
// Identities are never deleted, only deactivated.
type Identity struct {
	ID               id.IdentityID     `json:"id"`
	PatientID        id.PatientID      `json:"patient_id"`
	PublicNumber     string            `json:"public_number"`
	EncryptedSecret  string            `json:"-"`
	IsActive         bool              `json:"is_active"`
	IssuedAt         time.Time         `json:"issued_at"`
	DeactivatedAt    *time.Time        `json:"deactivated_at,omitempty"`
	SecuritySettings SecuritySettings  `json:"security_settings"`
	CodeSettings     CodeSettings      `json:"code_settings"`
	Lockout          LockoutState      `json:"lockout"`
	MedicalData      LinkedMedicalData `json:"medical_data"`
}

// NewIdentity creates an Identity with domain invariant validation.
func NewIdentity(
	patientID id.PatientID,
	publicNumber, encryptedSecret string,
	medicalData LinkedMedicalData,
	security SecuritySettings,
	code CodeSettings,
	now time.Time,
) (*Identity, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "patient id is required")
	}
	if publicNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "public number cannot be empty")
	}
	if encryptedSecret == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "encrypted secret cannot be empty")
	}
	if err := security.Validate(); err != nil {
		return nil, err
	}
	if err := code.Validate(); err != nil {
		return nil, err
	}
	return &Identity{
		ID:               id.NewIdentityID(),
		PatientID:        patientID,
		PublicNumber:     publicNumber,
		EncryptedSecret:  encryptedSecret,
		IsActive:         true,
		IssuedAt:         now,
		SecuritySettings: security,
		CodeSettings:     code,
		MedicalData:      medicalData,
	}, nil
}

// ActiveMedicalData returns a copy of the medical data with expired alerts
// filtered out, most recent alert first.
func (i Identity) ActiveMedicalData(now time.Time) LinkedMedicalData {
	out := i.MedicalData
	out.MedicalAlerts = nil
	for _, a := range i.MedicalData.MedicalAlerts {
		if !a.IsExpired(now) {
			out.MedicalAlerts = append(out.MedicalAlerts, a)
		}
	}
	// AddedAt descending; stable so same-instant alerts keep insertion order.
	sort.SliceStable(out.MedicalAlerts, func(a, b int) bool {
		return out.MedicalAlerts[a].AddedAt.After(out.MedicalAlerts[b].AddedAt)
	})
	return out
}
