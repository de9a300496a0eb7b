package handler

import (
	"strings"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// IssueRequest is the HTTP request body for POST /identities.
type IssueRequest struct {
	PatientID        string                    `json:"patient_id"`
	MedicalData      models.LinkedMedicalData  `json:"medical_data"`
	SecuritySettings *SecuritySettingsOverride `json:"security_settings,omitempty"`

	// Parsed values (populated by Validate)
	parsedPatientID id.PatientID
}

// SecuritySettingsOverride carries optional per-identity security overrides.
// Omitted fields fall back to the defaults.
type SecuritySettingsOverride struct {
	MaxFailedAttempts     *int    `json:"max_failed_attempts,omitempty"`
	LockoutDurationMinute *int    `json:"lockout_duration_minutes,omitempty"`
	EncryptionLevel       *string `json:"encryption_level,omitempty"`
	AccessControlLevel    *string `json:"access_control_level,omitempty"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.PatientID = strings.TrimSpace(r.PatientID)
	if r.PatientID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "patient_id is required")
	}
	patientID, err := id.ParsePatientID(r.PatientID)
	if err != nil {
		return err
	}
	r.parsedPatientID = patientID

	r.MedicalData.FullName = strings.TrimSpace(r.MedicalData.FullName)
	if r.MedicalData.FullName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "medical_data.full_name is required")
	}
	if r.MedicalData.DateOfBirth == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "medical_data.date_of_birth is required")
	}
	return nil
}

// ParsedPatientID returns the validated patient id.
func (r *IssueRequest) ParsedPatientID() id.PatientID { return r.parsedPatientID }

// Settings materializes the override on top of the defaults, or returns nil
// when no override was supplied.
func (r *IssueRequest) Settings() *models.SecuritySettings {
	if r.SecuritySettings == nil {
		return nil
	}
	settings := models.DefaultSecuritySettings()
	o := r.SecuritySettings
	if o.MaxFailedAttempts != nil {
		settings.MaxFailedAttempts = *o.MaxFailedAttempts
	}
	if o.LockoutDurationMinute != nil {
		settings.LockoutDuration = time.Duration(*o.LockoutDurationMinute) * time.Minute
	}
	if o.EncryptionLevel != nil {
		settings.EncryptionLevel = models.EncryptionLevel(*o.EncryptionLevel)
	}
	if o.AccessControlLevel != nil {
		settings.AccessControlLevel = models.AccessControlLevel(*o.AccessControlLevel)
	}
	return &settings
}

// AuthenticateRequest is the HTTP request body for POST /identities/authenticate.
type AuthenticateRequest struct {
	PublicNumber      string `json:"public_number"`
	SuppliedCode      string `json:"supplied_code,omitempty"`
	StaffID           string `json:"staff_id"`
	DeclaredRole      string `json:"declared_role"`
	Purpose           string `json:"purpose"`
	EmergencyOverride bool   `json:"emergency_override"`

	// Parsed values (populated by Validate)
	parsedStaffID id.StaffID
}

// Validate validates and parses the request.
func (r *AuthenticateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.PublicNumber = strings.TrimSpace(r.PublicNumber)
	if r.PublicNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "public_number is required")
	}
	r.StaffID = strings.TrimSpace(r.StaffID)
	if r.StaffID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "staff_id is required")
	}
	staffID, err := id.ParseStaffID(r.StaffID)
	if err != nil {
		return err
	}
	r.parsedStaffID = staffID

	r.Purpose = strings.TrimSpace(r.Purpose)
	if r.Purpose == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "purpose is required")
	}
	if !r.EmergencyOverride && strings.TrimSpace(r.SuppliedCode) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "supplied_code is required unless emergency_override is set")
	}
	return nil
}

// Domain converts the body into the service request, attaching the device
// metadata extracted from the connection.
func (r *AuthenticateRequest) Domain(device models.DeviceInfo) models.AuthenticateRequest {
	return models.AuthenticateRequest{
		PublicNumber:      r.PublicNumber,
		SuppliedCode:      strings.TrimSpace(r.SuppliedCode),
		StaffID:           r.parsedStaffID,
		DeclaredRole:      r.DeclaredRole,
		Purpose:           r.Purpose,
		EmergencyOverride: r.EmergencyOverride,
		Device:            device,
	}
}

// AddAlertRequest is the HTTP request body for POST /identities/{id}/alerts.
type AddAlertRequest struct {
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Validate validates the request. Expiry-in-the-past is the service's call,
// made against the request clock, not here.
func (r *AddAlertRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if !models.AlertSeverity(r.Severity).IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "severity must be one of info, warning, critical")
	}
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "message is required")
	}
	return nil
}

// UpdateMedicalDataRequest is the HTTP request body for
// PATCH /identities/{id}/medical-data.
type UpdateMedicalDataRequest struct {
	models.MedicalDataPatch
}

// Validate rejects an empty patch.
func (r *UpdateMedicalDataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	p := r.MedicalDataPatch
	if p.FullName == nil && p.DateOfBirth == nil && p.BloodType == nil &&
		p.CriticalAllergies == nil && p.ChronicConditions == nil &&
		p.CurrentMedications == nil && p.DoNotResuscitate == nil &&
		p.OrganDonor == nil && p.EmergencyNotes == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "patch must set at least one field")
	}
	if p.FullName != nil && strings.TrimSpace(*p.FullName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "full_name cannot be blank")
	}
	return nil
}
