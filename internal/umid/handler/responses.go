package handler

import (
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/ledger"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
)

// IssueResponse is the HTTP response for POST /identities. The one-time-code
// seed is never part of any response; provisioning happens out of band.
type IssueResponse struct {
	ID               string                  `json:"id"`
	PatientID        string                  `json:"patient_id"`
	PublicNumber     string                  `json:"public_number"`
	IsActive         bool                    `json:"is_active"`
	IssuedAt         time.Time               `json:"issued_at"`
	SecuritySettings models.SecuritySettings `json:"security_settings"`
	CodeSettings     models.CodeSettings     `json:"code_settings"`
}

// FromIdentity converts a domain identity to the issue response.
func FromIdentity(identity *models.Identity) *IssueResponse {
	return &IssueResponse{
		ID:               identity.ID.String(),
		PatientID:        identity.PatientID.String(),
		PublicNumber:     identity.PublicNumber,
		IsActive:         identity.IsActive,
		IssuedAt:         identity.IssuedAt,
		SecuritySettings: identity.SecuritySettings,
		CodeSettings:     identity.CodeSettings,
	}
}

// AuthenticateResponse is the HTTP response for a successful authentication.
type AuthenticateResponse struct {
	Grant       GrantResponse            `json:"grant"`
	MedicalData models.LinkedMedicalData `json:"medical_data"`
}

// GrantResponse is the grant portion of the response.
type GrantResponse struct {
	Token       string    `json:"token"`
	AccessLevel string    `json:"access_level"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// FromAuthenticateResult converts a domain result to the HTTP response.
func FromAuthenticateResult(result *models.AuthenticateResult) *AuthenticateResponse {
	return &AuthenticateResponse{
		Grant: GrantResponse{
			Token:       result.Grant.Token,
			AccessLevel: string(result.Grant.AccessLevel),
			IssuedAt:    result.Grant.IssuedAt,
			ExpiresAt:   result.Grant.ExpiresAt,
		},
		MedicalData: result.MedicalData,
	}
}

// AccessLogResponse is one page of GET /identities/{id}/access-log.
type AccessLogResponse struct {
	Entries    []models.AccessLogEntry `json:"entries"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// FromPage converts a ledger page to the HTTP response.
func FromPage(page *ledger.Page) *AccessLogResponse {
	return &AccessLogResponse{
		Entries:    page.Entries,
		NextCursor: page.NextCursor,
	}
}

// AlertsResponse is the HTTP response for GET /identities/{id}/alerts.
type AlertsResponse struct {
	Alerts []models.Alert `json:"alerts"`
}
