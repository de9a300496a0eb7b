// Package handler wires the credential endpoints to the credential service.
// The authenticate endpoint is public; everything else requires a staff token.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/credential"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/ledger"
	"github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/models"
	id "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain"
	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/httputil"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/requestcontext"
)

// Service defines the credential operations the handlers need.
type Service interface {
	Issue(ctx context.Context, patientID id.PatientID, data models.LinkedMedicalData, securityOverride *models.SecuritySettings) (*models.Identity, error)
	Authenticate(ctx context.Context, req models.AuthenticateRequest) (*models.AuthenticateResult, error)
	AddAlert(ctx context.Context, identityID id.IdentityID, severity models.AlertSeverity, message string, expiresAt *time.Time) (*models.Alert, error)
	ActiveAlerts(ctx context.Context, identityID id.IdentityID) ([]models.Alert, error)
	UpdateMedicalData(ctx context.Context, identityID id.IdentityID, patch models.MedicalDataPatch) (*models.Identity, error)
	Deactivate(ctx context.Context, identityID id.IdentityID) error
	ListAccessHistory(ctx context.Context, identityID id.IdentityID, pageSize int, cursor string) (*ledger.Page, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/identities/authenticate", h.HandleAuthenticate)
}

// RegisterStaff mounts the staff-guarded endpoints.
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Post("/identities", h.HandleIssue)
	r.Post("/identities/{identityID}/alerts", h.HandleAddAlert)
	r.Get("/identities/{identityID}/alerts", h.HandleListAlerts)
	r.Patch("/identities/{identityID}/medical-data", h.HandleUpdateMedicalData)
	r.Post("/identities/{identityID}/deactivate", h.HandleDeactivate)
	r.Get("/identities/{identityID}/access-log", h.HandleAccessLog)
}

// HandleIssue handles POST /identities requests.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.Issue(ctx, req.ParsedPatientID(), req.MedicalData, req.Settings())
	if err != nil {
		h.logger.ErrorContext(ctx, "identity issuance failed",
			"request_id", requestID,
			"patient_id", req.PatientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromIdentity(identity))
}

// HandleAuthenticate handles POST /identities/authenticate requests. Lockout
// rejections carry a Retry-After header; all other failures share one opaque
// shape.
func (h *Handler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AuthenticateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Authenticate(ctx, req.Domain(deviceInfo(r)))
	if err != nil {
		var locked *credential.LockedOutError
		if errors.As(err, &locked) {
			retryAfter := int(time.Until(locked.Until).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "locked_out",
				"retry_after": locked.Until.UTC().Format(time.RFC3339),
			})
			return
		}
		h.logger.WarnContext(ctx, "authentication attempt failed",
			"request_id", requestID,
			"error_code", string(dErrors.CodeOf(err)),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromAuthenticateResult(result))
}

// HandleAddAlert handles POST /identities/{identityID}/alerts requests.
func (h *Handler) HandleAddAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	identityID, ok := pathIdentityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddAlertRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	alert, err := h.service.AddAlert(ctx, identityID, models.AlertSeverity(req.Severity), req.Message, req.ExpiresAt)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to add alert",
			"request_id", requestID,
			"identity_id", identityID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, alert)
}

// HandleListAlerts handles GET /identities/{identityID}/alerts requests.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, ok := pathIdentityID(w, r)
	if !ok {
		return
	}

	alerts, err := h.service.ActiveAlerts(ctx, identityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, AlertsResponse{Alerts: alerts})
}

// HandleUpdateMedicalData handles PATCH /identities/{identityID}/medical-data.
func (h *Handler) HandleUpdateMedicalData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	identityID, ok := pathIdentityID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateMedicalDataRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.UpdateMedicalData(ctx, identityID, req.MedicalDataPatch)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromIdentity(identity))
}

// HandleDeactivate handles POST /identities/{identityID}/deactivate requests.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, ok := pathIdentityID(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(ctx, identityID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAccessLog handles GET /identities/{identityID}/access-log requests.
func (h *Handler) HandleAccessLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, ok := pathIdentityID(w, r)
	if !ok {
		return
	}

	pageSize := ledger.DefaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "page_size must be a positive integer"))
			return
		}
		pageSize = n
	}

	page, err := h.service.ListAccessHistory(ctx, identityID, pageSize, r.URL.Query().Get("cursor"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

func pathIdentityID(w http.ResponseWriter, r *http.Request) (id.IdentityID, bool) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id"))
		return id.IdentityID{}, false
	}
	return identityID, true
}

// deviceInfo derives coarse device metadata from the request for the audit
// trail.
func deviceInfo(r *http.Request) models.DeviceInfo {
	ua := useragent.New(r.UserAgent())
	browser, _ := ua.Browser()
	return models.DeviceInfo{
		Platform: ua.Platform(),
		Browser:  browser,
		Mobile:   ua.Mobile(),
		IP:       clientIP(r),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
