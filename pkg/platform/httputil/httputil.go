// Package httputil provides the shared JSON response helpers for the HTTP
// layer: error envelope rendering and request body decoding with validation.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "github.com/randeepajayasekara/HealthSphere-sub000/pkg/domain-errors"
)

// Validatable is implemented by request types that validate and normalize
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// errorResponse is the JSON error envelope returned on every failed request.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON renders v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to the JSON error envelope. Server-side
// faults (5xx) omit the description so internals never leak. Authentication
// failures share one generic external shape regardless of which check failed.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)

	resp := errorResponse{Error: externalCode(code)}
	if status < http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		resp.ErrorDescription = externalDescription(code, err)
	}
	WriteJSON(w, status, resp)
}

// externalCode collapses the unknown-number and wrong-code outcomes into one
// opaque value so callers cannot probe which public numbers exist.
func externalCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeUnknownOrInactive, dErrors.CodeInvalidCode, dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeInternal, dErrors.CodeCryptoFailure, dErrors.CodeIssuanceFailure, dErrors.CodeInvariantViolation:
		return "internal_error"
	default:
		return string(code)
	}
}

func externalDescription(code dErrors.Code, err error) string {
	switch code {
	case dErrors.CodeUnknownOrInactive, dErrors.CodeInvalidCode:
		return "authentication failed"
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "request failed"
}

// DecodeAndPrepare decodes the request body into T and runs its validation.
// On failure it writes the error response and returns ok=false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return nil, false
	}
	p := PT(&req)
	if err := p.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return p, true
}
