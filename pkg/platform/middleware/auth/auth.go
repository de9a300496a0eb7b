package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	request "github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/middleware/request"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/requestcontext"
)

// StaffTokenValidator defines the interface for validating staff session tokens.
type StaffTokenValidator interface {
	ValidateToken(tokenString string) (*StaffClaims, error)
}

// StaffClaims represents the claims we expect from the token validator.
type StaffClaims struct {
	StaffID string
	Role    string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireStaff guards administrative routes (issuance, deactivation, alert
// management, access-log browsing). The patient-facing authenticate endpoint
// stays public; this middleware never applies there.
func RequireStaff(validator StaffTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			after, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(after)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithStaffID(r.Context(), claims.StaffID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
