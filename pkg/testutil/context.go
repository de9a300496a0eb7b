package testutil

import (
	"net/http"
	"time"

	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/requestcontext"
)

// WithStaffID adds an authenticated staff identifier to the request context.
// This simulates what the staff auth middleware would do.
func WithStaffID(req *http.Request, staffID string) *http.Request {
	return req.WithContext(requestcontext.WithStaffID(req.Context(), staffID))
}

// WithRequestTime pins the request-scoped clock, so time-dependent behavior
// (lockout expiry, alert filtering, grant TTL) is deterministic in tests.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
