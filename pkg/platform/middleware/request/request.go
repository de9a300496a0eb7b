// Package request provides request correlation ID middleware.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/requestcontext"
)

// HeaderRequestID is the header carrying the correlation ID in and out.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns a correlation ID to every request. An incoming
// X-Request-ID is honored so the integrating system can trace a call across
// services; otherwise a fresh UUID is generated.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(HeaderRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
