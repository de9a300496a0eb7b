// Package httptransport assembles the HTTP surface: middleware chain, public
// authenticate route, staff-guarded administrative routes and the operational
// endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	umidhandler "github.com/randeepajayasekara/HealthSphere-sub000/internal/umid/handler"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/middleware/auth"
	request "github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/middleware/request"
	"github.com/randeepajayasekara/HealthSphere-sub000/pkg/platform/middleware/requesttime"
)

// Deps carries the wired dependencies the router mounts.
type Deps struct {
	Credentials    *umidhandler.Handler
	StaffValidator auth.StaffTokenValidator
	Logger         *slog.Logger
	Health         func(r chi.Router)
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if deps.Health != nil {
		deps.Health(r)
	}

	// Public: the emergency-room tablet path. Staff identity is declared in
	// the body and recorded in the ledger, not authenticated here.
	deps.Credentials.RegisterPublic(r)

	// Staff-guarded administration.
	r.Group(func(staff chi.Router) {
		staff.Use(auth.RequireStaff(deps.StaffValidator, deps.Logger))
		deps.Credentials.RegisterStaff(staff)
	})

	return r
}
