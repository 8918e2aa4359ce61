// Package api exposes the matching engine over HTTP. Dispatchers trigger
// allocation, merges and handshakes; drivers report positions and accept
// opportunities.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/haulshare/core/allocation"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/opportunity"
	"github.com/kilianp07/haulshare/core/proximity"
	"github.com/kilianp07/haulshare/core/relay"
	"github.com/kilianp07/haulshare/core/store"
)

// Server holds the services behind the HTTP handlers.
type Server struct {
	Store     store.Store
	Allocator *allocation.Allocator
	Matcher   *proximity.Matcher
	Ledger    *opportunity.Ledger
	Merger    *relay.Merger
	Log       logger.Logger
	// Tokens lists accepted bearer tokens. Empty disables the check.
	Tokens []string
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	Timeout  time.Duration
	now      func() time.Time
}

// Router builds the chi router with every route mounted.
func (s *Server) Router() http.Handler {
	s.Log = logger.OrNop(s.Log)
	if s.now == nil {
		s.now = time.Now
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	dispatcher := RequireRole(RoleDispatcher)
	driver := RequireRole(RoleDriver)
	anyone := RequireRole(RoleDispatcher, RoleDriver)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireToken(s.Tokens))

		r.With(dispatcher).Post("/allocations", handle(s.Log, s.allocate))

		r.Route("/trucks/{id}", func(r chi.Router) {
			r.With(driver).Post("/position", handle(s.Log, s.reportPosition))
			r.With(anyone).Get("/synergy", handle(s.Log, s.synergy))
			r.With(dispatcher).Post("/merge", handle(s.Log, s.merge))
		})

		r.Route("/opportunities", func(r chi.Router) {
			r.With(anyone).Get("/", handle(s.Log, s.listOpportunities))
			r.With(dispatcher).Post("/expire", handle(s.Log, s.expire))
			r.With(anyone).Get("/{id}", handle(s.Log, s.getOpportunity))
			r.With(driver).Post("/{id}/accept", handle(s.Log, s.accept))
			r.With(dispatcher).Post("/{id}/handshake", handle(s.Log, s.handshake))
		})

		r.Route("/routes/{id}", func(r chi.Router) {
			r.With(dispatcher).Post("/activate", handle(s.Log, s.activateRoute))
			r.With(anyone).Get("/manifest", handle(s.Log, s.manifest))
		})
	})
	return r
}
