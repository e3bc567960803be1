// Package httpapi exposes digest history and enrollment over HTTP.
// History endpoints are read-only; digests themselves are produced by
// the batch commands.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xomify/xomify/metrics"
	"github.com/xomify/xomify/store"
	"github.com/xomify/xomify/types"
)

type Server struct {
	store   store.Store
	metrics *metrics.Collector
}

func NewServer(s store.Store, m *metrics.Collector) *Server {
	return &Server{store: s, metrics: m}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/health", s.HandleHealth)
	r.Get("/metrics", s.HandleMetrics)
	r.Get("/users", s.HandleListUsers)
	r.Get("/users/{email}", s.HandleGetUser)
	r.Put("/users/{email}", s.HandlePutUser)
	r.Get("/users/{email}/wrapped", s.HandleListWrapped)
	r.Get("/users/{email}/wrapped/{monthKey}", s.HandleGetWrapped)
	r.Get("/users/{email}/release-weeks", s.HandleListReleaseWeeks)
	r.Get("/users/{email}/release-weeks/{weekKey}", s.HandleGetReleaseWeek)
	r.Get("/users/{email}/release-weeks/{weekKey}/check", s.HandleCheckReleaseWeek)

	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "xomify",
		"version": types.Version,
	})
}

func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
