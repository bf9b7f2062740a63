// Package api serves read-only inventory views and rendered artifacts over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/jbweber/homelab/infrabase/internal/repository"
)

// SnapshotSource loads the inventory for one request
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*repository.Snapshot, error)
}

// API holds the dependencies of the HTTP handlers
type API struct {
	source SnapshotSource
	log    logrus.FieldLogger
}

// NewAPI creates a new API reading the inventory from source
func NewAPI(source SnapshotSource, log logrus.FieldLogger) *API {
	return &API{source: source, log: log}
}

// RegisterRoutes registers all API endpoints to the given chi router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v0/machines", func(r chi.Router) {
		r.Get("/", a.listMachinesHandler)
		r.Get("/{hostname}", a.getMachineHandler)
		r.Get("/{hostname}/ssh-config", a.sshConfigHandler)
		r.Get("/{hostname}/wg-quick", a.wgQuickHandler)
		r.Get("/{hostname}/peers", a.peersHandler)
	})
}

// NewRouter returns a router with request logging, panic recovery and all
// API routes
func (a *API) NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)

	a.RegisterRoutes(r)

	// Health check endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, a.log, "text/plain; charset=utf-8", []byte("infrabase is running\n"))
	})
	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
		}).Info("request served")
	})
}
