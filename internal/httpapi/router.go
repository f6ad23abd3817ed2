// Package httpapi is the REST control-plane in front of internal/engine: a
// chi router under /api/v1 translating requests into engine calls and
// engine results into JSON and status codes.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hatchway/clustersched/internal/engine"
)

var log = slog.Default()

// NewRouter builds the full /api/v1 surface on top of e. The returned
// handler is ready to pass to http.Server.
func NewRouter(e *engine.Engine) http.Handler {
	h := &handlers{engine: e}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.listJobs)
			r.Post("/", h.submitJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getJob)
				r.Delete("/", h.deleteJob)
				r.Post("/status", h.jobStatusAction)
			})
		})
		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", h.listNodes)
			r.Post("/", h.addNode)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getNode)
				r.Delete("/", h.deleteNode)
				r.Get("/jobs", h.getNodeJobs)
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
