package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter assembles the global middleware stack common to both roles'
// HTTP surfaces and lets the caller mount its own routes on top, mirroring
// the teacher's NewRouter(cfg RouterConfig) shape without the auth layer
// this protocol has no use for.
func NewRouter(log *zap.Logger, metricsRegistry http.Handler, mount func(r chi.Router)) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)

	if metricsRegistry != nil {
		r.Handle("/metrics", metricsRegistry)
	}

	mount(r)

	return r
}

// PromHandler returns an HTTP handler serving reg's metrics, so callers
// don't need to import promhttp directly just to pass a handler into
// NewRouter.
func PromHandler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
