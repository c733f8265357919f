package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

// WebhookHandlers sets up the provider webhook, relay and dispatch routes
func WebhookHandlers(ctx context.Context, opts Options) *chi.Mux {
	logger := httplog.NewLogger("vendor-relay", httplog.Options{
		JSON:     true,
		LogLevel: opts.LogLevel,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(RequestTimeout))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		})

		if opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", opts.Metrics)
		}

		// Provider webhook
		r.Get("/webhook", getWebhookChallenge(opts.VerifyToken).ServeHTTP)
		r.Post("/webhook", postWebhook(opts.Webhook, opts.maxBodyBytes()).ServeHTTP)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(RequestTimeout))
			if opts.Targets != nil {
				r.Get("/targets", getTargets(opts.Targets).ServeHTTP)
			}
			if opts.Logs != nil {
				r.Get("/dispatch/logs", getDispatchLogs(opts.Logs).ServeHTTP)
			}
		})
		// a full tick may outlast RequestTimeout
		if opts.Ticker != nil {
			r.With(middleware.Timeout(DispatchCheckTimeout)).
				Post("/dispatch/check", postDispatchCheck(opts.Ticker, opts.DispatchToken).ServeHTTP)
		}
	})

	return r
}
