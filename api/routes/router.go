// Package routes assembles the HTTP surface: the webhook endpoint, health
// probes, and the metrics scrape handler.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seedslabs/gratibot-backend/api/controllers"
	"github.com/seedslabs/gratibot-backend/api/middleware"
	"github.com/seedslabs/gratibot-backend/pkg/config"
	"github.com/seedslabs/gratibot-backend/pkg/logger"
)

// Params gathers what the router needs.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	Dispatcher controllers.UpdateDispatcher
	DB         controllers.Pinger
	Redis      controllers.Pinger
	Registry   *prometheus.Registry
}

// NewRouter builds the chi handler tree.
func NewRouter(p Params) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Get("/", controllers.Banner(p.Config))
	r.Get("/health/live", controllers.HealthLive(p.Config))
	r.Get("/health/ready", controllers.HealthReady(p.Config, p.Logger, map[string]controllers.Pinger{
		"database": p.DB,
		"redis":    p.Redis,
	}))

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/bot", func(r chi.Router) {
		r.Use(middleware.WebhookToken(p.Config.Bot.WebhookSecret, p.Logger))
		r.Post("/webhook", controllers.Webhook(p.Dispatcher, p.Logger))
	})

	return r
}
