package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masumbillah21/conditional-discount/api/controllers"
	"github.com/masumbillah21/conditional-discount/api/middleware"
	"github.com/masumbillah21/conditional-discount/internal/evaluate"
	"github.com/masumbillah21/conditional-discount/internal/rules"
	"github.com/masumbillah21/conditional-discount/pkg/config"
	"github.com/masumbillah21/conditional-discount/pkg/db"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
	"github.com/masumbillah21/conditional-discount/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gatherer prometheus.Gatherer,
	rulesService rules.Service,
	evaluateService evaluate.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", controllers.RuleList(rulesService, logg))
			r.Post("/", controllers.RuleCreate(rulesService, logg))
			r.Route("/{ruleId}", func(r chi.Router) {
				r.Get("/", controllers.RuleGet(rulesService, logg))
				r.Put("/", controllers.RuleUpdate(rulesService, logg))
				r.Delete("/", controllers.RuleDelete(rulesService, logg))
				r.Post("/activate", controllers.RuleActivate(rulesService, logg))
				r.Post("/deactivate", controllers.RuleDeactivate(rulesService, logg))
			})
		})

		r.Post("/evaluate", controllers.CartEvaluate(evaluateService, logg))
	})

	return r
}
