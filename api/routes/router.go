package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartly/storefront-backend/api/controllers"
	ordercontrollers "github.com/kartly/storefront-backend/api/controllers/orders"
	"github.com/kartly/storefront-backend/api/middleware"
	"github.com/kartly/storefront-backend/internal/orders"
	"github.com/kartly/storefront-backend/pkg/config"
	"github.com/kartly/storefront-backend/pkg/db"
	"github.com/kartly/storefront-backend/pkg/enums"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/redis"
)

type cacheClient interface {
	redis.IdempotencyStore
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache cacheClient,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	pricer ordercontrollers.Pricer,
	sessions ordercontrollers.SessionOpener,
	settler ordercontrollers.Settler,
	ordersSvc orders.Service,
	membership controllers.MembershipReader,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": cache,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(cache, cfg.Settlement.IdempotencyKeyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/me/membership", controllers.Membership(membership, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/create-order", ordercontrollers.CreateOrder(pricer, sessions, logg))
			r.Post("/verify-payment", ordercontrollers.VerifyPayment(settler, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.With(middleware.OrderScope(logg)).Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Get("/ping", controllers.AdminPing())
		r.With(middleware.OrderScope(logg)).Post("/v1/orders/{orderId}/status", ordercontrollers.AdminUpdateStatus(ordersSvc, logg))
	})

	return r
}
