package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	"github.com/angelmondragon/orderdesk-backend/api/middleware"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// Dependencies are the services the router hands to controllers. Nil
// limiters disable throttling; a nil gatherer hides /metrics.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore

	Forms       controllers.OrderFormService
	Settlements controllers.SettlementService
	RefData     controllers.SnapshotLoader

	APILimiter    *limiter.Limiter
	SubmitLimiter *limiter.Limiter
	Metrics       prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(deps.APILimiter, "api", logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/order-forms/{orderType}", func(r chi.Router) {
			forms := deps.Forms

			r.With(middleware.RequirePermission(enums.ResourceOrders, enums.ActionRead, logg)).
				Get("/", controllers.OrderFormView(forms, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(enums.ResourceOrders, enums.ActionUpdate, logg))
				r.Put("/lines", controllers.OrderFormSetLines(forms, logg))
				r.Post("/lines", controllers.OrderFormAddLine(forms, logg))
				r.Patch("/lines/{index}", controllers.OrderFormUpdateLine(forms, logg))
				r.Delete("/lines/{index}", controllers.OrderFormRemoveLine(forms, logg))
				r.Put("/discount", controllers.OrderFormSetDiscount(forms, logg))
				r.Put("/tax", controllers.OrderFormSetTax(forms, logg))
				r.Put("/charges", controllers.OrderFormSetCharges(forms, logg))
				r.Put("/payments", controllers.OrderFormSetPayments(forms, logg))
				r.Put("/details", controllers.OrderFormSetDetails(forms, logg))
				r.Post("/next", controllers.OrderFormNext(forms, logg))
				r.Post("/back", controllers.OrderFormBack(forms, logg))
				r.Post("/reset", controllers.OrderFormReset(forms, logg))
			})

			r.With(
				middleware.RateLimit(deps.SubmitLimiter, "submit", logg),
				middleware.RequirePermission(enums.ResourceOrders, enums.ActionCreate, logg),
			).Post("/submit", controllers.OrderFormSubmit(forms, logg))
		})

		r.With(middleware.RequirePermission(enums.ResourceSettlements, enums.ActionRead, logg)).
			Get("/entities/{entityId}/settlements/preview", controllers.SettlementPreview(deps.Settlements, logg))
		r.With(middleware.RequirePermission(enums.ResourceSettlements, enums.ActionCreate, logg)).
			Post("/entities/{entityId}/settlements", controllers.SettlementExecute(deps.Settlements, logg))

		r.With(middleware.RequirePermission(enums.ResourceProducts, enums.ActionRead, logg)).
			Get("/variants/{variantId}/estimate", controllers.VariantEstimate(deps.RefData, logg))
	})

	return otelhttp.NewHandler(r, "orderdesk-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
