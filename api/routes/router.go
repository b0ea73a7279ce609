package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitedash/bitedash-backend/api/controllers"
	"github.com/bitedash/bitedash-backend/api/middleware"
	"github.com/bitedash/bitedash-backend/internal/menu"
	"github.com/bitedash/bitedash-backend/internal/orders"
	"github.com/bitedash/bitedash-backend/internal/revenue"
	"github.com/bitedash/bitedash-backend/internal/settlement"
	"github.com/bitedash/bitedash-backend/internal/wallet"
	"github.com/bitedash/bitedash-backend/pkg/config"
	"github.com/bitedash/bitedash-backend/pkg/logger"
	pkgredis "github.com/bitedash/bitedash-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Pingers may be nil when the
// backing system is not configured; readiness reports them as such.
type Deps struct {
	Config *config.Config
	Logg   *logger.Logger

	DBPinger     controllers.Pinger
	RedisPinger  controllers.Pinger
	PubSubPinger controllers.Pinger

	IdempotencyStore pkgredis.IdempotencyStore

	Settlement settlement.Service
	Orders     orders.Service
	Wallet     wallet.Service
	Revenue    revenue.Service
	Menu       menu.Service
}

// NewRouter assembles the full route tree.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, map[string]controllers.Pinger{
			"database": deps.DBPinger,
			"redis":    deps.RedisPinger,
			"pubsub":   deps.PubSubPinger,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.PlaceOrder(deps.Settlement, logg))
			r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(deps.Orders, logg))
				r.Get("/history", controllers.OrderHistory(deps.Orders, logg))
				r.Post("/status", controllers.TransitionOrder(deps.Orders, logg))
				r.Post("/pickup/verify", controllers.VerifyPickup(deps.Orders, logg))
				r.Post("/rating", controllers.RateOrder(deps.Orders, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Get("/orders", controllers.ListVendorOrders(deps.Orders, logg))
			r.Get("/orders/lookup", controllers.LookupOrderByToken(deps.Orders, logg))
		})

		r.Route("/vendors/{vendorID}", func(r chi.Router) {
			r.Get("/menu", controllers.VendorMenu(deps.Menu, logg))
			r.Get("/rating", controllers.VendorRating(deps.Orders, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Post("/", controllers.InitializeWallet(deps.Wallet, logg))
			r.Get("/", controllers.WalletBalance(deps.Wallet, logg))
			r.Post("/topup", controllers.TopUpWallet(deps.Wallet, logg))
			r.Get("/transactions", controllers.WalletHistory(deps.Wallet, logg))
			r.Get("/summary", controllers.WalletSummary(deps.Wallet, logg))
		})

		r.Route("/admin/revenue", func(r chi.Router) {
			r.Use(middleware.RequirePrivileged(logg))
			r.Get("/wallet", controllers.PlatformWallet(deps.Revenue, logg))
			r.Get("/logs", controllers.RevenueLogs(deps.Revenue, logg))
		})
	})

	return r
}
