package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmsinform84-bit/orbfood-backend/api/controllers"
	"github.com/lmsinform84-bit/orbfood-backend/api/middleware"
	internalinvoices "github.com/lmsinform84-bit/orbfood-backend/internal/invoices"
	internalorders "github.com/lmsinform84-bit/orbfood-backend/internal/orders"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/config"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/db"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
	"github.com/lmsinform84-bit/orbfood-backend/pkg/logger"
	pkgredis "github.com/lmsinform84-bit/orbfood-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP pkgredis.Pinger,
	idemStore pkgredis.IdempotencyStore,
	ordersSvc internalorders.Service,
	invoicesSvc internalinvoices.Service,
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

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleCustomer.String(), logg)).
				Post("/", controllers.PlaceOrder(ordersSvc, logg))
			r.Get("/", controllers.ListOrders(ordersSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", controllers.OrderDetail(ordersSvc, logg))
				r.With(middleware.RequireRole(enums.UserRoleVendor.String(), logg)).
					Post("/fee", controllers.ProposeOrderFee(ordersSvc, logg))
				r.With(middleware.RequireRole(enums.UserRoleCustomer.String(), logg)).
					Post("/fee/decision", controllers.ResolveOrderFee(ordersSvc, logg))
				r.With(middleware.RequireRole(enums.UserRoleVendor.String(), logg)).
					Post("/advance", controllers.AdvanceOrder(ordersSvc, logg))
				r.Post("/cancel", controllers.CancelOrder(ordersSvc, logg))
			})
		})

		r.Route("/v1/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(invoicesSvc, logg))
			r.Get("/estimate", controllers.InvoiceEstimate(invoicesSvc, logg))
			r.Route("/{invoiceId}", func(r chi.Router) {
				r.Get("/", controllers.InvoiceDetail(invoicesSvc, logg))
				r.Get("/activity", controllers.InvoiceActivity(invoicesSvc, logg))
				r.With(middleware.RequireRole(enums.UserRoleVendor.String(), logg)).
					Post("/proof", controllers.SubmitInvoiceProof(invoicesSvc, logg))
				r.With(middleware.RequireRole(enums.UserRoleAdmin.String(), logg)).
					Post("/verify", controllers.VerifyInvoice(invoicesSvc, logg))
			})
		})
	})

	return r
}
