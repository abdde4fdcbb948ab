package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quayretail/orderdesk-backend/api/controllers"
	"github.com/quayretail/orderdesk-backend/api/middleware"
	"github.com/quayretail/orderdesk-backend/internal/auth"
	"github.com/quayretail/orderdesk-backend/internal/customers"
	"github.com/quayretail/orderdesk-backend/internal/importer"
	"github.com/quayretail/orderdesk-backend/internal/inventory"
	"github.com/quayretail/orderdesk-backend/internal/orders"
	"github.com/quayretail/orderdesk-backend/internal/payments"
	"github.com/quayretail/orderdesk-backend/internal/returns"
	"github.com/quayretail/orderdesk-backend/internal/users"
	"github.com/quayretail/orderdesk-backend/pkg/auth/session"
	"github.com/quayretail/orderdesk-backend/pkg/config"
	"github.com/quayretail/orderdesk-backend/pkg/db"
	"github.com/quayretail/orderdesk-backend/pkg/logger"
	"github.com/quayretail/orderdesk-backend/pkg/redis"
)

// Services bundles everything the router mounts.
type Services struct {
	Auth      auth.Service
	Users     users.Service
	Orders    orders.Service
	Payments  *payments.Manager
	Returns   returns.Service
	Customers customers.Service
	Inventory inventory.Service
	Importer  *importer.Engine
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessions session.AccessSessionChecker,
	registry prometheus.Gatherer,
	svcs Services,
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
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
		r.Post("/register", controllers.AuthRegisterCustomer(svcs.Users, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		// Customer-role accounts may browse orders and file returns; the
		// services scope results to the caller.
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svcs.Orders, logg))
			r.Post("/", controllers.OrderPlace(svcs.Orders, svcs.Payments, logg))
			r.Get("/nearing-deadline", controllers.OrdersNearingDeadline(svcs.Orders, logg))
			r.Get("/{hash}", controllers.OrderGet(svcs.Orders, logg))
			r.Patch("/{hash}/status", controllers.OrderSetStatus(svcs.Orders, logg))
			r.Delete("/{hash}", controllers.OrderDelete(svcs.Orders, logg))
			r.Post("/{hash}/reset-return", controllers.ReturnReset(svcs.Returns, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/{orderId}", controllers.PaymentState(svcs.Payments, logg))
			r.Get("/{orderId}/watch", controllers.PaymentWatch(svcs.Payments, logg))
			r.Post("/{orderId}/complete", controllers.PaymentComplete(svcs.Payments, logg))
			r.Post("/{orderId}/cancel-order", controllers.PaymentCancelOrder(svcs.Payments, logg))
			r.Post("/{orderId}/dismiss", controllers.PaymentDismiss(svcs.Payments, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.ReturnList(svcs.Returns, logg))
			r.Post("/", controllers.ReturnFile(svcs.Returns, logg))
			r.Get("/{requestId}", controllers.ReturnGet(svcs.Returns, logg))
			r.Post("/{requestId}/review", controllers.ReturnReview(svcs.Returns, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", controllers.CustomerList(svcs.Customers, logg))
				r.Post("/", controllers.CustomerCreate(svcs.Customers, logg))
				r.Get("/{customerId}", controllers.CustomerGet(svcs.Customers, logg))
				r.Patch("/{customerId}", controllers.CustomerUpdate(svcs.Customers, logg))
				r.Delete("/{customerId}", controllers.CustomerDelete(svcs.Customers, logg))
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", controllers.ProductList(svcs.Inventory, logg))
				r.Post("/", controllers.ProductCreate(svcs.Inventory, logg))
				r.Get("/sales-by-type", controllers.ProductSalesByType(svcs.Inventory, logg))
				r.Get("/{productId}", controllers.ProductGet(svcs.Inventory, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(svcs.Inventory, logg))
				r.Delete("/{productId}", controllers.ProductDelete(svcs.Inventory, logg))
				r.Post("/{productId}/adjust-stock", controllers.ProductAdjustStock(svcs.Inventory, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.UserList(svcs.Users, logg))
				r.Post("/", controllers.UserCreate(svcs.Users, logg))
				r.Get("/{userId}", controllers.UserGet(svcs.Users, logg))
				r.Patch("/{userId}", controllers.UserUpdate(svcs.Users, logg))
				r.Post("/{userId}/password", controllers.UserChangePassword(svcs.Users, logg))
				r.Delete("/{userId}", controllers.UserDelete(svcs.Users, logg))
			})

			r.Route("/imports", func(r chi.Router) {
				r.Post("/orders", controllers.ImportOrders(svcs.Importer, cfg.Import, logg))
				r.Post("/inventory", controllers.ImportInventory(svcs.Importer, cfg.Import, logg))
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/", controllers.OrderDashboard(svcs.Orders, logg))
				r.Get("/deadlines", controllers.OrderDeadlineStats(svcs.Orders, logg))
				r.Get("/statistics", controllers.OrderStatistics(svcs.Orders, logg))
			})
		})
	})

	return r
}
