package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dollmart/dollmart-backend/api/controllers"
	"github.com/dollmart/dollmart-backend/api/middleware"
	authsvc "github.com/dollmart/dollmart-backend/internal/auth"
	"github.com/dollmart/dollmart-backend/internal/availability"
	cartsvc "github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	deliverysvc "github.com/dollmart/dollmart-backend/internal/delivery"
	ordersvc "github.com/dollmart/dollmart-backend/internal/orders"
	"github.com/dollmart/dollmart-backend/internal/users"
	"github.com/dollmart/dollmart-backend/pkg/config"
	"github.com/dollmart/dollmart-backend/pkg/db"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/metrics"
	"github.com/dollmart/dollmart-backend/pkg/redis"
)

type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	HTTPMetrics  *metrics.HTTPMetrics
	MetricsHTTP  http.Handler
	AuthService  *authsvc.Service
	Catalog      *catalog.Service
	Availability *availability.Calculator
	Cart         *cartsvc.Service
	Orders       *ordersvc.Service
	Delivery     *deliverysvc.Service
	UsersRepo    *users.Repository
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		PerIPLimit:     cfg.AuthRateLimit.LoginIPLimit,
		PerEmailLimit:  cfg.AuthRateLimit.LoginEmailLimit,
		Window:         cfg.AuthRateLimit.LoginWindow,
		TrustProxyAddr: cfg.AuthRateLimit.TrustProxy,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		PerIPLimit:     cfg.AuthRateLimit.RegisterIPLimit,
		PerEmailLimit:  cfg.AuthRateLimit.RegisterEmailLimit,
		Window:         cfg.AuthRateLimit.RegisterWindow,
		TrustProxyAddr: cfg.AuthRateLimit.TrustProxy,
	}
	var authLimiter middleware.RateLimiter
	if d.Redis != nil {
		authLimiter = d.Redis
	}

	var idemStore redis.IdempotencyStore
	if d.Redis != nil {
		idemStore = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	if d.MetricsHTTP != nil {
		r.Handle("/metrics", d.MetricsHTTP)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(authLimiter, registerPolicy, logg),
			middleware.Idempotency(idemStore, cfg.Checkout, logg),
		).Post("/register", controllers.AuthRegister(d.AuthService, logg))
		r.With(middleware.AuthRateLimit(authLimiter, loginPolicy, logg)).Post("/login", controllers.AuthLogin(d.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Checkout, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(d.Catalog, d.Availability, logg))
			r.Get("/{productID}", controllers.ProductDetail(d.Catalog, d.Availability, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartView(d.Cart, logg))
			r.Post("/items", controllers.CartAdd(d.Cart, logg))
			r.Delete("/items/{productID}", controllers.CartRemoveLine(d.Cart, logg))
			r.Delete("/", controllers.CartClear(d.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(d.Orders, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(d.Orders, logg))
			r.Get("/{orderID}", controllers.OrderDetail(d.Orders, logg))
		})
	})

	r.Route("/api/manager/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleManager.String(), logg))
		r.Use(middleware.Idempotency(idemStore, cfg.Checkout, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ManagerCreateProduct(d.Catalog, logg))
			r.Patch("/{productID}", controllers.ManagerUpdateProduct(d.Catalog, logg))
			r.Delete("/{productID}", controllers.ManagerDeleteProduct(d.Catalog, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ManagerOrders(d.Orders, logg))
			r.Get("/pending", controllers.ManagerPendingOrders(d.Orders, logg))
			r.Post("/{orderID}/confirm-delivery", controllers.ManagerConfirmDelivery(d.Delivery, logg))
		})

		r.Get("/customers", controllers.ManagerCustomers(d.UsersRepo, d.Orders, logg))
	})

	return r
}
