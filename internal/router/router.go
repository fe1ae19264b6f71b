package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/cart"
	"github.com/chopbox/api/internal/config"
	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/enum"
	"github.com/chopbox/api/internal/handler"
	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/menu"
	mw "github.com/chopbox/api/internal/middleware"
	"github.com/chopbox/api/internal/payment"
	"github.com/chopbox/api/internal/realtime"
	"github.com/chopbox/api/internal/service"
	"github.com/chopbox/api/internal/ws"
)

// Deps are the long-lived components the HTTP surface is built from.
type Deps struct {
	Config    *config.Config
	Queries   *database.Queries
	Menus     *menu.Service
	Orders    *service.OrderService
	Lifecycle *service.Lifecycle
	Notifier  *realtime.Notifier
	Alerts    *realtime.PaidAlerts
	Payments  *payment.Client
	Carts     *cart.Registry
	Hub       *ws.Hub
	Log       *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Customer-facing routes are public; everything under
// /institutions/{iid} needs a device token bound to that institution.
func New(d Deps) (chi.Router, error) {
	cfg := d.Config
	log := logger.OrNop(d.Log)

	paymentLimit, err := mw.RateLimit(cfg.PaymentRateLimit)
	if err != nil {
		return nil, fmt.Errorf("payment rate limit: %w", err)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		feed := realtime.StatusClosed
		if d.Notifier != nil {
			feed = d.Notifier.Status()
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","feed":%q}`, feed)
	})

	// Public routes
	handler.NewAuthHandler(d.Queries, cfg.JWTSecret, log).RegisterRoutes(r)
	handler.NewMenuHandler(d.Menus, log).RegisterRoutes(r)
	handler.NewPaymentHandler(d.Payments, paymentLimit, log).RegisterRoutes(r)
	handler.NewCartHandler(d.Carts, d.Menus, d.Orders, cart.Policy{TaxRate: cfg.TaxRate}, log).RegisterRoutes(r)

	orderHandler := handler.NewOrderHandler(d.Orders, d.Lifecycle, log)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/institutions/{iid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	r.Route("/institutions/{iid}", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireInstitution)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCashier, enum.RoleKitchen))
			orderHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCashier))
			handler.NewNotificationHandler(d.Alerts).RegisterRoutes(r)
			handler.NewCustomerHandler(d.Queries, log).RegisterRoutes(r)
			handler.NewReportsHandler(d.Queries, log).RegisterRoutes(r)
		})
	})

	log.Info("router initialized")
	return r, nil
}
