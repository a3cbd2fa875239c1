package router // package router registers the HTTP routes of the booking API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/middleware"
)

// Public bundles the handlers and per-route middleware of the guest-facing
// API.  RateLimit and Cache may be nil.
type Public struct {
	Availability *handler.AvailabilityHandler
	Checkout     *handler.CheckoutHandler
	Webhook      *handler.WebhookHandler
	Store        handler.TableCounter
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// RegisterRoutes registers the liveness check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// CORS answers browser preflights for the booking pages.  It is installed
// with e.Use so that OPTIONS requests reach it even though no OPTIONS route
// exists.
func CORS(origin string) echo.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{origin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, "Stripe-Signature"},
	})
}

// RegisterPublic registers the unauthenticated /api routes.
func RegisterPublic(e *echo.Echo, p Public) {
	g := e.Group("/api")

	availability := []echo.MiddlewareFunc{}
	if p.Cache != nil {
		availability = append(availability, p.Cache)
	}
	g.GET("/availability", p.Availability.Get, availability...)

	checkout := []echo.MiddlewareFunc{}
	if p.RateLimit != nil {
		checkout = append(checkout, p.RateLimit)
	}
	g.POST("/create-checkout-session", p.Checkout.Create, checkout...)

	// The provider signs the raw body; nothing may rewrite it before the handler.
	g.POST("/stripe-webhook", p.Webhook.Stripe)

	if p.Store != nil {
		g.GET("/ping", handler.Ping(p.Store))
	}
}

// RegisterAdmin registers booking maintenance under /v1/admin.  Every route
// requires a valid JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.GET("/bookings", a.ListBookings)
	g.GET("/bookings/:id", a.GetBooking)
	g.POST("/bookings/:id/cancel", a.CancelBooking)
}
