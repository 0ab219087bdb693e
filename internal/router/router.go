package router // defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attendly/ticketing/internal/handler"
	"github.com/attendly/ticketing/internal/middleware"
	"github.com/attendly/ticketing/internal/model"
)

// Handlers collects every handler group the router wires up.
type Handlers struct {
	Auth      *handler.AuthHandler
	Public    *handler.PublicHandler
	Organizer *handler.OrganizerHandler
	Admin     *handler.AdminHandler
	Checkout  *handler.CheckoutHandler
	Bookings  *handler.BookingHandler
	Reviews   *handler.ReviewHandler
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth; /v1/me and logout run
// behind JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}

// RegisterPublic registers the unauthenticated catalogue endpoints.  The
// optional cache middleware fronts the listing routes; the event detail
// route bypasses it so availability counts stay live.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/events", p.ListEvents, cache)
		e.GET("/v1/events/featured", p.ListFeatured, cache)
	} else {
		e.GET("/v1/events", p.ListEvents)
		e.GET("/v1/events/featured", p.ListFeatured)
	}
	e.GET("/v1/events/:id", p.GetEvent)
	e.GET("/v1/events/:id/reviews", p.ListEventReviews)
}

// RegisterCheckout registers the hold-backed purchase flow for
// attendees, plus booking history and review posting.  The rate limiter
// wraps the whole group; hold creation is the endpoint buyers hammer
// when sales open.
func RegisterCheckout(e *echo.Echo, h Handlers, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}

	g.POST("/checkout", h.Checkout.Start, middleware.RequireRole(model.RoleAttendee))
	g.GET("/checkout/:id", h.Checkout.Get)
	g.PUT("/checkout/:id/quantity", h.Checkout.SetQuantity)
	g.POST("/checkout/:id/payment", h.Checkout.SubmitPayment)
	g.DELETE("/checkout/:id", h.Checkout.Cancel)

	g.GET("/bookings", h.Bookings.ListMine)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.GET("/bookings/:id/qr", h.Bookings.QRCode)

	g.POST("/events/:id/reviews", h.Reviews.Create)
	g.POST("/reviews/:id/flag", h.Reviews.Flag)
}

// RegisterOrganizer registers event management for organizers.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group("/v1/organizer")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin))

	g.POST("/events", o.CreateEvent)
	g.GET("/events", o.ListMyEvents)
	g.PUT("/events/:id", o.UpdateEvent)
	g.DELETE("/events/:id", o.DeleteEvent)
	g.GET("/events/:id/bookings", o.ListEventBookings)
	g.POST("/events/:id/broadcast", o.BroadcastEmail)
}

// RegisterAdmin registers moderation and platform management.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/events/pending", a.ListPendingEvents)
	g.POST("/events/:id/approve", a.ApproveEvent)
	g.DELETE("/events/:id", a.RejectEvent)
	g.PUT("/events/:id/feature", a.FeatureEvent)

	g.GET("/users", a.ListUsers)
	g.PUT("/users/:id/active", a.SetUserActive)

	g.GET("/reviews/flagged", a.ListFlaggedReviews)
	g.PUT("/reviews/:id/dismiss", a.DismissReviewFlag)
	g.DELETE("/reviews/:id", a.DeleteReview)

	g.DELETE("/bookings/:id", a.CancelBooking)

	g.GET("/stats", a.GetStats)

	g.GET("/commission", a.GetCommission)
	g.PUT("/commission", a.UpdateCommission)
}
