package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.RegisterCompany)
	authGroup.Post("/register/member", cfg.Users.RegisterMember)
	authGroup.Post("/login", cfg.Users.Login)

	me := authGroup.Group("/me", cfg.AuthMiddleware.Handle)
	me.Get("", cfg.Users.Me)
	me.Put("/skills", auth.RequireRole(domain.RoleModerator, domain.RoleAdmin), cfg.Users.UpdateSkills)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/assigned", auth.RequireRole(domain.RoleModerator, domain.RoleAdmin), cfg.Tickets.ListAssigned)
	tickets.Get("/company", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.ListCompany)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", auth.RequireRole(domain.RoleModerator, domain.RoleAdmin), cfg.Tickets.UpdateStatus)
}
