package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/handler"
)

// RegisterCustomers wires the customer endpoints. Signup and login are
// open; everything else requires an authenticated, resolved identity.
func RegisterCustomers(e *echo.Echo, h *handler.CustomerHandler, s *Stack) {
	g := e.Group("/v1/customers")

	g.POST("", h.Register, s.CreationLimit)
	g.POST("/login", h.Login, s.CreationLimit)

	authed := e.Group("/v1/customers", s.JWT, s.Role)
	authed.GET("", h.List, s.ReadLimit, s.Cache)
	authed.GET("/my-tickets", h.MyTickets, s.ReadLimit)
	authed.GET("/:id", h.Get, s.ReadLimit, s.Cache)
	authed.PUT("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)
}
