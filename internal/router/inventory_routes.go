package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/handler"
	"github.com/mechworks/workshop-api/internal/middleware"
)

// RegisterInventory wires the parts catalogue. Any authenticated
// identity can browse it; only mechanics can change it.
func RegisterInventory(e *echo.Echo, h *handler.InventoryHandler, s *Stack) {
	g := e.Group("/v1/inventory", s.JWT, s.Role)

	g.GET("", h.List, s.ReadLimit, s.Cache)
	g.GET("/:id", h.Get, s.ReadLimit, s.Cache)

	g.POST("", h.Create, middleware.RequireMechanic(), s.CreationLimit)
	g.PUT("/:id", h.Update, middleware.RequireMechanic())
	g.DELETE("/:id", h.Delete, middleware.RequireMechanic())
}
