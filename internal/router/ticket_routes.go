package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/handler"
	"github.com/mechworks/workshop-api/internal/middleware"
)

// RegisterTickets wires the service-ticket endpoints. Reads are open to
// any resolved identity (the handlers enforce per-ticket visibility);
// every mutation requires the mechanic role.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, s *Stack) {
	g := e.Group("/v1/service-tickets", s.JWT, s.Role)

	g.GET("", h.List, s.ReadLimit)
	g.GET("/:id", h.Get, s.ReadLimit)
	g.GET("/:id/parts", h.Parts, s.ReadLimit)

	mech := middleware.RequireMechanic()
	g.POST("", h.Create, mech, s.CreationLimit)
	g.PUT("/:id", h.Update, mech)
	g.DELETE("/:id", h.Delete, mech)
	g.PUT("/:id/assign-mechanic/:mechanic_id", h.AssignMechanic, mech)
	g.DELETE("/:id/remove-mechanic/:mechanic_id", h.RemoveMechanic, mech)
	g.PUT("/:id/edit", h.Edit, mech)
	g.POST("/:id/add-parts", h.AddParts, mech, s.CreationLimit)
	g.DELETE("/:id/remove-part/:part_id", h.RemovePart, mech)
}
