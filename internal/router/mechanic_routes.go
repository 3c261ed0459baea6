package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mechworks/workshop-api/internal/handler"
)

// RegisterMechanics wires the mechanic endpoints. The ranked listing at
// /top is public so the workshop can show it on its site.
func RegisterMechanics(e *echo.Echo, h *handler.MechanicHandler, s *Stack) {
	g := e.Group("/v1/mechanics")

	g.POST("", h.Register, s.CreationLimit)
	g.POST("/login", h.Login, s.CreationLimit)
	g.GET("/top", h.Top, s.ReadLimit, s.Cache)

	authed := e.Group("/v1/mechanics", s.JWT, s.Role)
	authed.GET("", h.List, s.ReadLimit, s.Cache)
	authed.GET("/:id", h.Get, s.ReadLimit, s.Cache)
	authed.PUT("/:id", h.Update)
	authed.DELETE("/:id", h.Delete)
}
