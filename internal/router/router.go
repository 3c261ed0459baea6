// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mechworks/workshop-api/internal/auth"
	"github.com/mechworks/workshop-api/internal/config"
	"github.com/mechworks/workshop-api/internal/handler"
	"github.com/mechworks/workshop-api/internal/middleware"
)

// Stack holds the middleware chain shared by every route group. The
// order is fixed: token verification, then role resolution, then rate
// limiting, then the response cache. An expired or malformed token is
// rejected before it ever reaches a rate-limit bucket.
type Stack struct {
	JWT           echo.MiddlewareFunc
	Role          echo.MiddlewareFunc
	CreationLimit echo.MiddlewareFunc
	ReadLimit     echo.MiddlewareFunc
	Cache         echo.MiddlewareFunc
}

// NewStack builds the shared middleware set. rdb may be nil; rate
// limiting and caching then pass requests straight through.
func NewStack(cfg config.Config, rlCfg config.RateLimitConfig, cacheCfg config.CacheConfig, resolver *auth.Resolver, rdb *redis.Client) *Stack {
	return &Stack{
		JWT:           middleware.JWTAuth(cfg.JWTSecret),
		Role:          middleware.ResolveRole(resolver),
		CreationLimit: middleware.NewTokenBucket(rlCfg, "creation", rlCfg.Creation, rdb),
		ReadLimit:     middleware.NewTokenBucket(rlCfg, "read", rlCfg.Read, rdb),
		Cache:         middleware.NewRedisCache(cacheCfg, rdb),
	}
}

// RegisterRoutes registers routes that do not belong to a resource
// group. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
