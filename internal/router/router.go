// Package router defines how the HTTP routes of the cafe API are registered.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/alextaweke/internet-cafe/internal/config"
	"github.com/alextaweke/internet-cafe/internal/handler"
	"github.com/alextaweke/internet-cafe/internal/middleware"
	"github.com/alextaweke/internet-cafe/internal/model"
)

// Handlers bundles every handler the router needs so main only wires one
// struct through.
type Handlers struct {
	Computers *handler.ComputerHandler
	Sessions  *handler.SessionHandler
	Reports   *handler.ReportHandler
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check for load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Login is public but
// rate limited per client IP; /api/auth/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login, middleware.NewLoginLimiter(config.LoadLoginLimitConfig(), rdb))

	me := e.Group("/api/auth")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}

// RegisterAPI registers the protected API.  Every route requires a valid
// access token; destructive and administrative operations additionally
// require the admin role.  Read-heavy GETs sit behind the Redis cache so
// the dashboard's polling does not hammer the database.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	api := e.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret))

	// Computer registry.
	api.GET("/computers", h.Computers.List, cache)
	api.POST("/computers", h.Computers.Create)
	api.DELETE("/computers/:id", h.Computers.Delete, adminOnly)
	api.PATCH("/computers/:id/status", h.Computers.SetStatus, adminOnly)
	api.POST("/computers/start-session", h.Computers.StartSession)
	api.POST("/computers/end-session", h.Computers.EndSession)

	// Sessions addressed by their own id.
	api.GET("/sessions", h.Sessions.List)
	api.GET("/sessions/active", h.Sessions.ListActive)
	api.POST("/sessions/start", h.Sessions.Start)
	api.GET("/sessions/:id", h.Sessions.GetByID)
	api.POST("/sessions/:id/end", h.Sessions.End)
	api.DELETE("/sessions/:id", h.Sessions.Delete, adminOnly)

	// Revenue reports.
	api.GET("/reports/daily", h.Reports.Daily, cache)
	api.GET("/reports/:period", h.Reports.Period, cache)
	api.GET("/reports/:period/export", h.Reports.Export)
}
