package router // package router registers the operator API routes

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-ticket-simulator/internal/handler"    // HTTP handlers
	"github.com/iliyamo/cinema-ticket-simulator/internal/middleware" // JWT, role, rate limit and cache middleware
	"github.com/iliyamo/cinema-ticket-simulator/internal/utils"      // operator role name
)

// RegisterRoutes registers the unauthenticated liveness probe.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSimulation registers the live simulation endpoints.  Reads are
// public.  Stopping a run requires an operator token, so the stop route is
// only registered when jwtSecret is set.
func RegisterSimulation(e *echo.Echo, h *handler.SimulationHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.GET("/simulation", h.GetSimulation)
	g.GET("/pool", h.GetPool)
	g.GET("/screens/:id", h.GetScreen)
	g.GET("/run/report", h.GetReport)

	if jwtSecret == "" {
		return
	}
	op := e.Group("/v1/run")
	op.Use(middleware.JWTAuth(jwtSecret))
	op.Use(middleware.RequireRole(utils.OperatorRole))
	op.POST("/stop", h.StopRun)
}

// RegisterAuth registers the operator login.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/v1/auth/login", a.Login)
}

// RegisterRuns registers the run history.  cache wraps only these routes;
// live endpoints always read the pool.
func RegisterRuns(e *echo.Echo, r *handler.RunsHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/runs", cache)
	g.GET("", r.ListRuns)
	g.GET("/:key", r.GetRun)
}
