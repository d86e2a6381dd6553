package http

import (
	"github.com/labstack/echo/v4"

	"github.com/sheetviz/access-api/internal/infrastructure/http/handlers"
)

// RegisterProbes mounts the unauthenticated health endpoints on e.
func RegisterProbes(e *echo.Echo, checks ...handlers.Check) {
	h := handlers.NewHealthHandler(checks...)

	e.GET("/health", h.Liveness)        // liveness: process is up
	e.GET("/health/ready", h.Readiness) // readiness: mongo and redis answer
}
