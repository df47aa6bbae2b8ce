package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"stream-relay-go/internal/policy"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves the banner, health, and status endpoints.
type HealthHandler struct {
	allowlist *policy.Allowlist
	version   Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(allowlist *policy.Allowlist, v Version) *HealthHandler {
	return &HealthHandler{allowlist: allowlist, version: v}
}

// Ping returns a plain-text banner for GET / and GET /ping.
func (h *HealthHandler) Ping(c echo.Context) error {
	return c.String(http.StatusOK, fmt.Sprintf("stream-relay %s ok", h.version))
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns relay status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"version":       string(h.version),
		"allowed_hosts": h.allowlist.Len(),
		"allow_all":     h.allowlist.Empty(),
	})
}
