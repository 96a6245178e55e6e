package handler // package handler holds the HTTP handlers of the operator API

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health is the liveness probe.  It answers "ok" while the process runs,
// whether or not a simulation is in progress.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
