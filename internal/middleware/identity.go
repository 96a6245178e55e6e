package middleware

// identity.go holds the helper that turns the authenticated subject stored
// by JWTAuth into a key component for the rate limiter.

import (
    "github.com/labstack/echo/v4"
)

// subject returns the operator name set by JWTAuth, or "anon" for
// unauthenticated requests.
func subject(c echo.Context) string {
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "anon"
}
