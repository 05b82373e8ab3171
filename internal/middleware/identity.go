package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// identity returns the authenticated user id as a string for use in Redis
// keys, or "guest" when the request carries no identity.
func identity(c echo.Context) string {
    if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
