package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-rental/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id" // uint64
    CtxRole   = "role"    // string
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the user id (uint64) and role (string) in the request context
// under CtxUserID and CtxRole.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            uid, err := claims.UserID()
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            c.Set(CtxUserID, uid)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}
