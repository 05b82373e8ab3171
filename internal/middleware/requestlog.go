package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID tags every request with a uuid X-Request-ID unless the client
// already sent one.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: uuid.NewString,
    })
}

// RequestLog writes one structured line per request to log.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo's error handler set the final status before logging
                c.Error(err)
            }
            attrs := []any{
                "method", c.Request().Method,
                "path", c.Path(),
                "status", c.Response().Status,
                "latency_ms", time.Since(start).Milliseconds(),
                "req_id", c.Response().Header().Get(echo.HeaderXRequestID),
                "ip", c.RealIP(),
                "user", identity(c),
            }
            if c.Response().Status >= 500 {
                log.Error("http", attrs...)
            } else {
                log.Info("http", attrs...)
            }
            return nil
        }
    }
}
