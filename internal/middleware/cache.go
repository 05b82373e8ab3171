package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/movie-rental/internal/config"
)

// cachedResponse is what the cache stores per key.
type cachedResponse struct {
    Status int         `json:"status"`
    Header http.Header `json:"header"`
    Body   []byte      `json:"body"`
}

// captureWriter tees the response body (up to limit bytes) while it is
// written to the client.
type captureWriter struct {
    http.ResponseWriter
    status    int
    buf       bytes.Buffer
    limit     int
    truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
        cw.truncated = true
    } else {
        cw.buf.Write(b)
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKey builds a stable key from the request according to the strategy.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = []string{"route", c.Path()}
    case "method_route":
        parts = []string{"method", r.Method, "route", c.Path()}
    case "method_route_query":
        parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
    default: // "route_query"
        parts = []string{"route", c.Path(), "q", r.URL.RawQuery}
    }
    // path parameters are part of the URL, not of c.Path()
    parts = append(parts, "url", r.URL.Path)
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// NewRedisCache caches successful responses of the configured methods in
// Redis.  Hits are replayed with their original headers plus X-Cache: HIT.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 15 * time.Second
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := cacheKey(cfg, c)

            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(bs, &hit) == nil {
                    return replay(c, hit)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.truncated {
                return nil
            }
            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            hdr.Del(echo.HeaderXRequestID)
            payload, err := json.Marshal(cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
            if err == nil {
                _ = rdb.Set(context.Background(), key, payload, ttl).Err()
            }
            return nil
        }
    }
}

func replay(c echo.Context, hit cachedResponse) error {
    h := c.Response().Header()
    for k, vals := range hit.Header {
        if strings.EqualFold(k, echo.HeaderContentLength) {
            continue
        }
        for _, v := range vals {
            h.Add(k, v)
        }
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(hit.Status)
    _, err := c.Response().Write(hit.Body)
    return err
}
