package handler

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-rental/internal/middleware"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newCtx builds an echo context as JWTAuth would leave it.  uid 0 means an
// anonymous request.
func newCtx(method, target, body string, uid uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != 0 {
		c.Set(middleware.CtxUserID, uid)
		c.Set(middleware.CtxRole, role)
	}
	return c, rec
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

