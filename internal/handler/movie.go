package handler

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-rental/internal/model"
    "github.com/iliyamo/movie-rental/internal/repository"
)

// MovieStore is the catalogue persistence used by MovieHandler.
type MovieStore interface {
    Create(ctx context.Context, name string, adultsOnly bool) (model.Movie, error)
    GetByID(ctx context.Context, id uint64) (model.Movie, error)
    List(ctx context.Context, onlyAvailable bool) ([]model.Movie, error)
    Delete(ctx context.Context, id uint64) error
}

// MovieHandler serves the movie catalogue.  Reads are public; writes are
// restricted to admins by the router.
type MovieHandler struct {
    Movies MovieStore
    Log    *slog.Logger
}

func NewMovieHandler(movies MovieStore, log *slog.Logger) *MovieHandler {
    if movies == nil {
        panic("nil repository passed to NewMovieHandler")
    }
    if log == nil {
        log = slog.Default()
    }
    return &MovieHandler{Movies: movies, Log: log}
}

type createMovieReq struct {
    Name       string `json:"name" validate:"required,max=255"`
    AdultsOnly bool   `json:"adults_only"`
}

// List handles GET /v1/movies.  ?available=true hides checked out movies.
func (h *MovieHandler) List(c echo.Context) error {
    onlyAvailable := false
    if v := c.QueryParam("available"); v != "" {
        b, err := strconv.ParseBool(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid available"})
        }
        onlyAvailable = b
    }
    movies, err := h.Movies.List(c.Request().Context(), onlyAvailable)
    if err != nil {
        h.Log.Error("list movies failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movies"})
    }
    items := make([]movieResp, 0, len(movies))
    for _, m := range movies {
        items = append(items, toMovieResp(m))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    m, err := h.Movies.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        h.Log.Error("get movie failed", "movie_id", id, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load movie"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toMovieResp(m)})
}

// Create handles POST /v1/movies.
func (h *MovieHandler) Create(c echo.Context) error {
    var req createMovieReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error", "details": err.Error()})
    }
    m, err := h.Movies.Create(c.Request().Context(), req.Name, req.AdultsOnly)
    if err != nil {
        h.Log.Error("create movie failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create movie"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toMovieResp(m)})
}

// Delete handles DELETE /v1/movies/:id.  A checked out movie answers 409.
func (h *MovieHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    err := h.Movies.Delete(c.Request().Context(), id)
    switch {
    case err == nil:
        return c.NoContent(http.StatusNoContent)
    case errors.Is(err, repository.ErrMovieNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "movie is currently rented"})
    }
    h.Log.Error("delete movie failed", "movie_id", id, "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete movie"})
}
