package handler

import (
    "context"
    "log/slog"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-rental/internal/model"
    "github.com/iliyamo/movie-rental/internal/rental"
)

// RentalService is the part of rental.Service the HTTP layer uses.
type RentalService interface {
    ListRentals(ctx context.Context) ([]model.Rental, error)
    ListRentalsFiltered(ctx context.Context, f rental.RentalFilter) ([]model.Rental, error)
    ListRentalsByUser(ctx context.Context, userID uint64) ([]model.Rental, error)
    GetRentalByID(ctx context.Context, id uint64) (*model.Rental, error)
    CreateRental(ctx context.Context, userID uint64, movieIDs []uint64, daysUntilReturn int) (*model.Rental, error)
    CloseRental(ctx context.Context, rentalID uint64) (*model.Rental, error)
}

// RentalHandler exposes rentals over HTTP.  Every route sits behind JWTAuth:
// admins act on any rental, customers only on their own.
type RentalHandler struct {
    Svc     RentalService
    MaxDays int
    Log     *slog.Logger
}

// NewRentalHandler panics on a nil service.
func NewRentalHandler(svc RentalService, maxDays int, log *slog.Logger) *RentalHandler {
    if svc == nil {
        panic("nil service passed to NewRentalHandler")
    }
    if log == nil {
        log = slog.Default()
    }
    return &RentalHandler{Svc: svc, MaxDays: maxDays, Log: log}
}

type createRentalReq struct {
    UserID   uint64   `json:"user_id"`
    MovieIDs []uint64 `json:"movie_ids" validate:"required,min=1,dive,gt=0"`
    Days     int      `json:"days" validate:"required,gte=1"`
}

// List handles GET /v1/rentals.  Admins get every rental, optionally
// filtered by ?user_id= and ?closed=; customers get their own history.
func (h *RentalHandler) List(c echo.Context) error {
    ctx := c.Request().Context()
    if !isAdmin(c) {
        uid, err := getUserID(c)
        if err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        }
        items, err := h.Svc.ListRentalsByUser(ctx, uid)
        if err != nil {
            return rentalError(c, h.Log, "list rentals", err)
        }
        return c.JSON(http.StatusOK, echo.Map{"items": toRentalResps(items)})
    }

    var f rental.RentalFilter
    if v := c.QueryParam("user_id"); v != "" {
        id, err := strconv.ParseUint(v, 10, 64)
        if err != nil || id == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
        }
        f.UserID = &id
    }
    if v := c.QueryParam("closed"); v != "" {
        closed, err := strconv.ParseBool(v)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid closed"})
        }
        f.Closed = &closed
    }

    var (
        items []model.Rental
        err   error
    )
    if f.UserID == nil && f.Closed == nil {
        items, err = h.Svc.ListRentals(ctx)
    } else {
        items, err = h.Svc.ListRentalsFiltered(ctx, f)
    }
    if err != nil {
        return rentalError(c, h.Log, "list rentals", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": toRentalResps(items)})
}

// Get handles GET /v1/rentals/:id.  A customer asking for someone else's
// rental gets 404 so ids of other users are not disclosed.
func (h *RentalHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
    }
    r, err := h.Svc.GetRentalByID(c.Request().Context(), id)
    if err != nil {
        return rentalError(c, h.Log, "get rental", err)
    }
    if !h.canAccess(c, r.UserID) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": rental.MsgRentalNotFound})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toRentalResp(*r)})
}

// Create handles POST /v1/rentals.  user_id defaults to the caller;
// customers cannot rent on behalf of someone else.
func (h *RentalHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createRentalReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error", "details": err.Error()})
    }
    if h.MaxDays > 0 && req.Days > h.MaxDays {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be at most " + strconv.Itoa(h.MaxDays)})
    }
    if req.UserID == 0 {
        req.UserID = uid
    }
    if !isAdmin(c) && req.UserID != uid {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }

    r, err := h.Svc.CreateRental(c.Request().Context(), req.UserID, req.MovieIDs, req.Days)
    if err != nil {
        return rentalError(c, h.Log, "create rental", err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"item": toRentalResp(*r)})
}

// Close handles POST /v1/rentals/:id/close.
func (h *RentalHandler) Close(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
    }
    ctx := c.Request().Context()
    if !isAdmin(c) {
        r, err := h.Svc.GetRentalByID(ctx, id)
        if err != nil {
            return rentalError(c, h.Log, "close rental", err)
        }
        if !h.canAccess(c, r.UserID) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": rental.MsgRentalNotFound})
        }
    }
    r, err := h.Svc.CloseRental(ctx, id)
    if err != nil {
        return rentalError(c, h.Log, "close rental", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toRentalResp(*r)})
}

func (h *RentalHandler) canAccess(c echo.Context, owner uint64) bool {
    if isAdmin(c) {
        return true
    }
    uid, err := getUserID(c)
    return err == nil && uid == owner
}

func toRentalResps(rs []model.Rental) []rentalResp {
    out := make([]rentalResp, 0, len(rs))
    for _, r := range rs {
        out = append(out, toRentalResp(r))
    }
    return out
}
