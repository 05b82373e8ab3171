package handler // handler defines http handlers

import (
    "errors"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-rental/internal/middleware"
    "github.com/iliyamo/movie-rental/internal/model"
    "github.com/iliyamo/movie-rental/internal/rental"
)

const dateLayout = "2006-01-02"

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
    v *validator.Validate
}

// NewValidator returns the validator installed as e.Validator.
func NewValidator() *RequestValidator {
    return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the `validate` struct tags of i.
func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// getUserID returns the user id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

func getRole(c echo.Context) string {
    role, _ := c.Get(middleware.CtxRole).(string)
    return role
}

func isAdmin(c echo.Context) bool { return getRole(c) == model.RoleAdmin }

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// rentalError maps rental core errors to HTTP responses.  Anything that is
// not a rental error is logged and answered with 500.
func rentalError(c echo.Context, log *slog.Logger, op string, err error) error {
    switch rental.KindOf(err) {
    case rental.KindNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case rental.KindConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case rental.KindInvalid:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    log.Error(op+" failed", "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}

// ----- response DTOs -----

type rentalResp struct {
    ID          uint64     `json:"id"`
    Date        time.Time  `json:"date"`
    EndDate     time.Time  `json:"end_date"`
    UserID      uint64     `json:"user_id"`
    Closed      bool       `json:"closed"`
    ClosingDate *time.Time `json:"closing_date"`
    FeeCents    *int64     `json:"fee_cents"`
}

func toRentalResp(r model.Rental) rentalResp {
    return rentalResp{
        ID:          r.ID,
        Date:        r.Date,
        EndDate:     r.EndDate,
        UserID:      r.UserID,
        Closed:      r.Closed,
        ClosingDate: r.ClosingDate,
        FeeCents:    r.FeeCents,
    }
}

type movieResp struct {
    ID         uint64  `json:"id"`
    Name       string  `json:"name"`
    AdultsOnly bool    `json:"adults_only"`
    RentalID   *uint64 `json:"rental_id"`
}

func toMovieResp(m model.Movie) movieResp {
    return movieResp{ID: m.ID, Name: m.Name, AdultsOnly: m.AdultsOnly, RentalID: m.RentalID}
}

type userResp struct {
    ID        uint64 `json:"id"`
    Name      string `json:"name"`
    LastName  string `json:"last_name"`
    CPF       string `json:"cpf"`
    Email     string `json:"email"`
    BirthDate string `json:"birth_date"`
    Role      string `json:"role"`
}

func toUserResp(u model.User) userResp {
    return userResp{
        ID:        u.ID,
        Name:      u.Name,
        LastName:  u.LastName,
        CPF:       u.CPF,
        Email:     u.Email,
        BirthDate: u.BirthDate.Format(dateLayout),
        Role:      u.Role,
    }
}
