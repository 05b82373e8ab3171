package handler

import (
    "context"
    "database/sql"
    "errors"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/movie-rental/internal/config"
    "github.com/iliyamo/movie-rental/internal/model"
    "github.com/iliyamo/movie-rental/internal/repository"
    "github.com/iliyamo/movie-rental/internal/utils"
)

// UserStore is the account persistence used by AuthHandler.
type UserStore interface {
    Create(ctx context.Context, u repository.NewUser, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth and user endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    Log    *slog.Logger
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, log *slog.Logger) *AuthHandler {
    if log == nil {
        log = slog.Default()
    }
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Name      string `json:"name" validate:"required,max=100"`
    LastName  string `json:"last_name" validate:"required,max=100"`
    CPF       string `json:"cpf" validate:"required,numeric,len=11"`
    Email     string `json:"email" validate:"required,email"`
    BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
    Password  string `json:"password" validate:"required,min=8,max=72"`
    Role      string `json:"role"` // CUSTOMER | ADMIN
}
type loginReq struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type authResp struct {
    User    userResp  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// Register creates a user and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.CPF = strings.TrimSpace(req.CPF)
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation error", "details": err.Error()})
    }
    birth, err := time.Parse(dateLayout, req.BirthDate)
    if err != nil || birth.After(time.Now()) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birth_date"})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != model.RoleAdmin {
        role = model.RoleCustomer
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, repository.NewUser{
        BirthDate: birth,
        CPF:       req.CPF,
        Email:     req.Email,
        Name:      req.Name,
        LastName:  req.LastName,
        Password:  req.Password,
        Role:      role,
    }, h.Cfg.BcryptCost)
    switch {
    case errors.Is(err, repository.ErrEmailExists):
        return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
    case errors.Is(err, repository.ErrCPFExists):
        return c.JSON(http.StatusConflict, echo.Map{"error": "cpf already exists"})
    case err != nil:
        h.Log.Error("create user failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    u := model.User{ID: uid, BirthDate: birth, CPF: req.CPF, Email: req.Email,
        Name: req.Name, LastName: req.LastName, Role: role}
    return h.issue(ctx, c, http.StatusCreated, u)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        h.Log.Error("load user failed", "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    return h.issue(ctx, c, http.StatusOK, u)
}

// issue signs an access token, stores a fresh refresh token and writes both.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, u model.User) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        h.Log.Error("save refresh failed", "user_id", u.ID, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    return c.JSON(status, authResp{
        User:    toUserResp(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

// Refresh exchanges a refresh token for a new pair.  The old refresh token
// is revoked in the same transaction the new one is stored.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    return c.JSON(http.StatusOK, authResp{
        User:    toUserResp(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
    })
}

// RefreshAccess issues a new access token for a valid refresh token
// without rotating it.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an Authorization header is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
        if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
            uid, _ = claims.UserID()
        }
    }
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    case uid != 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return h.writeUser(c, uid)
}

// GetUser handles GET /v1/users/:id for admins.
func (h *AuthHandler) GetUser(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    return h.writeUser(c, id)
}

func (h *AuthHandler) writeUser(c echo.Context, id uint64) error {
    u, err := h.Users.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        h.Log.Error("load user failed", "user_id", id, "err", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"item": toUserResp(u)})
}
