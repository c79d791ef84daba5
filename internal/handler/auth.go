package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/bus-ticket-reservation/internal/config"
    "github.com/iliyamo/bus-ticket-reservation/internal/model"
    "github.com/iliyamo/bus-ticket-reservation/internal/repository"
    "github.com/iliyamo/bus-ticket-reservation/internal/utils"
)

// UserStore is the account surface the auth endpoints need.
type UserStore interface {
    Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore keeps refresh token hashes.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    Rotate(ctx context.Context, oldHash, newHash string, newExp, now time.Time) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
}

// AuthHandler issues the caller identities the booking routes rely on:
// travelers register themselves, admins are seeded, and the role claim
// of the access token decides whether a caller may act on other
// travelers' bookings.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
    now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, now: time.Now}
}

type credentials struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

type session struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// bindCredentials reads and normalizes an email/password body.
func bindCredentials(c echo.Context) (credentials, bool) {
    var req credentials
    if err := c.Bind(&req); err != nil {
        return req, false
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    return req, req.Email != "" && req.Password != ""
}

// accessFor signs an access token for u.
func (h *AuthHandler) accessFor(u model.User) (tokenPart, error) {
    at, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    return tokenPart{Token: at.Token, Expires: at.Exp}, err
}

// openSession issues and stores a fresh refresh token alongside an
// access token.
func (h *AuthHandler) openSession(ctx context.Context, u model.User) (session, error) {
    access, err := h.accessFor(u)
    if err != nil {
        return session{}, err
    }
    rt, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return session{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(rt.Raw), rt.Exp); err != nil {
        return session{}, err
    }
    return session{
        User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access:  access,
        Refresh: tokenPart{Token: rt.Raw, Expires: rt.Exp},
    }, nil
}

// Register handles POST /v1/auth/register.  Self-registration always
// creates a CUSTOMER.
func (h *AuthHandler) Register(c echo.Context) error {
    req, ok := bindCredentials(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password required"})
    }
    if err := utils.CheckPassword(req.Password); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := reqCtx(c, h.Cfg.RequestTimeout)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleCustomer, h.Cfg.BcryptCost)
    if errors.Is(err, repository.ErrEmailExists) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
    }
    if err != nil {
        return respondError(c, "auth", err)
    }
    s, err := h.openSession(ctx, model.User{ID: uid, Email: req.Email, Role: model.RoleCustomer})
    if err != nil {
        return respondError(c, "auth", err)
    }
    return c.JSON(http.StatusCreated, s)
}

// Login handles POST /v1/auth/login.  Unknown emails and wrong passwords
// get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
    req, ok := bindCredentials(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password required"})
    }
    ctx, cancel := reqCtx(c, h.Cfg.RequestTimeout)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if errors.Is(err, repository.ErrUserNotFound) || (err == nil && !utils.VerifyPassword(u.PasswordHash, req.Password)) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    if err != nil {
        return respondError(c, "auth", err)
    }
    if !u.IsActive {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
    }
    s, err := h.openSession(ctx, u)
    if err != nil {
        return respondError(c, "auth", err)
    }
    return c.JSON(http.StatusOK, s)
}

// Refresh handles POST /v1/auth/refresh.  The presented token is
// rotated; replaying it afterwards fails.  The role is re-read from the
// store so a demoted admin loses admin rights at the next refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    ctx, cancel := reqCtx(c, h.Cfg.RequestTimeout)
    defer cancel()

    next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return respondError(c, "auth", err)
    }
    now := h.now().UTC()
    nextHash := utils.HashRefreshRaw(next.Raw)
    uid, err := h.Tokens.Rotate(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)), nextHash, next.Exp, now)
    if errors.Is(err, repository.ErrRefreshInvalid) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
    }
    if err != nil {
        return respondError(c, "auth", err)
    }

    u, err := h.Users.GetByID(ctx, uid)
    if err == nil && !u.IsActive {
        err = repository.ErrUserNotFound
    }
    if err != nil {
        _ = h.Tokens.RevokeByHash(ctx, nextHash, now)
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        return respondError(c, "auth", err)
    }
    access, err := h.accessFor(u)
    if err != nil {
        return respondError(c, "auth", err)
    }
    return c.JSON(http.StatusOK, session{
        User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
        Access:  access,
        Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
    })
}

// Logout handles POST /v1/auth/logout and revokes one refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    ctx, cancel := reqCtx(c, h.Cfg.RequestTimeout)
    defer cancel()
    if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)), h.now().UTC()); err != nil {
        return respondError(c, "auth", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Me handles GET /v1/me.  can_cancel_any tells clients whether the
// caller may cancel other travelers' bookings.
func (h *AuthHandler) Me(c echo.Context) error {
    who, ok := caller(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "user_id":        who.UserID,
        "role":           who.Role,
        "can_cancel_any": who.Role == model.RoleAdmin,
    })
}
