package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // sentinel error matching
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "go.uber.org/zap"

    "github.com/iliyamo/cinema-ticket-booking/internal/auth"       // pluggable credential check
    "github.com/iliyamo/cinema-ticket-booking/internal/middleware" // identity helpers
    "github.com/iliyamo/cinema-ticket-booking/internal/model"
    "github.com/iliyamo/cinema-ticket-booking/internal/repository" // sentinel errors
    "github.com/iliyamo/cinema-ticket-booking/internal/utils"      // token issuing
)

// UserStore is implemented by repository.UserRepo and memory.Users.
type UserStore interface {
    Create(ctx context.Context, name, email, credential string) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by repository.TokenRepo and memory.Tokens.
type TokenStore interface {
    Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    Validate(ctx context.Context, tokenHash string) (uint64, error)
    Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
    Revoke(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// TokenConfig carries what the handler needs to issue tokens.
type TokenConfig struct {
    Secret         string
    AccessTTLMin   int
    RefreshTTLDays int
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Tokens TokenConfig
    Users  UserStore
    Store  TokenStore
    Auth   auth.Authenticator
    Log    *zap.Logger
}

func NewAuthHandler(tc TokenConfig, u UserStore, t TokenStore, a auth.Authenticator, log *zap.Logger) *AuthHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AuthHandler{Tokens: tc, Users: u, Store: t, Auth: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
}
type loginReq struct {
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
    Name  string `json:"name"`
    Email string `json:"email"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

const minPasswordLen = 8

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = repository.NormalizeEmail(req.Email)
    req.Name = strings.TrimSpace(req.Name)
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if !strings.Contains(req.Email, "@") {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
    }
    if len(req.Password) < minPasswordLen {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
    }
    if req.Name == "" {
        req.Name = req.Email[:strings.Index(req.Email, "@")]
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    cred, err := h.Auth.Hash(req.Password)
    if err != nil {
        h.Log.Error("hash password", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    uid, err := h.Users.Create(ctx, req.Name, req.Email, cred)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        h.Log.Error("create user", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    return h.issue(ctx, c, http.StatusCreated, model.User{ID: uid, Name: req.Name, Email: req.Email})
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = repository.NormalizeEmail(req.Email)
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        h.Log.Error("load user", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !u.IsActive || !h.Auth.Authenticate(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    return h.issue(ctx, c, http.StatusOK, u)
}

// issue signs an access token, stores a fresh refresh token and writes the
// pair.
func (h *AuthHandler) issue(ctx context.Context, c echo.Context, status int, u model.User) error {
    access, err := utils.NewAccessToken(h.Tokens.Secret, u.ID, u.Email, h.Tokens.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Tokens.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Store.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        h.Log.Error("store refresh token", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }
    return c.JSON(status, authResp{
        User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

// Refresh: validate by hash, rotate, issue new pair.  A refresh token can
// be exchanged once.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Store.Validate(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }

    access, err := utils.NewAccessToken(h.Tokens.Secret, u.ID, u.Email, h.Tokens.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    newRef, err := utils.NewRefreshToken(h.Tokens.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Store.Rotate(ctx, u.ID, hash, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
        if errors.Is(err, repository.ErrTokenInvalid) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
    })
}

// Logout revokes one session when a refresh_token is supplied, otherwise
// every session of the authenticated user.  Mounted behind JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req refreshReq
    _ = c.Bind(&req) // body is optional

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
        hash := utils.HashRefreshRaw(raw)
        owner, err := h.Store.Validate(ctx, hash)
        if err != nil || owner != uid {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Store.Revoke(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }
    if err := h.Store.RevokeAllForUser(ctx, uid); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    email, _ := middleware.UserEmail(c)
    return c.JSON(http.StatusOK, echo.Map{
        "user_id": uid,
        "email":   email,
    })
}
