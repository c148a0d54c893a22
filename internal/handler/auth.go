package handler

import (
    "context"  // store interface signatures
    "errors"   // sentinel comparison
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry in responses

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-series/internal/config"     // app configuration
    "github.com/iliyamo/wild-series/internal/model"      // user roles
    "github.com/iliyamo/wild-series/internal/repository" // sentinel errors
    "github.com/iliyamo/wild-series/internal/utils"      // helper functions (hashing, token issuing)
)

// UserStore is the part of repository.UserRepo used for authentication.
type UserStore interface {
    Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg   config.Config
    Users UserStore
    Log   *logrus.Entry
}

func NewAuthHandler(cfg config.Config, u UserStore, log *logrus.Entry) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
    Email    string `json:"email" form:"email" validate:"required,email,max=255"`
    Password string `json:"password" form:"password" validate:"required,min=8,max=72"`
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
type authResp struct {
    User   userPart  `json:"user"`
    Access tokenPart `json:"access"`
}

// Register creates a USER account and returns an access token immediately.
// Outside production, addresses listed in ADMIN_EMAILS register as ADMIN;
// production administrators must be seeded in the users table.
func (h *AuthHandler) Register(c echo.Context) error {
    req, ok := h.bindCredentials(c)
    if !ok {
        return nil
    }

    role := model.RoleUser
    if !isProduction(h.Cfg.Env) {
        for _, e := range h.Cfg.AdminEmails {
            if e == req.Email {
                role = model.RoleAdmin
                break
            }
        }
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        h.Log.WithError(err).Error("create user")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }
    return h.issue(c, http.StatusCreated, userPart{ID: uid, Email: req.Email, Role: role})
}

func isProduction(env string) bool {
    switch strings.ToLower(env) {
    case "prod", "production":
        return true
    }
    return false
}

// Login verifies the credentials and returns a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
    req, ok := h.bindCredentials(c)
    if !ok {
        return nil
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        h.Log.WithError(err).Error("load user")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    return h.issue(c, http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, err := actorID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
    }
    ctx, cancel := storeCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
        }
        h.Log.WithError(err).Error("load user")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}

// bindCredentials writes the 400 response itself and reports false when
// the body is unusable.
func (h *AuthHandler) bindCredentials(c echo.Context) (credentialsReq, bool) {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
        return req, false
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := c.Validate(&req); err != nil {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials format", "fields": fieldErrors(err)})
        return req, false
    }
    return req, true
}

func (h *AuthHandler) issue(c echo.Context, status int, u userPart) error {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        h.Log.WithError(err).Error("sign access token")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(status, authResp{
        User:   u,
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}
