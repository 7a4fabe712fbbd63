package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
	"github.com/iliyamo/travel-lottery/internal/middleware"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/repository"
	"github.com/iliyamo/travel-lottery/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts repository.Accounts
	Log      logrus.FieldLogger
}

func NewAuthHandler(cfg config.Config, accounts repository.Accounts, log logrus.FieldLogger) *AuthHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=190"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID           uint64 `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenBalance int64  `json:"token_balance"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role, TokenBalance: u.TokenBalance}
}

// Register creates a player account credited with the welcome tokens and
// returns a token pair.  Operators come from EnsureOperator at startup.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	u := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RolePlayer,
		TokenBalance: h.Cfg.WelcomeTokens,
	}
	if err := h.Accounts.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return respondError(c, h.Log, err)
	}
	return h.issuePair(c, u, http.StatusCreated)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return respondError(c, h.Log, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.issuePair(c, u, http.StatusOK)
}

// Refresh validates a refresh token by hash, revokes it and issues a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Accounts.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if err := h.Accounts.RevokeRefresh(ctx, hash); err != nil {
		return respondError(c, h.Log, err)
	}
	u, err := h.Accounts.GetUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	return h.issuePair(c, u, http.StatusOK)
}

// RefreshAccess returns a new access token without rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Accounts.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Accounts.GetUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes the refresh token in the body.  With no body but a valid
// bearer token (the route runs JWTAuth optionally) every session of the
// caller is revoked.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := requestContext(c)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Accounts.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Accounts.RevokeRefresh(ctx, hash); err != nil {
			return respondError(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	if uid, ok := middleware.UserID(c); ok {
		if err := h.Accounts.RevokeAllRefresh(ctx, uid); err != nil {
			return respondError(c, h.Log, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the caller's account including the current token balance.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

func (h *AuthHandler) issuePair(c echo.Context, u model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Accounts.StoreRefresh(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(status, authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
