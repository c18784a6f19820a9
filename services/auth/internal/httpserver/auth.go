package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/platform/pkg/logging"
	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	"github.com/Skotchmaster/platform/pkg/roles"
	"github.com/Skotchmaster/platform/pkg/tokens"
	"github.com/Skotchmaster/platform/services/auth/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// loginRequest only checks presence; length rules belong to registration so
// accounts created under older rules can still sign in.
type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func newTokenResponse(res *service.LoginResult) tokenResponse {
	return tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int64(res.AccessTTL / time.Second),
	}
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "register failed").SetInternal(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUserInactive):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed").SetInternal(err)
	}

	l.Info("login_successful", "user_id", res.UserID)
	return c.JSON(http.StatusOK, newTokenResponse(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.Svc.Refresh(ctx, req.RefreshToken)
	switch {
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUserInactive):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed").SetInternal(err)
	}

	return c.JSON(http.StatusOK, newTokenResponse(res))
}

// LogOut removes every refresh token of the caller. Runs behind RequireAuth.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	id, ok := authmw.FromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
	}
	userID, err := uuid.Parse(id.UserID)
	if err != nil {
		l.Warn("logout_error", "status", 401, "reason", "subject is not a user id")
		return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
	}

	n, err := h.Svc.LogOut(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed").SetInternal(err)
	}

	l.Info("successful_logout", "removed", n)
	return c.JSON(http.StatusOK, echo.Map{"removed": n})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	id, ok := authmw.FromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, tokens.UniformMessage)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId": id.UserID,
		"roles":  roles.Strings(id.Roles),
		"tier":   id.Tier.String(),
	})
}

// SetActive is the admin switch for an account. Runs behind RequireRole(ADMIN).
func (h *AuthHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err = h.Svc.SetUserActive(ctx, id, *req.Active)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": *req.Active})
}
