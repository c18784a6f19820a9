package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	"github.com/Skotchmaster/platform/pkg/roles"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Gate        *authmw.Gate
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	e.POST("/logout", d.AuthHandler.LogOut, d.Gate.RequireAuth)
	e.GET("/me", d.AuthHandler.Me, d.Gate.RequireAuth)

	// Header-asserted identities never reach account administration.
	admin := e.Group("/admin", d.Gate.RequireAuth, authmw.RequireVerified, authmw.RequireRole(roles.Admin))
	admin.PUT("/users/:id/active", d.AuthHandler.SetActive)
}
