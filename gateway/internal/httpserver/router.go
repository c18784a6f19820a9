package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/platform/gateway/internal/middleware"
	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	"github.com/Skotchmaster/platform/pkg/roles"
)

type Deps struct {
	AuthURL      string
	PostsURL     string
	ProfilesURL  string
	PaymentsURL  string
	GalleriesURL string

	Gate        *authmw.Gate
	// AutoRefresh is optional; without it expired tokens are simply rejected.
	AutoRefresh *authmw.AutoRefresh
	Logger      *slog.Logger
}

var writeMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

func Register(e *echo.Echo, d *Deps) error {
	e.Pre(middleware.StripIdentity)
	for _, m := range middleware.Common(d.Logger) {
		e.Use(m)
	}
	if d.AutoRefresh != nil {
		e.Use(d.AutoRefresh.Middleware)
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authProxy, err := newProxy(d.AuthURL, "/api/v1/auth")
	if err != nil {
		return err
	}
	e.Any("/api/v1/auth/admin/*", authProxy, d.Gate.RequireAuth, authmw.RequireRole(roles.Admin))
	e.Any("/api/v1/auth/*", authProxy, d.Gate.Optional)

	// Content services: reads are public, writes need a principal.
	for _, svc := range []struct{ name, url string }{
		{"posts", d.PostsURL},
		{"profiles", d.ProfilesURL},
		{"galleries", d.GalleriesURL},
	} {
		if svc.url == "" {
			continue
		}
		p, err := newProxy(svc.url, "/api/v1")
		if err != nil {
			return err
		}
		base := "/api/v1/" + svc.name
		for _, path := range []string{base, base + "/*"} {
			e.GET(path, p, d.Gate.Optional)
			e.Match(writeMethods, path, p, d.Gate.RequireAuth)
		}
	}

	if d.PaymentsURL != "" {
		p, err := newProxy(d.PaymentsURL, "/api/v1")
		if err != nil {
			return err
		}
		e.Any("/api/v1/payments", p, d.Gate.RequireAuth, authmw.RequireVerified)
		e.Any("/api/v1/payments/*", p, d.Gate.RequireAuth, authmw.RequireVerified)
	}

	return nil
}
