package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/platform/pkg/middleware/logging"
)

func Common(logger *slog.Logger) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		loggingmw.RequestLogger(logger),
		ecM.Secure(),
	}
}

// StripIdentity drops identity headers supplied by the client. Register it
// with e.Pre so nothing downstream ever sees them.
func StripIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authmw.StripIdentityHeaders(c.Request().Header)
		return next(c)
	}
}
