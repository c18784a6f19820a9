package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/platform/gateway/internal/config"
	"github.com/Skotchmaster/platform/gateway/internal/httpserver"
	"github.com/Skotchmaster/platform/pkg/authclient"
	"github.com/Skotchmaster/platform/pkg/logging"
	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	"github.com/Skotchmaster/platform/pkg/tokens"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "gateway")

	verifier, err := tokens.NewVerifier(cfg.Auth.SigningKey, tokens.WithLeeway(cfg.Auth.ClockSkew))
	if err != nil {
		log.Fatalf("token verifier: %v", err)
	}
	// The gateway is the edge: header identities from clients are never trusted.
	gate := authmw.NewGate(verifier, authmw.Options{FallbackEnabled: false})
	autoRefresh := authmw.NewAutoRefresh(verifier, authclient.NewClient(cfg.AuthURL))

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:      cfg.AuthURL,
		PostsURL:     cfg.PostsURL,
		ProfilesURL:  cfg.ProfilesURL,
		PaymentsURL:  cfg.PaymentsURL,
		GalleriesURL: cfg.GalleriesURL,
		Gate:         gate,
		AutoRefresh:  autoRefresh,
		Logger:       logger,
	}); err != nil {
		log.Fatal(err)
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.ListenAddr)
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
