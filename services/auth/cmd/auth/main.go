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
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/platform/pkg/db"
	"github.com/Skotchmaster/platform/pkg/events"
	"github.com/Skotchmaster/platform/pkg/logging"
	authmw "github.com/Skotchmaster/platform/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/platform/pkg/middleware/logging"
	"github.com/Skotchmaster/platform/pkg/tokens"
	"github.com/Skotchmaster/platform/services/auth/internal/config"
	"github.com/Skotchmaster/platform/services/auth/internal/httpserver"
	"github.com/Skotchmaster/platform/services/auth/internal/reaper"
	"github.com/Skotchmaster/platform/services/auth/internal/repo"
	"github.com/Skotchmaster/platform/services/auth/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "auth")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil && cfg.Migrate {
		err = repo.Migrate(initCtx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	var refreshStore service.RefreshTokenStore
	switch cfg.RefreshStore {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		refreshStore = repo.NewRedisRefreshStore(rdb, cfg.Auth.RefreshTTL, "refresh:")
	case config.StorePostgres:
		refreshStore = repo.NewGormRefreshStore(gdb, cfg.Auth.RefreshTTL)
	default:
		log.Fatalf("unknown REFRESH_STORE %q", cfg.RefreshStore)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer publisher.Close()

	issuer, err := tokens.NewIssuer(cfg.Auth.SigningKey, cfg.Auth.AccessTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}
	verifier, err := tokens.NewVerifier(cfg.Auth.SigningKey, tokens.WithLeeway(cfg.Auth.ClockSkew))
	if err != nil {
		log.Fatalf("token verifier: %v", err)
	}
	gate := authmw.NewGate(verifier, authmw.Options{
		FallbackEnabled:        cfg.Auth.FallbackEnabled,
		FallbackOnInvalidToken: cfg.Auth.FallbackOnInvalidToken,
	})

	svc := &service.AuthService{
		Users:        repo.NewGormUserRepo(gdb),
		RefreshStore: refreshStore,
		Issuer:       issuer,
		Events:       publisher,
		Rotate:       cfg.Auth.RotateRefresh,
	}

	go reaper.New(refreshStore, cfg.Auth.ReaperInterval, logger).Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Gate:        gate,
	})

	go func() {
		logger.Info("auth listening", "addr", cfg.Addr, "refresh_store", cfg.RefreshStore)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
}
