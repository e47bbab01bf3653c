package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/pkg/config"
	"fintrack/pkg/logging"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	ctx := log.WithContext(context.Background())

	// `fintrack migrate` opens the store with migrations forced on, then exits.
	// Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.AutoMigrate = true
		st, err := openStore(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		_ = st.Close()
		log.Info().Msg("migration completed")
		return
	}

	if cfg.JWTSecret == config.DevJWTSecret {
		log.Warn().Msg("JWT_SECRET not set; using the development secret")
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("store unavailable")
	}
	pub := openPublisher(cfg, log)

	a, err := newApp(st, pub, []byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("init services")
	}
	if cfg.SeedDemoUser {
		created, err := a.auth.EnsureDemoUser(ctx)
		if err != nil {
			log.Error().Err(err).Msg("seeding demo user failed")
		} else if created {
			log.Info().Msg("seeded demo user")
		}
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(logging.Middleware(log), gin.Recovery())
	a.setupRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := pub.Close(); err != nil {
		log.Warn().Err(err).Msg("closing event publisher")
	}
	if err := st.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
}
