// @title       Tourify Capabilities API
// @version     1.0
// @description Entity-scoped capability resolution for the Tourify entity pages.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tourify/internal/adapters/auth/gotrue"
	"tourify/internal/adapters/auth/jwtverifier"
	"tourify/internal/adapters/oracle/memory"
	pgoracle "tourify/internal/adapters/oracle/postgres"
	"tourify/internal/adapters/oracle/postgrest"
	"tourify/internal/platform/config"
	"tourify/internal/platform/logger"
	"tourify/internal/platform/metrics"
	"tourify/internal/ports/auth"
	"tourify/internal/ports/permissions"
	"tourify/internal/router"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("ENV"))
	if err != nil {
		logger.New(logger.Options{}).Error("load config", map[string]any{"error": err.Error()})
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	oracle, db, err := buildOracle(ctx, cfg)
	if err != nil {
		log.Error("build permission oracle", map[string]any{"driver": cfg.Oracle.Driver, "error": err.Error()})
		return err
	}
	if db != nil {
		defer db.Close()
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		log.Error("build auth verifier", map[string]any{"mode": cfg.Auth.Mode, "error": err.Error()})
		return err
	}

	h, err := router.NewRouter(router.Options{
		AuthVerifier:    verifier,
		Oracle:          oracle,
		Logger:          log,
		Metrics:         metrics.NewCollector(),
		OracleTimeout:   cfg.Oracle.Timeout,
		MaxConcurrency:  cfg.Oracle.MaxConcurrency,
		CacheTTL:        cfg.Capabilities.CacheTTL,
		CacheMaxEntries: cfg.Capabilities.CacheMaxEntries,
	})
	if err != nil {
		log.Error("build router", map[string]any{"error": err.Error()})
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{
			"addr":      cfg.Addr(),
			"oracle":    cfg.Oracle.Driver,
			"auth_mode": cfg.Auth.Mode,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			log.Error("server error", map[string]any{"error": err.Error()})
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
		return err
	}
	log.Info("shutdown complete", nil)
	return nil
}

// buildOracle devuelve el *sql.DB cuando hay que cerrarlo al salir.
func buildOracle(ctx context.Context, cfg *config.Config) (permissions.Oracle, *sql.DB, error) {
	switch cfg.Oracle.Driver {
	case config.OraclePostgres:
		db, err := pgoracle.Open(ctx, cfg.Oracle.DSN)
		if err != nil {
			return nil, nil, err
		}
		o, err := pgoracle.NewOracle(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return o, db, nil

	case config.OraclePostgREST:
		o, err := postgrest.NewOracle(postgrest.Config{
			BaseURL: cfg.Oracle.PostgRESTURL,
			APIKey:  cfg.Oracle.PostgRESTAPIKey,
			Timeout: cfg.Oracle.Timeout,
		})
		return o, nil, err

	default:
		return memory.NewOracle(), nil, nil
	}
}

// buildVerifier: nil en modo dev (X-Debug-User-ID).
func buildVerifier(cfg *config.Config) (auth.AuthVerifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthJWT:
		return jwtverifier.New(jwtverifier.Config{
			Secret:   cfg.Auth.JWTSecret,
			Audience: cfg.Auth.JWTAudience,
		})

	case config.AuthGoTrue:
		client, err := gotrue.NewClient(gotrue.Config{
			BaseURL: cfg.Auth.GoTrueURL,
			APIKey:  cfg.Auth.GoTrueAPIKey,
		})
		if err != nil {
			return nil, err
		}
		return gotrue.NewVerifier(client), nil

	default:
		return nil, nil
	}
}
