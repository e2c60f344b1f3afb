package router

import (
	"errors"
	"net/http"
	"time"

	"tourify/internal/adapters/oracle/memory"
	"tourify/internal/domain/capabilities"
	"tourify/internal/middleware"
	"tourify/internal/platform/cache"
	"tourify/internal/platform/logger"
	"tourify/internal/platform/metrics"
	"tourify/internal/ports/auth"
	"tourify/internal/ports/permissions"

	_ "tourify/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si no viene, oráculo in-memory vacío (todo false).
	Oracle permissions.Oracle

	Logger  logger.Logger
	Metrics *metrics.Collector

	OracleTimeout  time.Duration
	MaxConcurrency int

	// Cache a nivel caller; CacheTTL 0 lo apaga.
	CacheTTL        time.Duration
	CacheMaxEntries int
}

func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	oracle := opts.Oracle
	if oracle == nil {
		log.Warn("no permission oracle configured, using empty in-memory oracle", nil)
		oracle = memory.NewOracle()
	}

	svc, err := capabilities.NewResolver(oracle,
		capabilities.WithOracleTimeout(opts.OracleTimeout),
		capabilities.WithMaxConcurrency(opts.MaxConcurrency),
		capabilities.WithLogger(log.With(map[string]any{"component": "capabilities"})),
		capabilities.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	var c cache.Cache
	if opts.CacheTTL > 0 {
		if opts.CacheMaxEntries <= 0 {
			return nil, errors.New("cache max entries must be positive when caching is enabled")
		}
		c = cache.NewMemory(opts.CacheMaxEntries, opts.CacheTTL)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	capabilities.RegisterRoutes(r, svc, capabilities.HandlerOptions{
		Cache:    c,
		CacheTTL: opts.CacheTTL,
		Log:      log,
		Metrics:  opts.Metrics,
	})

	return r, nil
}
