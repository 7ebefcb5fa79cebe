package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gamedock/internal/config"
	"gamedock/internal/handlers"
	localMiddleware "gamedock/internal/middleware"
	"gamedock/internal/platform"
	"gamedock/internal/runtime"
	"gamedock/internal/store"
)

// newLogger builds the process logger from config. The "text" format is
// for interactive use, "json" for log shippers.
func newLogger(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

// app bundles the wired components so main and the tests share one
// construction path.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	store      *store.Store
	supervisor *runtime.Supervisor
	service    *platform.Service
	handler    http.Handler
}

// setupApp wires store, supervisor, service and router from the given
// configuration.
func setupApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	for _, dir := range []string{cfg.Storage.DataDir, cfg.Storage.GamesDir(), cfg.Storage.RuntimeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	st, err := store.Open(cfg.Storage.DataFile(), log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sup := runtime.New(cfg.Storage.RuntimeDir(), cfg.Runtime.BindHost, cfg.Runtime.PublicHost, log)
	svc := platform.New(st, sup, cfg, log)

	// Rooms that were mid-game before a restart have lost their server
	// process and cannot resume.
	if err := svc.FinishAbandonedRooms(); err != nil {
		return nil, fmt.Errorf("finish abandoned rooms: %w", err)
	}

	h := handlers.New(svc, log)

	r := chi.NewRouter()

	// Chi's built-in middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	// Our custom middleware
	r.Use(localMiddleware.RequestLogger(log))
	r.Use(localMiddleware.RequestSizeLimiter(cfg.Server.MaxRequestSize))
	r.Use(localMiddleware.SecurityHeaders())

	// Rate limiting
	rateLimiter := localMiddleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitBurst)
	r.Use(rateLimiter.Middleware())

	r.Mount("/", h.Routes())

	return &app{
		cfg:        cfg,
		log:        log,
		store:      st,
		supervisor: sup,
		service:    svc,
		handler:    r,
	}, nil
}
