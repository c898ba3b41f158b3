package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"interopd/internal/config"
	"interopd/internal/errors"
	"interopd/internal/infrastructure"
	"interopd/internal/middleware"
	"interopd/internal/services"
	handlers "interopd/internal/transport/http"
)

// Version identifies the running build.
const Version = "1.0.0"

// Application is the assembled app object: configuration, resolved paths,
// logger, router and HTTP server.
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server
}

// New performs the one-time startup sequence: load configuration, initialize
// process-wide logging, resolve filesystem roots and assemble the hook chain
// and handler registry. Any error here aborts startup.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Bool("dev_mode", cfg.API.AppDevMode))

	projectRoot, err := config.ProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to determine project root: %w", err)
	}

	paths, err := cfg.ResolvePaths(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	logger.Info("resolved paths",
		slog.String("project_root", paths.ProjectRoot),
		slog.String("static_root", paths.StaticRoot),
		slog.String("template_path", paths.TemplatePath))

	app := &Application{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// setupRouter assembles the middleware chain and handler registry.
//
// Hook order matters: the request logger wraps everything so it observes the
// final status of success and error paths alike; CORS sets its headers before
// dispatch so they survive an error response; the error boundary is the
// innermost wrapper around the handlers.
func (a *Application) setupRouter() {
	formatter := errors.NewFormatter(a.Config.API.AppDevMode, a.Logger)
	metrics := middleware.NewMetrics()
	capabilities := services.NewCapabilityService(a.Config.API, a.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(a.Logger))
	r.Use(metrics.Handler)
	r.Use(middleware.CORS(a.Config.API.AllowedCORSOrigins))
	if a.Config.Server.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			a.Config.Server.RateLimit.RPS,
			a.Config.Server.RateLimit.Burst,
			formatter,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}
	r.Use(formatter.Boundary)

	r.NotFound(formatter.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errors.ErrNotFound
	}))
	r.MethodNotAllowed(formatter.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errors.ErrMethodNotAllowed
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(Version, a.Logger)
		r.Get("/health", healthHandler.Check)

		capabilityHandler := handlers.NewCapabilityHandler(capabilities, formatter, a.Logger)
		r.Mount("/capabilities", capabilityHandler.Routes())

		resultHandler := handlers.NewResultHandler(capabilities, formatter, a.Logger)
		r.Mount("/results", resultHandler.Routes())
	})

	// In dev mode static files are served by the app itself.
	if a.Config.API.AppDevMode {
		fileServer := http.StripPrefix("/static", http.FileServer(http.Dir(a.Paths.StaticRoot)))
		r.Handle("/static/*", fileServer)
	}

	// Metrics endpoint sits outside the middleware chain.
	r.Handle("/metrics", metrics.Endpoint())

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the HTTP server and blocks until interrupted, then shuts down
// gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		a.Logger.InfoContext(ctx, "listening",
			slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}
