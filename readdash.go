// Package readdash serves the reading-time statistics dashboard: it keeps the
// statistics service URL in SQLite, fetches the service's stats envelope and
// renders the result as an HTML dashboard built with Echo and templ.
package readdash

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eringen/readdash/dashboard"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 10 * time.Second

// App is the central readdash application. It wires together the settings
// store, the dashboard controller, handlers and middleware.
type App struct {
	Config     Config
	Echo       *echo.Echo
	Store      *Store
	Controller *dashboard.Controller
	Logger     *zap.Logger
	Registry   *prometheus.Registry
	Limiter    *ActionLimiter

	fetcher   dashboard.Fetcher
	staticDir string
}

// WithFetcher replaces the HTTP statistics client, mainly for tests.
func WithFetcher(f dashboard.Fetcher) Option {
	return func(a *App) {
		a.fetcher = f
	}
}

// New creates a readdash App. A nil logger discards all output.
func New(cfg Config, logger *zap.Logger, opts ...Option) *App {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:   cfg,
		Echo:     e,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup opens the store, restores the persisted URL and registers middleware
// and routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Setup(ctx context.Context) error {
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("readdash: init store: %w", err)
	}
	a.Store = store

	if a.Config.SessionSecret == "" {
		secret, err := store.InitSessionSecret(ctx)
		if err != nil {
			return fmt.Errorf("readdash: init session secret: %w", err)
		}
		a.Config.SessionSecret = secret
	}

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if a.fetcher == nil {
		a.fetcher = dashboard.NewClient(
			dashboard.WithTimeout(a.Config.Fetch.Timeout),
			dashboard.WithUserAgent(a.Config.Fetch.UserAgent),
		)
	}
	a.Controller = dashboard.NewController(store, a.fetcher,
		dashboard.WithLogger(a.Logger.Named("dashboard")),
		dashboard.WithMetrics(dashboard.NewMetrics(a.Registry)),
	)
	a.Limiter = NewActionLimiter(a.Config.Limits.ActionsPerMinute, time.Minute)

	// A load failure leaves the controller in its error state; the page shows it.
	if _, err := a.Controller.Initialize(ctx); err != nil {
		a.Logger.Error("initialize dashboard", zap.Error(err))
	}

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start sets the app up and serves until ctx is cancelled, then shuts down
// gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", zap.String("addr", a.Config.Addr))
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("readdash: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("readdash: shutdown: %w", err)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded assets are served under /public/ and fall through to the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/poll.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/readdash.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	if a.staticDir != "" {
		e.Static("/public", a.staticDir)
	}

	e.GET("/", a.handleDashboard)
	e.GET("/state", a.handleState)
	e.POST("/settings/", a.handleSettings)
	e.POST("/refresh/", a.handleRefresh)

	e.GET("/api/state", a.handleAPIState)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: a.Registry,
	}))
}

// Close cancels any in-flight fetch and releases resources. Call this when
// the app is shutting down.
func (a *App) Close() error {
	if a.Controller != nil {
		a.Controller.Close()
	}
	if a.Limiter != nil {
		a.Limiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
