// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/plainnote/internal/api"
	"github.com/starford/plainnote/internal/index"
	"github.com/starford/plainnote/internal/mcpserver"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/notes"
	"github.com/starford/plainnote/internal/settings"
	"github.com/starford/plainnote/internal/sse"
	"github.com/starford/plainnote/internal/watch"
)

// core holds the components shared by the HTTP and MCP front ends.
type core struct {
	cfg      *Config
	logger   *slog.Logger
	settings *settings.Store
	db       *index.DB
	svc      *notes.Service
}

func (c *core) Close() {
	if err := c.db.Close(); err != nil {
		c.logger.Warn("index close failed", slog.String("error", err.Error()))
	}
}

func setup(opts ...Option) (*core, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("settings_dir", cfg.Settings.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("note_extension", cfg.Notes.Extension),
		slog.Duration("suppress_window", cfg.Watcher.SuppressWindow),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, err := settings.Open(cfg.Settings.Dir)
	if err != nil {
		return nil, fmt.Errorf("init settings: %w", err)
	}
	if err := st.Initialize(settings.Defaults); err != nil {
		return nil, fmt.Errorf("init settings defaults: %w", err)
	}
	if st.NotesPath() == "" && cfg.Notes.DefaultPath != "" {
		abs, err := filepath.Abs(cfg.Notes.DefaultPath)
		if err != nil {
			return nil, fmt.Errorf("resolve default notes path: %w", err)
		}
		if err := st.SetNotesPath(abs); err != nil {
			return nil, fmt.Errorf("store default notes path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := notes.NewService(st, cfg.Notes.Extension, watch.NewClock(), db, logger)

	// Run initial sync.
	if err := svc.Refresh(context.Background()); err != nil {
		logger.Warn("initial sync skipped", slog.String("error", err.Error()))
	}

	return &core{cfg: cfg, logger: logger, settings: st, db: db, svc: svc}, nil
}

// startWatcher points the watcher manager at the configured directory and
// restarts it whenever the directory is opened or listed again.
func (c *core) startWatcher(ctx context.Context, emit watch.EmitFunc) *watch.Manager {
	mgr := watch.NewManager(ctx, c.svc, emit, c.logger,
		watch.WithWindow(c.cfg.Watcher.SuppressWindow))
	c.svc.OnDirectoryChange(mgr.Restart)

	store, err := c.svc.Store()
	if err != nil {
		c.logger.Info("watcher idle until a folder is chosen", slog.String("error", err.Error()))
		return mgr
	}
	if err := mgr.Restart(store); err != nil {
		c.logger.Warn("watcher start failed", slog.String("error", err.Error()))
	}
	return mgr
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, err := setup(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, logger := c.cfg, c.logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Watcher.Throttle)
	defer broker.Close()

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if c.settings.NotesPath() == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no folder configured"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// External changes go to SSE clients and refresh the index.
	mgr := c.startWatcher(gCtx, func(ev models.Event) {
		broker.PublishFileEvent(ev)
		if err := c.svc.Refresh(gCtx); err != nil {
			logger.Warn("index refresh failed", slog.String("error", err.Error()))
		}
	})
	defer mgr.Close()

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		mgr.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// another writer is supplied.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return err
	}
	defer c.Close()

	mgr := c.startWatcher(ctx, func(models.Event) {
		if err := c.svc.Refresh(ctx); err != nil {
			c.logger.Warn("index refresh failed", slog.String("error", err.Error()))
		}
	})
	defer mgr.Close()

	c.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(c.svc).ServeStdio(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
