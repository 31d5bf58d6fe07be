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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tagvault/internal/api"
	"github.com/starford/tagvault/internal/batch"
	"github.com/starford/tagvault/internal/index"
	"github.com/starford/tagvault/internal/mcpserver"
	"github.com/starford/tagvault/internal/noteservice"
	"github.com/starford/tagvault/internal/sse"
	"github.com/starford/tagvault/internal/storage"
)

// ErrFilesFailed is returned by RunTags when at least one file of the batch
// could not be processed. The summary has already been printed.
var ErrFilesFailed = errors.New("some files failed")

// runtime is the state shared by every entry point.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

// setup validates the config, installs the JSON logger writing to logOut and
// opens the vault and the tag index.
func (app *application) setup(logOut io.Writer) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	cfg.Tags.Apply()

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{cfg: cfg, logger: logger, store: store, db: db}, nil
}

func (rt *runtime) service(opts ...noteservice.Option) *noteservice.Service {
	base := []noteservice.Option{
		noteservice.WithDefaults(rt.cfg.Tags.Defaults()),
		noteservice.WithLogger(rt.logger),
	}
	return noteservice.NewService(rt.store, rt.db, append(base, opts...)...)
}

// Run starts the HTTP API, the SSE stream and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.setup(os.Stdout)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	logger := rt.logger

	broker := sse.NewBroker(cfg.Tags.EventThrottle)
	defer broker.Close()

	svc := rt.service(noteservice.WithNotifier(broker))
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File watcher keeps the tag index current and feeds SSE.
	g.Go(func() error {
		if err := index.Watch(gCtx, rt.db, rt.store, cfg.Vault.Path, logger, broker.PublishNoteEvent); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher exits on signal.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.setup(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := rt.service()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := index.Watch(watchCtx, rt.db, rt.store, rt.cfg.Vault.Path, rt.logger, nil); err != nil {
			rt.logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	rt.logger.Info("MCP server starting on stdio")
	if err := mcpserver.New(svc).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: serve: %w", err)
	}
	return nil
}

// RunTags applies a single tag operation and prints its summary.
func RunTags(ctx context.Context, req batch.Request, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.setup(os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.service().ManageTags(ctx, req)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(app.out, res.Summary); err != nil {
		return err
	}
	if res.Report.Failed() {
		return fmt.Errorf("%w: %d file(s)", ErrFilesFailed, len(res.Report.Errors))
	}
	return nil
}
