/*
main.go - Application entry point

PURPOSE:
  Starts the timee bot server: attendance check-ins and time-off requests
  for a chat host. Handles configuration, dependency injection and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load config (file + TIMEE_* env) and watch the file for org changes
  3. Build the zap logger
  4. Open the SQLite document store
  5. Connect the chat host (REST) or fall back to the in-memory host
  6. Optionally connect Redis for the shared status cache
  7. Wire services, HTTP router and the digest scheduler
  8. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: ./config/config.yaml or ./config.yaml)
  -port    Overrides server.port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop scheduling digests
  2. Stop accepting new connections
  3. Wait for active requests and a running digest (30s timeout)
  4. Close Redis and the database

EXAMPLES:
  # Run against a chat host
  TIMEE_HOST_BASE_URL=https://chat.example.com ./server -config=./config.yaml

  # Run locally with demo scenarios
  TIMEE_DB_PATH=":memory:" ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - api/scheduler.go: Digest scheduler
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/timee/api"
	"github.com/warp/timee/attendance"
	"github.com/warp/timee/config"
	"github.com/warp/timee/host"
	"github.com/warp/timee/logger"
	"github.com/warp/timee/store/sqlite"
	"github.com/warp/timee/timeoff"
	"go.uber.org/zap"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides server.port)")
	flag.Parse()

	// Bootstrap logger until the configured one is built
	boot := zap.NewExample()
	cfg, org, err := config.Watch(*configPath, boot)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	if err := run(cfg, org, logg); err != nil {
		logg.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, org *config.Holder, logg *zap.Logger) error {
	// Initialize store
	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Chat host
	var (
		chat host.Host
		demo *host.Memory
	)
	if cfg.Host.BaseURL != "" {
		chat = host.NewRESTClient(cfg.Host.BaseURL, cfg.Host.UserID, cfg.Host.Token)
		logg.Info("chat host", zap.String("base_url", cfg.Host.BaseURL))
	} else {
		demo = host.NewMemory()
		chat = demo
		logg.Warn("host.base_url is empty, using the in-memory host")
	}

	// Status cache
	var status attendance.StatusCache
	if cfg.Redis.Addr != "" {
		rc, err := attendance.NewRedisStatusCache(cfg.Redis, org.Get().Scope, logg)
		if err != nil {
			return err
		}
		defer rc.Close()
		status = rc
		logg.Info("status cache on redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Services
	offs := timeoff.NewRepository(store, org.Get().Scope)
	to := timeoff.NewService(offs, chat, org, logg, nil)
	att := attendance.NewService(attendance.NewRepository(store, org.Get().Scope), offs, chat, org, status, logg, nil)

	handler := api.NewHandler(to, att, chat, logg, nil)
	if demo != nil {
		handler.EnableDemo(demo, store)
	}
	router := api.NewRouter(handler, cfg.Server.CORS.AllowOrigins)

	// Digest scheduler
	scheduler := api.NewDigestScheduler(to, org, logg)
	if err := scheduler.Start(); err != nil {
		return err
	}
	org.OnChange(func(*config.OrgConfig) {
		if err := scheduler.Reschedule(); err != nil {
			logg.Error("digest reschedule failed", zap.Error(err))
		}
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logg.Info("server starting", zap.Int("port", cfg.Server.Port), zap.Time("next_digest", scheduler.Next()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			<-scheduler.Stop().Done()
			return fmt.Errorf("listen: %w", err)
		}
	}

	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	digestDone := scheduler.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	select {
	case <-digestDone.Done():
	case <-shutdownCtx.Done():
		logg.Warn("digest still running at shutdown")
	}

	logg.Info("server stopped")
	return nil
}
