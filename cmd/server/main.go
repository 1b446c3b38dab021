/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the staff hours server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, YAML, environment), then apply flags
  2. Initialize logger
  3. Open the store (SQLite or PostgreSQL) and run migrations
  4. Create RecordService, handler and router
  5. Start the cycle scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides server.port)
  -db      Database DSN (overrides database.dsn)
           Use ":memory:" for an in-memory SQLite database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM, or when the server fails:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Stop the scheduler
  4. Close database connection

EXAMPLES:
  ./server -db="./data/hours.db"
  DATABASE_DRIVER=postgres DATABASE_DSN=postgres://... ./server

SEE ALSO:
  - config/config.go: All settings and their environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/warp/staff-hours/api"
	"github.com/warp/staff-hours/config"
	"github.com/warp/staff-hours/generic"
	"github.com/warp/staff-hours/logger"
	"github.com/warp/staff-hours/store/sqlite"
)

// openStore is replaced in tests to observe the store's lifetime.
var openStore = sqlite.Open

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dsn := flag.String("db", "", "database DSN (overrides config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	log := logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		stop()
		log.WithError(err).Fatal("server exited")
	}
}

// run serves until ctx is done or the listener fails. The store and the
// scheduler are released before it returns, on every path.
func run(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	store, err := openStore(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	svc := generic.NewRecordService(store, cfg.Cycle.Calendar(), log)
	svc.VisibilityWindow = cfg.Cycle.VisibilityWindow

	handler := api.NewHandler(svc, store, cfg.Cycle.Rate(), log)
	router := api.NewRouter(handler, api.RouterOptions{
		Verifier:       api.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		AllowedOrigins: api.ParseOrigins(cfg.CORS.AllowedOrigins),
		CORSMaxAge:     cfg.CORS.MaxAge,
	})

	scheduler := api.NewCycleScheduler(svc, cfg.Scheduler, log)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":      cfg.Server.Port,
			"driver":    cfg.Database.Driver,
			"reference": cfg.Cycle.Reference().String(),
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
