package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	server "github.com/m41k1204/taskflow/internal"
	"github.com/m41k1204/taskflow/internal/audit"
	"github.com/m41k1204/taskflow/internal/config"
	"github.com/m41k1204/taskflow/internal/eventbus"
	"github.com/m41k1204/taskflow/internal/store"
	"github.com/m41k1204/taskflow/internal/storewatch"
	"github.com/m41k1204/taskflow/internal/task"
	"github.com/m41k1204/taskflow/internal/user"
	"github.com/m41k1204/taskflow/pkg/clog"
	"github.com/m41k1204/taskflow/pkg/panicerr"
	"github.com/m41k1204/taskflow/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded")
	}

	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Setup storage backend
	var backend storage.Backend
	var local *storage.LocalBackend
	switch env.StorageEnv.Type {
	case "s3":
		backend, err = storage.NewS3Backend(ctx, env.S3Bucket, env.S3Prefix, env.Document, env.S3Region)
		if err != nil {
			slog.Error("failed to create S3 backend", "error", err)
			os.Exit(1)
		}
	default:
		local, err = storage.NewLocalBackend(env.Document)
		if err != nil {
			slog.Error("failed to create local backend", "error", err)
			os.Exit(1)
		}
		backend = local
	}

	// Load the store document once at startup; malformed content is fatal.
	st := store.New(backend)
	if err := st.Load(ctx); err != nil {
		slog.Error("failed to load store document", "error", err)
		os.Exit(1)
	}

	bus := eventbus.New()

	userServer := user.NewServer(st, bus)
	taskServer := task.NewServer(st, st, bus)
	srv := server.NewServer(env, userServer, taskServer)

	auditLogger := audit.New(bus)
	go func() {
		if err := panicerr.SafeContext(auditLogger.Start)(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("audit logger stopped", "error", err)
		}
	}()

	if local != nil {
		watcher := storewatch.New(local.Path(), st)
		go func() {
			if err := panicerr.SafeContext(watcher.Start)(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("store watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after the base context is cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
