package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/chepyr/task-manager/internal/config"
	"github.com/chepyr/task-manager/internal/db"
	"github.com/chepyr/task-manager/internal/handlers"
	"github.com/chepyr/task-manager/internal/tasks"
)

func main() {
	configPath := flag.String("config", os.Getenv("TASKS_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	handler := initHandler(cfg, logger)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting tasks server",
		slog.String("addr", server.Addr),
		slog.String("log_level", cfg.LogLevel),
		slog.Any("allowed_origins", cfg.AllowedOrigins))

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				return server.Shutdown(ctx)
			},
			"ws-hub": func(ctx context.Context) error {
				handler.RateLimiter.Stop()
				return handler.WSHub.Close(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("server stopped", slog.Int("exit_code", exitCode))
	os.Exit(exitCode)
}

func initHandler(cfg *config.Config, logger *slog.Logger) *handlers.Handler {
	store := db.NewTaskStore()
	return &handlers.Handler{
		Tasks:          tasks.NewService(store),
		Logger:         logger,
		RateLimiter:    handlers.NewRateLimiter(cfg.WSRateLimit, cfg.WSRateWindow),
		WSHub:          handlers.NewWSHub(logger),
		AllowedOrigins: cfg.AllowedOrigins,
		StartedAt:      time.Now(),
	}
}
