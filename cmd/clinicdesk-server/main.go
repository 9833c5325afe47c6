package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"clinicdesk/backend/internal/config"
	"clinicdesk/backend/internal/service/audit"
	"clinicdesk/backend/internal/service/directory"
	"clinicdesk/backend/internal/service/restore"
	"clinicdesk/backend/internal/service/scheduling"
	"clinicdesk/backend/internal/store/postgres"
	httpTransport "clinicdesk/backend/internal/transport/http"
)

const version = "0.3.0"

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "clinicdesk-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "clinicdesk-server"),
	)
	slog.SetDefault(log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	log.Info("starting", slog.String("http_addr", addr), slog.String("log_level", cfg.LogLevel))

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	poolCfg := postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
	if parseLogLevel(cfg.LogLevel) == slog.LevelDebug {
		poolCfg.QueryLog = log
	}
	db, err := postgres.Open(cfg.DatabaseURL, poolCfg)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	schedulingRepo := postgres.NewSchedulingRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	directoryRepo := postgres.NewDirectoryRepo(db)

	recorder := audit.NewRecorder(auditRepo, log, cfg.AuditQueueSize)

	schedulingSvc := scheduling.NewService(schedulingRepo, recorder)
	directorySvc := directory.NewService(directoryRepo, recorder)
	auditQueries := audit.NewQueries(auditRepo)
	restoreSvc := restore.NewCoordinator(auditRepo, directoryRepo, log)

	router := httpTransport.NewRouter(httpTransport.RouterConfig{
		Scheduling: schedulingSvc,
		Directory:  directorySvc,
		Audit:      auditQueries,
		Restorer:   restoreSvc,
		DB:         db,
		Log:        log,
		Env:        cfg.Env,
		Version:    version,
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      http.TimeoutHandler(router, cfg.HTTPRequestTimeout, `{"error":"request timed out"}`),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTPRequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Info("http server started", slog.String("http_addr", addr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, server, recorder, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func shutdown(log *slog.Logger, s *http.Server, recorder *audit.Recorder, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; forcing close", slog.Any("err", err))
		_ = s.Close()
	} else {
		log.Info("http server stopped")
	}

	if err := recorder.Close(ctx); err != nil {
		log.Warn("audit recorder drain timed out", slog.Any("err", err))
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
