package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/cors"

	"github.com/tasknova/leadgen/internal/config"
	"github.com/tasknova/leadgen/internal/dashboard"
	"github.com/tasknova/leadgen/internal/db"
	"github.com/tasknova/leadgen/internal/leads"
	"github.com/tasknova/leadgen/internal/mail"
	"github.com/tasknova/leadgen/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Check DATABASE_URL and that the server is running", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := db.Migrate(ctx, pool, logger); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}
	if err := db.MigrateRiver(ctx, pool); err != nil {
		slog.Error("River migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Insert funcs are set after the River client is created (breaks init cycle).
	var insertMu sync.Mutex
	var riverClient *river.Client[pgx.Tx]
	client := func() *river.Client[pgx.Tx] {
		insertMu.Lock()
		defer insertMu.Unlock()
		if riverClient == nil {
			panic("river client not wired")
		}
		return riverClient
	}
	insertNotify := func(ctx context.Context, tx pgx.Tx, args notify.AutomationArgs) error {
		_, err := client().InsertTx(ctx, tx, args, nil)
		return err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewAutomationWorker(cfg.Automation.WebhookURL, cfg.Automation.NotifyTimeout, logger))

	var insertReady leads.InsertLeadReadyFunc
	if cfg.Mail.Enabled() {
		sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
		river.AddWorker(workers, notify.NewLeadReadyWorker(sender, logger))
		insertReady = func(ctx context.Context, args notify.LeadReadyArgs) error {
			_, err := client().Insert(ctx, args, nil)
			return err
		}
	} else {
		slog.Info("SMTP_HOST not set, lead-ready emails disabled")
	}

	rc, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}
	insertMu.Lock()
	riverClient = rc
	insertMu.Unlock()

	hub := dashboard.NewHub(logger)
	api, err := newAPI(cfg, pool, hub, insertNotify, insertReady, logger)
	if err != nil {
		slog.Error("Failed to build API", "error", err)
		os.Exit(1)
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Automation-Signature"},
		AllowCredentials: true,
	}).Handler(api)

	go dashboard.Listen(ctx, pool, hub, logger)

	go func() {
		if err := rc.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	// No WriteTimeout: the dashboard stream is long-lived.
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		if err := rc.Stop(shutdownCtx); err != nil {
			slog.Error("River stop failed", "error", err)
		}
	}()

	slog.Info("Starting HTTP server", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
	<-shutdownDone
	slog.Info("Server stopped")
}
