package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/caja/internal/auth"
	"github.com/MrJamesThe3rd/caja/internal/config"
	"github.com/MrJamesThe3rd/caja/internal/database"
	cajaHttp "github.com/MrJamesThe3rd/caja/internal/http"
	movementHandler "github.com/MrJamesThe3rd/caja/internal/http/movement"
	shiftHandler "github.com/MrJamesThe3rd/caja/internal/http/shift"
	"github.com/MrJamesThe3rd/caja/internal/money"
	"github.com/MrJamesThe3rd/caja/internal/report"
	"github.com/MrJamesThe3rd/caja/internal/shift"
	"github.com/MrJamesThe3rd/caja/internal/shift/store"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a signed token for the named operator and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var tokens *auth.Tokens
	if cfg.Auth.Secret != "" {
		tokens = auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	}

	if *issueFor != "" {
		if tokens == nil {
			slog.Error("AUTH_SECRET is not set")
			os.Exit(1)
		}

		token, err := tokens.Issue(*issueFor)
		if err != nil {
			slog.Error("failed to issue token", "error", err)
			os.Exit(1)
		}

		fmt.Println(token)

		return
	}

	dsn := cfg.ConnectionString()

	if err := database.Migrate(cfg.DB.Driver, dsn); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DB.Driver, dsn)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := store.New(db, store.Dialect(cfg.DB.Driver), store.WithRetry(store.RetryPolicy{
		MaxRetries:      cfg.Store.RetryMax,
		InitialInterval: cfg.Store.RetryInitial,
		MaxInterval:     cfg.Store.RetryMaxWait,
	}))

	var (
		ledger        = shift.NewLedger(repo, shift.WithRegister(cfg.App.RegisterID))
		history       = shift.NewHistory(repo, cfg.App.RegisterID)
		reportService = report.NewService(history, money.NewFormatter(cfg.Locale.Language), time.Local)
	)

	var (
		shiftH    = shiftHandler.NewHandler(ledger, history, reportService)
		movementH = movementHandler.NewHandler(ledger)
	)

	router := cajaHttp.New(shiftH, movementH, cajaHttp.Options{
		Tokens:         tokens,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	go func() {
		slog.Info("starting server", "port", server.Addr, "register", cfg.App.RegisterID, "driver", cfg.DB.Driver)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}
