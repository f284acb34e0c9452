package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"fairshare/internal/api"
	"fairshare/internal/auth"
	"fairshare/internal/config"
	"fairshare/internal/mailer"
	"fairshare/internal/metrics"
	"fairshare/internal/service"
	"fairshare/internal/storage/sqlite"
	"fairshare/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.DBPath)

	var sender mailer.Sender
	if cfg.SMTP.Enabled() {
		sender = mailer.NewSMTPSender(cfg.SMTP)
		slog.Info("smtp sender configured", "host", cfg.SMTP.Host)
	} else {
		sender = mailer.LogSender{}
		slog.Info("no smtp configured, notifications will be logged only")
	}

	metrics.Init()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.TokenTTL))
	authenticator := auth.NewPasswordAuthenticator(store)

	bills := service.NewBillService(store, sender, cfg.BaseURL)
	accounts := service.NewAuthService(authenticator, jwtManager, store)

	handler := api.NewRouter(bills, accounts, jwtManager)

	slog.Info("server listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
