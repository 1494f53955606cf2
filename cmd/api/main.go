package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/payflow/internal/config"
	"github.com/MrJamesThe3rd/payflow/internal/database"
	"github.com/MrJamesThe3rd/payflow/internal/gateway"
	"github.com/MrJamesThe3rd/payflow/internal/gateway/xendit"
	payflowHttp "github.com/MrJamesThe3rd/payflow/internal/http"
	invoiceHandler "github.com/MrJamesThe3rd/payflow/internal/http/invoice"
	ledgerHandler "github.com/MrJamesThe3rd/payflow/internal/http/ledger"
	webhookHandler "github.com/MrJamesThe3rd/payflow/internal/http/webhook"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/payflow/internal/invoice/store"
	"github.com/MrJamesThe3rd/payflow/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/payflow/internal/ledger/store"
	"github.com/MrJamesThe3rd/payflow/internal/paylock"
	paylockStore "github.com/MrJamesThe3rd/payflow/internal/paylock/store"
	"github.com/MrJamesThe3rd/payflow/internal/payment"
	"github.com/MrJamesThe3rd/payflow/internal/webhook"
	webhookStore "github.com/MrJamesThe3rd/payflow/internal/webhook/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	registry := gateway.NewRegistry(
		xendit.NewClient(&http.Client{Timeout: cfg.Server.Timeout}, cfg.Xendit.APIKey, cfg.Xendit.CallbackSecret, cfg.Xendit.BaseURL),
	)

	var (
		invoiceService = invoice.NewService(invoiceStore.New(db))
		ledgerService  = ledger.NewService(ledgerStore.New(db), invoiceService, nil)
		lockManager    = paylock.NewManager(paylockStore.New(db))
		paymentService = payment.NewService(lockManager, invoiceStore.New(db), registry)
	)

	pipeline := webhook.NewPipeline(
		webhookStore.New(db),
		webhook.NewRedisCache(redisClient),
		ledgerService,
		webhook.NewScheduler(webhook.NewRealClock()),
	)
	pipeline.Start()
	defer pipeline.Stop()

	var (
		invoicesH     = invoiceHandler.NewHandler(invoiceService, paymentService)
		transactionsH = ledgerHandler.NewHandler(ledgerService, invoiceService)
		webhooksH     = webhookHandler.NewHandler(registry, pipeline)
	)

	router := payflowHttp.New(invoicesH, transactionsH, webhooksH, cfg.Auth.JWTSecret)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
