package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/payflow/internal/config"
	"github.com/MrJamesThe3rd/payflow/internal/database"
	"github.com/MrJamesThe3rd/payflow/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/payflow/internal/invoice/store"
	webhookStore "github.com/MrJamesThe3rd/payflow/internal/webhook/store"
)

// The sweeper runs from cron. One pass: expire overdue invoices, flag
// overdue installments, report webhooks that need manual review.
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

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	invoiceService := invoice.NewService(invoiceStore.New(db))
	now := time.Now().UTC()

	expired, err := invoiceService.ExpireOverdue(ctx, now)
	if err != nil {
		slog.Error("failed to expire overdue invoices", "error", err)
		os.Exit(1)
	}

	overdue, err := invoiceService.MarkInstallmentsOverdue(ctx, now)
	if err != nil {
		slog.Error("failed to mark overdue installments", "error", err)
		os.Exit(1)
	}

	failed, err := webhookStore.New(db).ListPermanentlyFailed(ctx)
	if err != nil {
		slog.Error("failed to list permanently failed webhooks", "error", err)
		os.Exit(1)
	}

	for _, rec := range failed {
		lastErr := ""
		if rec.LastError != nil {
			lastErr = *rec.LastError
		}

		slog.Warn("webhook needs manual review",
			"event_id", rec.EventID, "gateway", rec.Gateway,
			"attempts", rec.Attempts, "last_error", lastErr)
	}

	slog.Info("sweep complete",
		"invoices_expired", expired,
		"installments_overdue", overdue,
		"webhooks_for_review", len(failed))
}
