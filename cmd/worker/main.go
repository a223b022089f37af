package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/verdantlabs/verdant/internal/adapters/nats"
	"github.com/verdantlabs/verdant/internal/adapters/postgres"
	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/config"
	"github.com/verdantlabs/verdant/internal/pkg/logging"
)

// The worker drains rule-application events off JetStream and persists
// them as audit rows, keeping the write out of the quote path.
func main() {
	cfg, err := config.Load("verdant-worker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	applications := postgres.NewRuleApplicationRepo(db)

	err = sub.SubscribeRuleApplications(ctx, func(ctx context.Context, app *domain.RuleApplication) error {
		if err := applications.InsertBatch(ctx, []domain.RuleApplication{*app}); err != nil {
			slog.Error("persist rule application", "rule_id", app.RuleID, "error", err)
			return err
		}
		slog.Debug("rule application recorded", "rule_id", app.RuleID, "adjustment", app.Adjustment)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe rule applications: %v", err)
	}

	err = sub.SubscribeQuotePriced(ctx, func(ctx context.Context, businessID string, result *domain.PricingResult) error {
		var total float64
		for _, svc := range result.Services {
			total += svc.TotalPrice
		}
		slog.Info("quote priced",
			"business_id", businessID, "total", total, "rules_applied", len(result.AppliedRules))
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe quotes: %v", err)
	}

	err = sub.SubscribeMeasurements(ctx, func(ctx context.Context, m *domain.MeasurementResult) error {
		slog.Info("measurement completed",
			"business_id", m.BusinessID, "total_area", m.TotalArea, "perimeter", m.Perimeter)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe measurements: %v", err)
	}

	slog.Info("audit worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("worker stopping")
}
