package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/theb0imanuu/PharmaCheck/internal/config"
	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
	"github.com/theb0imanuu/PharmaCheck/internal/repository/sheets"
	"github.com/theb0imanuu/PharmaCheck/internal/service/inventory"
	"github.com/theb0imanuu/PharmaCheck/pkg/clients/anthropic"
)

// Scheduler runs the daily stock report and, when configured, the AI
// restock advisory. Both sinks are optional and never block the ledger.
type Scheduler struct {
	cron    *cron.Cron
	inv     *inventory.Service
	reports sheets.Repository
	ai      anthropic.Client
	cfg     config.ReportingConfig
	logger  *zap.Logger
}

// reportSummary is the aggregated daily view written to the report sheet.
type reportSummary struct {
	BatchCount    int
	LowStockCount int
	ExpiringSoon  int
	UnitsSold     int
	Revenue       decimal.Decimal
}

// NewScheduler creates a new scheduler instance. reports and ai may be nil.
func NewScheduler(cfg config.ReportingConfig, inv *inventory.Service, reports sheets.Repository, ai anthropic.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		inv:     inv,
		reports: reports,
		ai:      ai,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start registers the daily report job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailyReport); err != nil {
		s.logger.Error("failed to schedule daily report", zap.Error(err))
		return
	}
	s.cron.Start()
}

// Stop stops the cron loop.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snap, err := s.inv.Snapshot(ctx, s.cfg.WindowDays)
	if err != nil {
		s.logger.Error("failed to take stock snapshot", zap.Error(err))
		return
	}

	summary := summarize(snap)
	s.logger.Info("daily stock summary",
		zap.Int("batches", summary.BatchCount),
		zap.Int("low_stock", summary.LowStockCount),
		zap.Int("expiring_soon", summary.ExpiringSoon),
		zap.Int("units_sold", summary.UnitsSold),
		zap.String("revenue", summary.Revenue.String()))

	if s.reports != nil {
		row := []interface{}{
			snap.TakenAt.Format("2006-01-02"),
			summary.BatchCount,
			summary.LowStockCount,
			summary.ExpiringSoon,
			summary.UnitsSold,
			summary.Revenue.String(),
			snap.WindowDays,
		}
		if err := s.reports.AppendReportRow(ctx, row); err != nil {
			s.logger.Error("failed to append report row", zap.Error(err))
		}
	}

	if s.ai != nil {
		advice, err := s.ai.RestockAdvice(ctx, snap)
		if err != nil {
			s.logger.Error("failed to fetch restock advice", zap.Error(err))
			return
		}
		for _, rec := range advice.RestockRecommendations {
			s.logger.Info("restock recommendation",
				zap.String("medicine", rec.Medicine),
				zap.String("status", rec.Status),
				zap.String("action", rec.SuggestedAction))
		}
		for _, alert := range advice.ExpiryAlerts {
			s.logger.Warn("expiry alert",
				zap.String("medicine", alert.Medicine),
				zap.String("batch", alert.Batch),
				zap.Int("days_remaining", alert.DaysRemaining))
		}
	}
}

// summarize folds a snapshot into the daily report figures. Expiring soon
// means within 30 days of the snapshot time.
func summarize(snap *models.Snapshot) reportSummary {
	sum := reportSummary{
		BatchCount: len(snap.Batches),
		Revenue:    decimal.Zero,
	}
	for i := range snap.Batches {
		b := &snap.Batches[i]
		if b.LowStock() {
			sum.LowStockCount++
		}
		if b.ExpiresWithin(30*24*time.Hour, snap.TakenAt) {
			sum.ExpiringSoon++
		}
	}
	for i := range snap.Sales {
		sale := &snap.Sales[i]
		for _, l := range sale.Lines {
			sum.UnitsSold += l.Quantity
		}
		sum.Revenue = sum.Revenue.Add(sale.TotalAmount)
	}
	return sum
}
