// Package scheduler runs periodic inventory scans: items nearing
// expiry and items whose central availability has run low.
package scheduler

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/medrep/promostock/internal/config"
	"github.com/medrep/promostock/internal/store"
)

// LastScanKey is the settings key recording when the scan last ran.
const LastScanKey = "last_inventory_scan"

// Scheduler manages the periodic scan jobs.
type Scheduler struct {
	cron *cron.Cron
	db   *sql.DB
	cfg  *config.Config
	log  *zap.Logger
}

// New creates a scheduler. A nil logger disables logging.
func New(db *sql.DB, cfg *config.Config, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron: cron.New(),
		db:   db,
		cfg:  cfg,
		log:  log,
	}
}

// Start registers and starts the scan jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ExpiryScanSchedule, s.runScan); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("schedule", s.cfg.ExpiryScanSchedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// runScan logs items expiring within the configured window, items low
// on central stock, and any allocation-integrity violations.
func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expiring, err := store.ExpiringItems(ctx, s.db, s.cfg.ExpiryWindowDays)
	if err != nil {
		s.log.Error("expiry scan failed", zap.Error(err))
	}
	for _, item := range expiring {
		s.log.Warn("item expiring soon",
			zap.Int64("stock_item_id", item.StockItemID),
			zap.String("name", item.Name),
			zap.Timep("expiry", item.Expiry),
			zap.Int("quantity", item.Quantity))
	}

	low, err := store.LowCentralStock(ctx, s.db, s.cfg.LowStockThreshold)
	if err != nil {
		s.log.Error("low stock scan failed", zap.Error(err))
	}
	for _, item := range low {
		s.log.Warn("central stock low",
			zap.Int64("stock_item_id", item.StockItemID),
			zap.String("name", item.Name),
			zap.Int("available", item.Available))
	}

	violations, err := store.CheckAllocationIntegrity(ctx, s.db)
	if err != nil {
		s.log.Error("integrity check failed", zap.Error(err))
	}
	for _, id := range violations {
		s.log.Error("allocations exceed nominal total",
			zap.Int64("stock_item_id", id))
	}

	if err := store.SetSetting(ctx, s.db, LastScanKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Error("recording scan time failed", zap.Error(err))
	}
}
