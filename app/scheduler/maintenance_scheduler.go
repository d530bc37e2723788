// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jinzhu/now"
	"github.com/ptichkin/brooder/app/dto"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
)

// ReminderSender is the slice of the notification service the scheduler needs
type ReminderSender interface {
	NotifyDeliveryReminder(ctx context.Context, order *models.Order) error
	SendOpsReport(ctx context.Context, chatID int64, text string) error
}

// AdminCacheRefresher reloads the cached admin roster
type AdminCacheRefresher interface {
	Refresh(ctx context.Context) error
}

// MaintenanceScheduler runs the daily housekeeping: archiving expired
// batches, next-day delivery reminders, and admin cache refreshes.
type MaintenanceScheduler struct {
	stockFlow businessflow.StockFlow
	orderRepo repository.OrderRepository
	notifier  ReminderSender
	cache     AdminCacheRefresher
	logger    *log.Logger

	schedCfg config.SchedulerConfig
	adminCfg config.AdminConfig

	lastSweepDay    time.Time
	lastReminderDay time.Time
	lastCacheLoad   time.Time
}

// NewMaintenanceScheduler creates a new maintenance scheduler instance
func NewMaintenanceScheduler(
	stockFlow businessflow.StockFlow,
	orderRepo repository.OrderRepository,
	notifier ReminderSender,
	cache AdminCacheRefresher,
	logger *log.Logger,
	schedCfg config.SchedulerConfig,
	adminCfg config.AdminConfig,
) *MaintenanceScheduler {
	if schedCfg.TickInterval <= 0 {
		schedCfg.TickInterval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &MaintenanceScheduler{
		stockFlow: stockFlow,
		orderRepo: orderRepo,
		notifier:  notifier,
		cache:     cache,
		logger:    logger,
		schedCfg:  schedCfg,
		adminCfg:  adminCfg,
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *MaintenanceScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.schedCfg.TickInterval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *MaintenanceScheduler) runOnce(ctx context.Context) {
	t := time.Now()
	today := now.With(t).BeginningOfDay()

	if t.Hour() >= s.schedCfg.SweepHour && !s.lastSweepDay.Equal(today) {
		s.runSweep(ctx)
		s.lastSweepDay = today
	}
	if t.Hour() >= s.schedCfg.ReminderHour && !s.lastReminderDay.Equal(today) {
		s.sendReminders(ctx, today)
		s.lastReminderDay = today
	}
	if s.cache != nil && time.Since(s.lastCacheLoad) >= s.schedCfg.AdminCacheTTL {
		if err := s.cache.Refresh(ctx); err != nil {
			s.logger.Printf("scheduler: admin cache refresh failed: %v", err)
		}
		s.lastCacheLoad = t
	}
}

func (s *MaintenanceScheduler) runSweep(ctx context.Context) {
	summary, err := s.stockFlow.ArchiveExpired(ctx)
	if err != nil {
		s.logger.Printf("scheduler: archival sweep failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: archival sweep done: %d batches archived, %d orders cancelled, %d units returned",
		summary.ArchivedBatches, summary.CancelledOrders, summary.ReturnedUnits)

	if summary.ArchivedBatches > 0 {
		s.reportSweep(ctx, summary)
	}
}

func (s *MaintenanceScheduler) reportSweep(ctx context.Context, summary *dto.ArchiveSweepResponse) {
	text := fmt.Sprintf(
		"🧹 Nightly sweep:\nArchived batches: %d\nCancelled orders: %d\nUnits returned: %d",
		summary.ArchivedBatches, summary.CancelledOrders, summary.ReturnedUnits,
	)
	if err := s.notifier.SendOpsReport(ctx, s.adminCfg.OpsChatID, text); err != nil {
		s.logger.Printf("scheduler: ops report failed: %v", err)
	}
}

// sendReminders pings every customer with an active order arriving tomorrow
func (s *MaintenanceScheduler) sendReminders(ctx context.Context, today time.Time) {
	tomorrow := now.With(today.AddDate(0, 0, 1)).BeginningOfDay()

	orders, err := s.orderRepo.ByDeliveryDate(ctx, tomorrow, models.OrderStatusActive)
	if err != nil {
		s.logger.Printf("scheduler: listing tomorrow's orders failed: %v", err)
		return
	}
	sent := 0
	for _, order := range orders {
		if err := s.notifier.NotifyDeliveryReminder(ctx, order); err != nil {
			s.logger.Printf("scheduler: reminder failed for order %d: %v", order.ID, err)
			continue
		}
		sent++
	}
	if len(orders) > 0 {
		s.logger.Printf("scheduler: sent %d/%d delivery reminders for %s", sent, len(orders), tomorrow.Format("2006-01-02"))
	}
}
