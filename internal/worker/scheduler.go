// Package worker runs background syncs: a periodic sweep over every
// syncable item plus on-demand syncs delivered over AMQP.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rdipippo/BudgetManager/internal/amqp"
	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/services"
)

// ItemSyncer runs one item sync. Implemented by services.SyncService.
type ItemSyncer interface {
	SyncItem(ctx context.Context, itemID, userID int64) (services.SyncResult, error)
}

// BacklogCategorizer resolves a user's uncategorized backlog after a sync
// lands new transactions. Implemented by services.Categorizer.
type BacklogCategorizer interface {
	ApplyToUncategorized(ctx context.Context, userID int64) (int, error)
}

// ItemSource lists the items the periodic sweep should cover.
type ItemSource interface {
	SyncableItems(ctx context.Context) ([]core.Item, error)
}

// SchedulerConfig holds scheduler tuning.
type SchedulerConfig struct {
	// Interval between periodic sweeps (default: 6h).
	Interval time.Duration

	// Concurrency caps how many items sync at once (default: 4).
	Concurrency int
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:    6 * time.Hour,
		Concurrency: 4,
	}
}

// Scheduler periodically syncs every syncable item and, after each sync,
// runs the categorizer over the user's new transactions.
type Scheduler struct {
	items       ItemSource
	syncer      ItemSyncer
	categorizer BacklogCategorizer
	config      SchedulerConfig
	logger      *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(items ItemSource, syncer ItemSyncer, categorizer BacklogCategorizer, config SchedulerConfig, logger *log.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultSchedulerConfig().Concurrency
	}
	return &Scheduler{
		items:       items,
		syncer:      syncer,
		categorizer: categorizer,
		config:      config,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "scheduler started",
		"interval", s.config.Interval,
		"concurrency", s.config.Concurrency)
	return nil
}

// Stop gracefully stops the scheduler and waits for the current sweep.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "scheduler stopped")
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup.
	s.SweepAll(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepAll(ctx)
		}
	}
}

// SweepAll syncs every syncable item with bounded concurrency. Failures are
// logged per item; one broken item never blocks the rest.
func (s *Scheduler) SweepAll(ctx context.Context) {
	items, err := s.items.SyncableItems(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list syncable items", log.FieldError, err)
		return
	}
	if len(items) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "sweep started", "items", len(items))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			s.syncOne(ctx, item.ID, item.UserID)
			return nil
		})
	}
	g.Wait()
}

// HandleSyncMessage processes one on-demand sync request from the queue.
// Run-level failures are returned so the delivery is nacked and retried.
func (s *Scheduler) HandleSyncMessage(ctx context.Context, msg *amqp.ItemSyncMessage) error {
	result, err := s.syncer.SyncItem(ctx, msg.ItemID, msg.UserID)
	if err != nil {
		return fmt.Errorf("sync item %d: %w", msg.ItemID, err)
	}
	s.categorizeBacklog(ctx, msg.UserID)
	s.logger.InfoContext(ctx, "on-demand sync complete",
		log.FieldItemID, msg.ItemID,
		log.FieldReason, msg.Reason,
		log.FieldAdded, result.Added,
		log.FieldModified, result.Modified,
		log.FieldRemoved, result.Removed)
	return nil
}

func (s *Scheduler) syncOne(ctx context.Context, itemID, userID int64) {
	result, err := s.syncer.SyncItem(ctx, itemID, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled sync failed",
			log.FieldItemID, itemID, log.FieldError, err)
		return
	}
	if result.Added > 0 || result.Modified > 0 {
		s.categorizeBacklog(ctx, userID)
	}
}

func (s *Scheduler) categorizeBacklog(ctx context.Context, userID int64) {
	count, err := s.categorizer.ApplyToUncategorized(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "backlog categorization failed",
			log.FieldUserID, userID, log.FieldError, err)
		return
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "backlog categorized",
			log.FieldUserID, userID, "count", count)
	}
}
