package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/settlement_engine/internal/core/ports/services"
	"github.com/SscSPs/settlement_engine/internal/middleware"
)

// Scheduler periodically runs the overdue sweep and the orphaned debit replay.
type Scheduler struct {
	BaseService
	invoices       portssvc.InvoiceLifecycleSvc
	reconciliation portssvc.ReconciliationSvc
	interval       time.Duration
	orphanAge      time.Duration
	logger         *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a stopped scheduler. orphanAge is how old a debit must be before it is replayed.
func NewScheduler(invoices portssvc.InvoiceLifecycleSvc, reconciliation portssvc.ReconciliationSvc, interval, orphanAge time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		invoices:       invoices,
		reconciliation: reconciliation,
		interval:       interval,
		orphanAge:      orphanAge,
		logger:         logger.With(slog.String("component", "scheduler")),
	}
}

// Start launches the loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil || s.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("Scheduler started", slog.Duration("interval", s.interval))
}

// Stop ends the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one overdue sweep and one replay pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx = middleware.WithLogger(ctx, s.logger)

	if n, err := s.invoices.MarkOverdue(ctx, s.Now()); err != nil {
		s.LogError(ctx, err, "Overdue sweep failed")
	} else if n > 0 {
		s.LogDebug(ctx, "Overdue sweep done", slog.Int("updated", n))
	}

	if _, err := s.reconciliation.ReplayOrphanedDebits(ctx, s.orphanAge); err != nil {
		s.LogError(ctx, err, "Orphaned debit replay failed")
	}
}
