package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"flexiprice/business/pricing"
	"flexiprice/domain"
	"flexiprice/pkg/logger"
	"flexiprice/pkg/metrics"
)

// ErrCycleRunning is returned when a recompute is requested while another
// cycle holds the singleton guard. Triggers coalesce; they never queue.
var ErrCycleRunning = errors.New("recompute cycle already running")

// Cycle states. FAILED means the cycle itself could not run to completion;
// individual batch failures leave the cycle COMPLETED.
const (
	StateIdle      = "IDLE"
	StateRunning   = "RUNNING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
)

// Summary is the outcome of one recompute cycle.
type Summary struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// BatchSource lists the inventory batches a cycle should touch.
type BatchSource interface {
	FindExpiring(ctx context.Context, thresholdDays int) ([]domain.InventoryBatch, error)
}

// Pricer recomputes one batch.
type Pricer interface {
	ComputeBatch(ctx context.Context, batch domain.InventoryBatch) (domain.BatchDiscount, error)
}

// Maintainer runs the housekeeping pass after pricing: closing out priced
// results whose batches have expired.
type Maintainer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// HistoryTrimmer drops price history rows past the retention window.
type HistoryTrimmer interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

// historyRetentionDays bounds the price history table; trend analysis
// rarely looks back further than two quarters.
const historyRetentionDays = 180

// Lease is a cross-process singleton guard. A nil lease means single
// instance deployment; the in-process guard is still enforced.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler owns the periodic full-inventory recompute: one cycle at a
// time, bounded by a wall-clock budget, with per-batch failure isolation.
type Scheduler struct {
	batches    BatchSource
	pricer     Pricer
	maintainer Maintainer
	history    HistoryTrimmer
	lease      Lease

	interval      time.Duration
	budget        time.Duration
	thresholdDays int

	running atomic.Bool
	tasks   *TaskRegistry

	mu        sync.Mutex
	lastState string
	lastRun   Summary
}

func New(batches BatchSource, pricer Pricer, maintainer Maintainer, history HistoryTrimmer, lease Lease, interval, budget time.Duration, thresholdDays int) *Scheduler {
	return &Scheduler{
		batches:       batches,
		pricer:        pricer,
		maintainer:    maintainer,
		history:       history,
		lease:         lease,
		interval:      interval,
		budget:        budget,
		thresholdDays: thresholdDays,
		tasks:         NewTaskRegistry(),
		lastState:     StateIdle,
	}
}

// Tasks exposes the async task registry for status lookups.
func (s *Scheduler) Tasks() *TaskRegistry {
	return s.tasks
}

// Status returns the current cycle state and the last finished summary.
func (s *Scheduler) Status() (string, Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return StateRunning, s.lastRun
	}
	return s.lastState, s.lastRun
}

// Run drives the periodic recompute until ctx is cancelled. An overlapping
// tick is dropped, not queued.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("recompute scheduler started", "interval", s.interval, "budget", s.budget)

	for {
		select {
		case <-ctx.Done():
			logger.Info("recompute scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RecomputeAll(ctx, s.thresholdDays); err != nil {
				if errors.Is(err, ErrCycleRunning) {
					logger.Debug("scheduled recompute skipped, cycle in flight")
					continue
				}
				logger.Error("scheduled recompute cycle failed", "error", err)
			}
		}
	}
}

// RecomputeAll runs one full cycle synchronously. It returns ErrCycleRunning
// when another cycle holds the guard, in this process or another one.
func (s *Scheduler) RecomputeAll(ctx context.Context, thresholdDays int) (Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.RecomputeCyclesTotal.WithLabelValues("coalesced").Inc()
		return Summary{}, ErrCycleRunning
	}
	defer s.running.Store(false)

	if thresholdDays <= 0 {
		thresholdDays = s.thresholdDays
	}

	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx, s.budget)
		if err != nil {
			logger.Warn("recompute lease check failed, proceeding without it", "error", err)
		} else if !ok {
			metrics.RecomputeCyclesTotal.WithLabelValues("coalesced").Inc()
			return Summary{}, ErrCycleRunning
		} else {
			defer func() {
				if err := s.lease.Release(context.Background()); err != nil {
					logger.Warn("recompute lease release failed", "error", err)
				}
			}()
		}
	}

	summary, err := s.runCycle(ctx, thresholdDays)

	s.mu.Lock()
	s.lastRun = summary
	if err != nil {
		s.lastState = StateFailed
	} else {
		s.lastState = StateCompleted
	}
	s.mu.Unlock()

	return summary, err
}

func (s *Scheduler) runCycle(parent context.Context, thresholdDays int) (summary Summary, err error) {
	ctx, cancel := context.WithTimeout(parent, s.budget)
	defer cancel()

	summary = Summary{StartedAt: time.Now()}
	// Named return: every exit path, including the early ones, carries
	// the end timestamp out to the caller.
	defer func() {
		summary.EndedAt = time.Now()
	}()

	batchList, err := s.batches.FindExpiring(ctx, thresholdDays)
	if err != nil {
		metrics.RecomputeCyclesTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("list expiring batches: %w", err)
	}

	summary.Attempted = len(batchList)
	logger.Info("recompute cycle started", "batches", len(batchList), "threshold_days", thresholdDays)

	for _, batch := range batchList {
		// Budget and shutdown are honored between batches, never mid-write.
		if err := ctx.Err(); err != nil {
			metrics.RecomputeCyclesTotal.WithLabelValues("cancelled").Inc()
			return summary, fmt.Errorf("cycle interrupted: %w", err)
		}

		if _, err := s.pricer.ComputeBatch(ctx, batch); err != nil {
			var verr *pricing.ValidationError
			if errors.As(err, &verr) {
				summary.Skipped++
				logger.Warn("batch skipped during recompute", "batch_id", batch.ID, "error", err)
				metrics.RecomputeBatchesTotal.WithLabelValues("skipped").Inc()
				continue
			}
			summary.Failed++
			logger.Error("batch failed during recompute", "batch_id", batch.ID, "error", err)
			metrics.RecomputeBatchesTotal.WithLabelValues("failed").Inc()
			continue
		}

		summary.Succeeded++
		metrics.RecomputeBatchesTotal.WithLabelValues("succeeded").Inc()
	}

	if s.maintainer != nil {
		closed, err := s.maintainer.ExpireStale(ctx, time.Now())
		if err != nil {
			logger.Warn("stale discount cleanup failed", "error", err)
		} else if closed > 0 {
			logger.Info("stale discounts closed", "count", closed)
		}
	}

	if s.history != nil {
		trimmed, err := s.history.DeleteOlderThan(ctx, historyRetentionDays)
		if err != nil {
			logger.Warn("price history trim failed", "error", err)
		} else if trimmed > 0 {
			logger.Info("price history trimmed", "count", trimmed)
		}
	}

	metrics.RecomputeCyclesTotal.WithLabelValues("completed").Inc()
	logger.Info("recompute cycle finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"elapsed", time.Since(summary.StartedAt),
	)

	return summary, nil
}

// TriggerAsync starts a cycle in the background and returns a task ID for
// polling. The ErrCycleRunning case is reported through the task state so
// the HTTP caller still gets an ID to inspect.
func (s *Scheduler) TriggerAsync(thresholdDays int) string {
	task := s.tasks.Create()

	go func() {
		s.tasks.MarkRunning(task.ID)

		summary, err := s.RecomputeAll(context.Background(), thresholdDays)
		if err != nil {
			s.tasks.MarkFailed(task.ID, summary, err)
			return
		}
		s.tasks.MarkCompleted(task.ID, summary)
	}()

	return task.ID
}
