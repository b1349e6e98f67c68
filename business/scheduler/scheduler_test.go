package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"flexiprice/business/pricing"
	"flexiprice/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	batches []domain.InventoryBatch
	err     error
}

func (f *fakeSource) FindExpiring(context.Context, int) ([]domain.InventoryBatch, error) {
	return f.batches, f.err
}

type fakePricer struct {
	mu      sync.Mutex
	delay   time.Duration
	failIDs map[uint64]error
	priced  []uint64
}

func (f *fakePricer) ComputeBatch(ctx context.Context, batch domain.InventoryBatch) (domain.BatchDiscount, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.BatchDiscount{}, ctx.Err()
		}
	}

	if err, ok := f.failIDs[batch.ID]; ok {
		return domain.BatchDiscount{}, err
	}

	f.mu.Lock()
	f.priced = append(f.priced, batch.ID)
	f.mu.Unlock()

	return domain.BatchDiscount{BatchID: batch.ID}, nil
}

func (f *fakePricer) pricedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.priced)
}

func batches(n int) []domain.InventoryBatch {
	out := make([]domain.InventoryBatch, n)
	for i := range out {
		out[i] = domain.InventoryBatch{ID: uint64(i + 1)}
	}
	return out
}

func newTestScheduler(source BatchSource, pricer Pricer) *Scheduler {
	return New(source, pricer, nil, nil, nil, time.Hour, 5*time.Second, 30)
}

func TestRecomputeAll_ZeroBatchesCompletes(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakePricer{})

	summary, err := s.RecomputeAll(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 0, summary.Failed)

	state, _ := s.Status()
	assert.Equal(t, StateCompleted, state)
}

func TestRecomputeAll_SummaryCarriesTimestamps(t *testing.T) {
	s := newTestScheduler(&fakeSource{batches: batches(2)}, &fakePricer{})

	summary, err := s.RecomputeAll(context.Background(), 30)
	require.NoError(t, err)

	assert.False(t, summary.StartedAt.IsZero())
	assert.False(t, summary.EndedAt.IsZero(), "returned summary must carry the end timestamp")
	assert.False(t, summary.EndedAt.Before(summary.StartedAt))

	// The stored summary served by Status must match.
	_, last := s.Status()
	assert.False(t, last.EndedAt.IsZero())

	// Failed cycles get an end timestamp too.
	s = newTestScheduler(&fakeSource{err: errors.New("db down")}, &fakePricer{})
	summary, err = s.RecomputeAll(context.Background(), 30)
	require.Error(t, err)
	assert.False(t, summary.EndedAt.IsZero())
}

func TestRecomputeAll_PerBatchFailureIsolation(t *testing.T) {
	source := &fakeSource{batches: batches(5)}
	pricer := &fakePricer{failIDs: map[uint64]error{
		2: errors.New("db write failed"),
		4: &pricing.ValidationError{Msg: "no product"},
	}}
	s := newTestScheduler(source, pricer)

	summary, err := s.RecomputeAll(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)

	// Batch failures never fail the cycle.
	state, _ := s.Status()
	assert.Equal(t, StateCompleted, state)
}

func TestRecomputeAll_ConcurrentTriggersCoalesce(t *testing.T) {
	source := &fakeSource{batches: batches(10)}
	pricer := &fakePricer{delay: 20 * time.Millisecond}
	s := newTestScheduler(source, pricer)

	var wg sync.WaitGroup
	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RecomputeAll(context.Background(), 30)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrCycleRunning):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Exactly one cycle ran; the rest were coalesced away.
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, 10, pricer.pricedCount())
}

func TestRecomputeAll_BudgetStopsBetweenBatches(t *testing.T) {
	source := &fakeSource{batches: batches(50)}
	pricer := &fakePricer{delay: 30 * time.Millisecond}
	s := New(source, pricer, nil, nil, nil, time.Hour, 100*time.Millisecond, 30)

	summary, err := s.RecomputeAll(context.Background(), 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Budget cut in, well short of the full inventory.
	assert.Less(t, summary.Succeeded, 50)

	state, _ := s.Status()
	assert.Equal(t, StateFailed, state)
}

func TestRecomputeAll_SourceErrorFailsCycle(t *testing.T) {
	s := newTestScheduler(&fakeSource{err: errors.New("db down")}, &fakePricer{})

	_, err := s.RecomputeAll(context.Background(), 30)
	require.Error(t, err)

	state, _ := s.Status()
	assert.Equal(t, StateFailed, state)
}

func TestTriggerAsync_TaskLifecycle(t *testing.T) {
	source := &fakeSource{batches: batches(3)}
	s := newTestScheduler(source, &fakePricer{})

	taskID := s.TriggerAsync(30)
	require.NotEmpty(t, taskID)

	require.Eventually(t, func() bool {
		task, ok := s.Tasks().Get(taskID)
		return ok && task.State == TaskCompleted
	}, 2*time.Second, 10*time.Millisecond)

	task, ok := s.Tasks().Get(taskID)
	require.True(t, ok)
	require.NotNil(t, task.Summary)
	assert.Equal(t, 3, task.Summary.Attempted)
	assert.NotNil(t, task.EndedAt)
}

func TestTaskRegistry_UnknownTask(t *testing.T) {
	r := NewTaskRegistry()

	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestTaskRegistry_PrunesOldestFinished(t *testing.T) {
	r := NewTaskRegistry()

	var first string
	for i := 0; i < maxTasks+10; i++ {
		task := r.Create()
		if i == 0 {
			first = task.ID
		}
		r.MarkCompleted(task.ID, Summary{})
	}

	_, ok := r.Get(first)
	assert.False(t, ok, "oldest finished task should be pruned")
	assert.LessOrEqual(t, len(r.tasks), maxTasks)
}
