package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task states mirror cycle states; PENDING covers the gap between trigger
// and cycle start.
const (
	TaskPending   = "PENDING"
	TaskRunning   = "RUNNING"
	TaskCompleted = "COMPLETED"
	TaskFailed    = "FAILED"
)

// maxTasks caps the in-memory registry; oldest finished tasks are pruned
// first when the cap is exceeded.
const maxTasks = 100

// Task tracks one async recompute trigger.
type Task struct {
	ID        string     `json:"task_id"`
	State     string     `json:"state"`
	Summary   *Summary   `json:"summary,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// TaskRegistry is the in-memory store behind the async trigger endpoint.
type TaskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*Task)}
}

func (r *TaskRegistry) Create() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := &Task{
		ID:        uuid.NewString(),
		State:     TaskPending,
		CreatedAt: time.Now(),
	}
	r.tasks[task.ID] = task
	r.pruneLocked()

	return task
}

// Get returns a copy so callers never race the updating goroutine.
func (r *TaskRegistry) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

func (r *TaskRegistry) MarkRunning(id string) {
	r.update(id, func(t *Task) {
		t.State = TaskRunning
	})
}

func (r *TaskRegistry) MarkCompleted(id string, summary Summary) {
	now := time.Now()
	r.update(id, func(t *Task) {
		t.State = TaskCompleted
		t.Summary = &summary
		t.EndedAt = &now
	})
}

func (r *TaskRegistry) MarkFailed(id string, summary Summary, err error) {
	now := time.Now()
	r.update(id, func(t *Task) {
		t.State = TaskFailed
		t.Summary = &summary
		t.Error = err.Error()
		t.EndedAt = &now
	})
}

func (r *TaskRegistry) update(id string, fn func(*Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		fn(task)
	}
}

func (r *TaskRegistry) pruneLocked() {
	if len(r.tasks) <= maxTasks {
		return
	}

	finished := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.State == TaskCompleted || t.State == TaskFailed {
			finished = append(finished, t)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	for _, t := range finished {
		if len(r.tasks) <= maxTasks {
			break
		}
		delete(r.tasks, t.ID)
	}
}
