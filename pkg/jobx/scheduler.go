package jobx

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/logx"
)

// Task is a unit of periodic or on-demand work.
type Task interface {
	Execute(ctx context.Context) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Execute(ctx context.Context) error { return f(ctx) }

// ScheduledTask runs Task every Interval while Enabled.
type ScheduledTask struct {
	Name     string
	Interval time.Duration
	Enabled  bool
	Task     Task
}

// TaskStatus is a snapshot of a registered task.
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Enabled   bool          `json:"enabled"`
	Running   bool          `json:"running"`
	Runs      int           `json:"runs"`
	LastStart time.Time     `json:"last_start,omitempty"`
	LastEnd   time.Time     `json:"last_end,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

type scheduled struct {
	ScheduledTask

	mu      sync.Mutex
	running bool
	status  TaskStatus
}

// Scheduler runs registered tasks on their intervals. A task never overlaps
// with itself: a tick that finds the previous run still going is skipped.
type Scheduler struct {
	mu    sync.RWMutex
	tasks map[string]*scheduled
	now   func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		tasks: make(map[string]*scheduled),
		now:   time.Now,
	}
}

func (s *Scheduler) Register(t ScheduledTask) error {
	if t.Name == "" || t.Task == nil {
		return jobxErrors.New(ErrInvalidJob).WithDetail("task", t.Name)
	}
	if t.Enabled && t.Interval <= 0 {
		return jobxErrors.New(ErrInvalidJob).
			WithDetail("task", t.Name).
			WithDetail("reason", "interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.Name]; ok {
		return jobxErrors.New(ErrDuplicateTask).WithDetail("task", t.Name)
	}
	s.tasks[t.Name] = &scheduled{
		ScheduledTask: t,
		status:        TaskStatus{Name: t.Name, Interval: t.Interval, Enabled: t.Enabled},
	}
	return nil
}

// Start runs every enabled task on its own ticker and blocks until ctx is
// cancelled and the running tasks return.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	var wg sync.WaitGroup
	for _, t := range s.tasks {
		if !t.Enabled {
			continue
		}
		wg.Add(1)
		go func(t *scheduled) {
			defer wg.Done()
			s.loop(ctx, t)
		}(t)
	}
	s.mu.RUnlock()

	<-ctx.Done()
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t *scheduled) {
	logx.WithFields(logx.Fields{"task": t.Name, "interval": t.Interval.String()}).Info("jobx: task scheduled")

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.run(ctx, t); err != nil && !errx.HasCode(err, ErrTaskRunning) {
				logx.WithError(err).WithField("task", t.Name).Warn("jobx: task failed")
			}
		}
	}
}

// RunNow runs the named task on the calling goroutine. It fails with
// ErrTaskRunning when the task is already in progress.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	t, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return jobxErrors.New(ErrTaskNotFound).WithDetail("task", name)
	}
	return s.run(ctx, t)
}

func (s *Scheduler) run(ctx context.Context, t *scheduled) (err error) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return jobxErrors.New(ErrTaskRunning).WithDetail("task", t.Name)
	}
	t.running = true
	t.status.LastStart = s.now()
	t.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %q panicked: %v", t.Name, p)
		}
		t.mu.Lock()
		t.running = false
		t.status.Runs++
		t.status.LastEnd = s.now()
		t.status.LastError = ""
		if err != nil {
			t.status.LastError = err.Error()
		}
		t.mu.Unlock()
	}()

	return t.Task.Execute(ctx)
}

// Tasks returns the status of every registered task, sorted by name.
func (s *Scheduler) Tasks() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.mu.Lock()
		st := t.status
		st.Running = t.running
		t.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
