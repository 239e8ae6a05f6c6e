package jobx

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue. Jobs are lost on restart.
type MemoryQueue struct {
	mu        sync.Mutex
	jobs      map[string]*JobInfo
	ready     map[string][]string
	scheduled map[string]time.Time
	notify    chan struct{}
	now       func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs:      make(map[string]*JobInfo),
		ready:     make(map[string][]string),
		scheduled: make(map[string]time.Time),
		notify:    make(chan struct{}, 1),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (q *MemoryQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *MemoryQueue) add(job Job) *JobInfo {
	info := NewJobInfo(uuid.NewString(), job.withDefaults(), q.now())
	q.jobs[info.ID] = &info
	return &info
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) (string, error) {
	q.mu.Lock()
	info := q.add(job)
	q.ready[info.Queue] = append(q.ready[info.Queue], info.ID)
	q.mu.Unlock()
	q.wake()
	return info.ID, nil
}

func (q *MemoryQueue) EnqueueDelayed(_ context.Context, job Job, delay time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info := q.add(job)
	q.scheduled[info.ID] = q.now().Add(delay)
	return info.ID, nil
}

func (q *MemoryQueue) GetJob(_ context.Context, jobID string) (*JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return nil, jobxErrors.New(ErrJobNotFound).WithDetail("job_id", jobID)
	}
	c := *info
	return &c, nil
}

func (q *MemoryQueue) pop(queues []string) *JobInfo {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, name := range queues {
		ids := q.ready[name]
		if len(ids) == 0 {
			continue
		}
		q.ready[name] = ids[1:]
		info := q.jobs[ids[0]]
		info.Status = JobStatusActive
		info.Attempts++
		info.UpdatedAt = q.now()
		c := *info
		return &c
	}
	return nil
}

// Dequeue returns the oldest ready job of the first non-empty queue, or nil
// when none arrives within timeout.
func (q *MemoryQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*JobInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if info := q.pop(queues); info != nil {
			return info, nil
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-deadline.C:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) update(jobID string, fn func(*JobInfo)) (*JobInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	info, ok := q.jobs[jobID]
	if !ok {
		return nil, jobxErrors.New(ErrJobNotFound).WithDetail("job_id", jobID)
	}
	fn(info)
	info.UpdatedAt = q.now()
	return info, nil
}

func (q *MemoryQueue) Complete(_ context.Context, jobID string, result []byte) error {
	_, err := q.update(jobID, func(info *JobInfo) {
		info.Status = JobStatusCompleted
		info.Result = result
	})
	return err
}

func (q *MemoryQueue) Fail(_ context.Context, jobID string, errMsg string) (bool, error) {
	var retry bool
	_, err := q.update(jobID, func(info *JobInfo) {
		retry = info.ShouldRetry()
		info.Status = JobStatusFailed
		if retry {
			info.Status = JobStatusRetrying
		}
		info.Error = errMsg
	})
	return retry, err
}

func (q *MemoryQueue) Retry(_ context.Context, jobID string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[jobID]; !ok {
		return jobxErrors.New(ErrJobNotFound).WithDetail("job_id", jobID)
	}
	q.scheduled[jobID] = q.now().Add(delay)
	return nil
}

func (q *MemoryQueue) PromoteScheduled(_ context.Context, queues []string) error {
	wanted := make(map[string]bool, len(queues))
	for _, name := range queues {
		wanted[name] = true
	}

	q.mu.Lock()
	now := q.now()
	promoted := 0
	for id, at := range q.scheduled {
		info := q.jobs[id]
		if at.After(now) || !wanted[info.Queue] {
			continue
		}
		delete(q.scheduled, id)
		q.ready[info.Queue] = append(q.ready[info.Queue], id)
		promoted++
	}
	q.mu.Unlock()

	if promoted > 0 {
		q.wake()
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
