package queue

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/w-h-a/lio/internal/metrics"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Final() bool {
	return s == StatusSucceeded || s == StatusFailed
}

type Job struct {
	Id        string          `json:"job_id"`
	Task      string          `json:"task"`
	Status    Status          `json:"status"`
	Attempts  int             `json:"attempts"`
	Outcomes  map[string]bool `json:"outcomes,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const defaultRetention = 10000

// Tracker records the lifecycle of enqueued jobs so callers can poll for
// the outcome of work they submitted. Once more than the retention bound
// are held the oldest finished jobs are forgotten first. Jobs still in
// flight go only when nothing has finished.
type Tracker struct {
	jobs      map[string]*Job
	order     []string
	retention int
	mtx       sync.RWMutex
}

func (t *Tracker) Queued(id string, task string) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	now := time.Now().UTC()

	if _, ok := t.jobs[id]; !ok {
		t.order = append(t.order, id)
	}

	t.jobs[id] = &Job{
		Id:        id,
		Task:      task,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.trim()
}

// Started marks an attempt as running and returns its 1-based number.
func (t *Tracker) Started(id string, task string) int {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		// enqueued by another process
		now := time.Now().UTC()
		job = &Job{Id: id, Task: task, CreatedAt: now}
		t.jobs[id] = job
		t.order = append(t.order, id)
		defer t.trim()
	}

	job.Attempts++
	job.Status = StatusRunning
	job.UpdatedAt = time.Now().UTC()

	return job.Attempts
}

// Finished records the result of an attempt. A failed attempt that will
// be retried leaves the job in StatusRetrying.
func (t *Tracker) Finished(id string, outcome Outcome, err error, final bool) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	job, ok := t.jobs[id]
	if !ok {
		return
	}

	job.UpdatedAt = time.Now().UTC()

	if outcome != nil {
		job.Outcomes = maps.Clone(outcome)
	}

	switch {
	case err == nil:
		job.Status = StatusSucceeded
		job.Error = ""
	case final:
		job.Status = StatusFailed
		job.Error = err.Error()
	default:
		job.Status = StatusRetrying
		job.Error = err.Error()
	}

	if err == nil || final {
		metrics.JobsTotal.WithLabelValues(job.Task, string(job.Status)).Inc()
	}
}

// trim must be called with the write lock held.
func (t *Tracker) trim() {
	for len(t.order) > t.retention {
		victim := slices.IndexFunc(t.order, func(id string) bool {
			return t.jobs[id].Status.Final()
		})
		if victim < 0 {
			victim = 0
		}

		delete(t.jobs, t.order[victim])
		t.order = slices.Delete(t.order, victim, victim+1)
	}
}

func (t *Tracker) Get(id string) (Job, bool) {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}

	cpy := *job
	cpy.Outcomes = maps.Clone(job.Outcomes)

	return cpy, true
}

func NewTracker(retention int) *Tracker {
	if retention <= 0 {
		retention = defaultRetention
	}

	return &Tracker{
		jobs:      map[string]*Job{},
		order:     []string{},
		retention: retention,
		mtx:       sync.RWMutex{},
	}
}
