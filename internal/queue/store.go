package queue

import (
	"log/slog"
	"sync"
	"time"

	"reel/internal/logging"
)

// Recorder mirrors job transitions into external storage. Implementations
// must tolerate being called from multiple workers; failures are the
// recorder's problem to report, never the store's.
type Recorder interface {
	Record(event string, job *Job)
}

// Recorder event names.
const (
	EventRegistered = "registered"
	EventStarted    = "started"
	EventCompleted  = "completed"
	EventFailed     = "failed"
	EventCancelled  = "cancelled"
)

// Store owns the canonical job records. Every read-modify-write runs under
// one mutex so concurrent workers and the submission path always observe
// whole transitions.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string

	submitted  int64
	completed  int64
	failed     int64
	cancelled  int64
	processing int64

	recorder Recorder
	logger   *slog.Logger
}

// StoreOption configures optional store behavior.
type StoreOption func(*Store)

// WithRecorder attaches a transition recorder.
func WithRecorder(recorder Recorder) StoreOption {
	return func(s *Store) {
		s.recorder = recorder
	}
}

// NewStore constructs an empty job store.
func NewStore(logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	store := &Store{
		jobs:   make(map[string]*Job),
		logger: logging.WithComponent(logger, "job-store"),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Register inserts a new pending job and increments the submitted counter.
func (s *Store) Register(job *Job) {
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.submitted++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventRegistered, snapshot)
	s.logger.Info("job registered",
		logging.String(logging.FieldJobID, snapshot.ID),
		logging.String(logging.FieldOperation, snapshot.Operation),
		logging.String("input", snapshot.InputRef),
	)
}

// Get returns a snapshot of the job, or false when unknown.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// List returns snapshots of jobs in submission order, optionally filtered by
// exact status. Callers never observe a job mutating mid-iteration.
func (s *Store) List(statuses ...Status) []*Job {
	filter := make(map[Status]struct{}, len(statuses))
	for _, status := range statuses {
		filter[status] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		job := s.jobs[id]
		if job == nil {
			continue
		}
		if len(filter) > 0 {
			if _, ok := filter[job.Status]; !ok {
				continue
			}
		}
		out = append(out, job.Clone())
	}
	return out
}

// Cancel transitions a job to Cancelled, succeeding only while it is still
// Pending. The check and the transition are atomic with respect to workers.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusPending {
		s.mu.Unlock()
		return false
	}
	job.Status = StatusCancelled
	s.cancelled++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventCancelled, snapshot)
	s.logger.Info("job cancelled", logging.String(logging.FieldJobID, id))
	return true
}

// MarkProcessing claims a pending job for a worker, stamping StartedAt. It
// returns false when the job is unknown or no longer pending (cancelled while
// queued), in which case the worker skips execution.
func (s *Store) MarkProcessing(id string) (*Job, bool) {
	now := time.Now()
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusPending {
		s.mu.Unlock()
		return nil, false
	}
	job.Status = StatusProcessing
	job.StartedAt = &now
	s.processing++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventStarted, snapshot)
	return snapshot, true
}

// SetProgress records a progress percentage for a processing job. Values are
// clamped to [0,100]; regressions and updates after a terminal transition are
// dropped so progress stays monotone within a run.
func (s *Store) SetProgress(id string, percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		return
	}
	if percent > job.Progress {
		job.Progress = percent
	}
}

// MarkCompleted finalizes a successful run: progress 100, outcome stored,
// CompletedAt stamped.
func (s *Store) MarkCompleted(id string, outcome *Outcome) {
	now := time.Now()
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	job.Status = StatusCompleted
	job.Progress = 100
	job.Result = outcome
	job.CompletedAt = &now
	s.processing--
	s.completed++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventCompleted, snapshot)
	s.logger.Info("job completed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldOperation, snapshot.Operation),
	)
}

// MarkFailed finalizes a failed run. Progress is frozen at its last reported
// value.
func (s *Store) MarkFailed(id string, message string) {
	now := time.Now()
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusProcessing {
		s.mu.Unlock()
		return
	}
	job.Status = StatusFailed
	job.Error = message
	job.CompletedAt = &now
	s.processing--
	s.failed++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventFailed, snapshot)
	s.logger.Error("job failed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldOperation, snapshot.Operation),
		logging.String("error", message),
	)
}

// FailPending transitions a job that was never claimed by a worker straight
// from Pending to Failed. Used for resolution failures detected at dequeue.
func (s *Store) FailPending(id string, message string) {
	now := time.Now()
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusPending {
		s.mu.Unlock()
		return
	}
	job.Status = StatusFailed
	job.Error = message
	job.CompletedAt = &now
	s.failed++
	snapshot := job.Clone()
	s.mu.Unlock()

	s.record(EventFailed, snapshot)
	s.logger.Error("job failed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldOperation, snapshot.Operation),
		logging.String("error", message),
	)
}

// discard removes a job that never became visible to callers. Only the
// submission path uses this, to back out a registration whose enqueue failed.
func (s *Store) discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return
	}
	delete(s.jobs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.submitted--
}

// Counters is a point-in-time view of the transition counters.
type Counters struct {
	Submitted  int64
	Completed  int64
	Failed     int64
	Cancelled  int64
	Processing int64
}

// Counters returns the current transition counters.
func (s *Store) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counters{
		Submitted:  s.submitted,
		Completed:  s.completed,
		Failed:     s.failed,
		Cancelled:  s.cancelled,
		Processing: s.processing,
	}
}

// record forwards a snapshot to the recorder. Callers pass clones taken
// under the store lock so the recorder never sees live records.
func (s *Store) record(event string, snapshot *Job) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(event, snapshot)
}
