package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"reel/internal/logging"
)

// SubmitRequest describes a job submission.
type SubmitRequest struct {
	InputRef   string
	Operation  string
	Parameters Params
	OutputRef  string
}

// Stats combines the store's transition counters with the pool's live view.
type Stats struct {
	Submitted     int64
	Completed     int64
	Failed        int64
	Cancelled     int64
	Processing    int64
	QueueDepth    int
	ActiveWorkers int
}

// Pool runs a fixed number of workers against the FIFO. Each worker claims
// one job at a time, resolves its operation, and executes the handler on its
// own goroutine so a slow external process never stalls sibling workers.
type Pool struct {
	store    *Store
	registry *Registry
	fifo     *FIFO
	logger   *slog.Logger

	workers        int
	pollTimeout    time.Duration
	progressBuffer int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  atomic.Int32
}

// PoolOption configures optional pool behavior.
type PoolOption func(*Pool)

// WithWorkers sets the default worker count used when Start is called
// without an explicit override.
func WithWorkers(count int) PoolOption {
	return func(p *Pool) {
		if count > 0 {
			p.workers = count
		}
	}
}

// WithQueueCapacity bounds the number of jobs awaiting a worker.
func WithQueueCapacity(capacity int) PoolOption {
	return func(p *Pool) {
		if capacity > 0 {
			p.fifo = NewFIFO(capacity)
		}
	}
}

// WithPollTimeout sets how long an idle worker blocks on the queue before
// re-checking shutdown.
func WithPollTimeout(timeout time.Duration) PoolOption {
	return func(p *Pool) {
		if timeout > 0 {
			p.pollTimeout = timeout
		}
	}
}

// WithProgressBuffer sets the per-job progress sink capacity.
func WithProgressBuffer(size int) PoolOption {
	return func(p *Pool) {
		if size > 0 {
			p.progressBuffer = size
		}
	}
}

// NewPool constructs a worker pool over the given store and registry.
func NewPool(store *Store, registry *Registry, logger *slog.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	pool := &Pool{
		store:          store,
		registry:       registry,
		fifo:           NewFIFO(0),
		logger:         logging.WithComponent(logger, "worker-pool"),
		workers:        4,
		pollTimeout:    time.Second,
		progressBuffer: 16,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Submit validates the request, constructs the job, registers it, and hands
// it to the FIFO. The returned snapshot carries the assigned identifier and
// derived output reference.
func (p *Pool) Submit(req SubmitRequest) (*Job, error) {
	inputRef := strings.TrimSpace(req.InputRef)
	if inputRef == "" {
		return nil, errors.New("submit: input reference is required")
	}
	operation := strings.ToLower(strings.TrimSpace(req.Operation))
	if operation == "" {
		return nil, errors.New("submit: operation is required")
	}

	now := time.Now()
	params := req.Parameters.Clone()
	outputRef := strings.TrimSpace(req.OutputRef)
	if outputRef == "" {
		outputRef = DeriveOutputPath(inputRef, operation, params, now)
	}

	job := &Job{
		ID:         uuid.NewString(),
		InputRef:   inputRef,
		OutputRef:  outputRef,
		Operation:  operation,
		Parameters: params,
		Status:     StatusPending,
		CreatedAt:  now,
	}

	p.store.Register(job)
	if err := p.fifo.Enqueue(job.ID); err != nil {
		p.store.discard(job.ID)
		return nil, fmt.Errorf("submit: %w", err)
	}
	return job.Clone(), nil
}

// Start launches the worker loops. A non-positive count falls back to the
// configured default.
func (p *Pool) Start(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = p.workers
	}
	if workers <= 0 {
		return errors.New("worker pool: no workers configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(runCtx, i)
	}

	p.logger.Info("worker pool started", logging.Int("workers", workers))
	return nil
}

// Stop cancels the worker loops and waits for them to drain. Jobs whose
// external process is mid-flight finish or abort with the cancelled context;
// the pool never force-kills beyond that.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Running reports whether worker loops are active.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns transition counters plus queue depth and active worker count.
func (p *Pool) Stats() Stats {
	counters := p.store.Counters()
	return Stats{
		Submitted:     counters.Submitted,
		Completed:     counters.Completed,
		Failed:        counters.Failed,
		Cancelled:     counters.Cancelled,
		Processing:    counters.Processing,
		QueueDepth:    p.fifo.Depth(),
		ActiveWorkers: int(p.active.Load()),
	}
}

func (p *Pool) run(ctx context.Context, index int) {
	defer p.wg.Done()
	p.active.Add(1)
	defer p.active.Add(-1)

	logger := p.logger.With(logging.Int("worker", index))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped")
			return
		default:
		}

		id, ok := p.fifo.Dequeue(ctx, p.pollTimeout)
		if !ok {
			continue
		}
		p.execute(ctx, logger, id)
	}
}

func (p *Pool) execute(ctx context.Context, logger *slog.Logger, id string) {
	job, ok := p.store.Get(id)
	if !ok {
		logger.Warn("dequeued unknown job", logging.String(logging.FieldJobID, id))
		return
	}
	if job.Status == StatusCancelled {
		logger.Debug("skipping cancelled job", logging.String(logging.FieldJobID, id))
		return
	}

	handler, ok := p.registry.Resolve(job.Operation)
	if !ok {
		p.store.FailPending(id, fmt.Sprintf("unknown operation: %s", job.Operation))
		return
	}

	claimed, ok := p.store.MarkProcessing(id)
	if !ok {
		// Lost the race with a cancellation between dequeue and claim.
		logger.Debug("skipping unclaimable job", logging.String(logging.FieldJobID, id))
		return
	}

	logger.Info("job started",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldOperation, claimed.Operation),
		logging.String("input", claimed.InputRef),
		logging.String("output", claimed.OutputRef),
	)

	sink := make(chan float64, p.progressBuffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for percent := range sink {
			p.store.SetProgress(id, percent)
		}
	}()

	outcome, err := p.invoke(ctx, handler, claimed, sink)
	close(sink)
	<-drained

	if err != nil {
		p.store.MarkFailed(id, err.Error())
		return
	}
	p.store.MarkCompleted(id, outcome)
}

// invoke isolates one job execution behind a recovery boundary so a panicking
// handler fails its job instead of killing the worker loop.
func (p *Pool) invoke(ctx context.Context, handler Handler, job *Job, sink chan float64) (outcome *Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	req := Request{
		InputRef:   job.InputRef,
		OutputRef:  job.OutputRef,
		Parameters: job.Parameters,
	}
	return handler(ctx, req, sink)
}
