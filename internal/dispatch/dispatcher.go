// Package dispatch runs reply work in the background so webhook requests can
// be acknowledged immediately.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/wa-relay/internal/logging"
	"github.com/ziadkadry99/wa-relay/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("dispatch queue is full")
	// ErrClosed is returned by Submit after Shutdown has begun.
	ErrClosed = errors.New("dispatcher is shut down")
)

// Job is one unit of background work.
type Job struct {
	ID   string
	Name string
	Run  func(ctx context.Context)
}

// Options size the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	// JobTimeout bounds each job's context. Zero means no deadline.
	JobTimeout time.Duration
}

// Dispatcher is a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	opts   Options
	queue  chan Job
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts the workers. Non-positive sizes default to 4 workers and a
// queue of 64.
func New(opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		opts:   opts,
		queue:  make(chan Job, opts.QueueSize),
		logger: logger,
		base:   base,
		cancel: cancel,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit queues run without blocking and returns the job ID. Jobs run on a
// context detached from the caller's, carrying a logger tagged with the job.
func (d *Dispatcher) Submit(name string, run func(ctx context.Context)) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return "", ErrClosed
	}

	job := Job{ID: uuid.NewString(), Name: name, Run: run}
	select {
	case d.queue <- job:
		metrics.QueueDepth(len(d.queue))
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. If ctx ends first, running jobs are cancelled and ctx's error is
// returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return fmt.Errorf("dispatch drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.queue {
		metrics.QueueDepth(len(d.queue))
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	log := d.logger.With("job_id", job.ID, "job", job.Name)
	ctx := logging.WithLogger(d.base, log)
	if d.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	job.Run(ctx)
	log.Debug("job finished", "duration", time.Since(start))
}
