package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/wa-relay/internal/logging"
)

func TestSubmitRunsJob(t *testing.T) {
	d := New(Options{Workers: 2, QueueSize: 4}, logging.Discard())
	defer d.Shutdown(context.Background())

	done := make(chan struct{})
	id, err := d.Submit("test", func(ctx context.Context) { close(done) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a UUID job id, got %q", id)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSubmitDoesNotBlockWhenFull(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1}, logging.Discard())
	release := make(chan struct{})
	started := make(chan struct{})

	if _, err := d.Submit("blocker", func(ctx context.Context) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started

	if _, err := d.Submit("queued", func(ctx context.Context) {}); err != nil {
		t.Fatalf("unexpected error filling queue: %v", err)
	}

	start := time.Now()
	_, err := d.Submit("overflow", func(ctx context.Context) {})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Submit blocked on a full queue")
	}

	close(release)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 10}, logging.Discard())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if _, err := d.Submit("count", func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran.Load() != 5 {
		t.Errorf("expected 5 jobs to run, got %d", ran.Load())
	}

	if _, err := d.Submit("late", func(ctx context.Context) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after shutdown, got %v", err)
	}
}

func TestShutdownDeadlineCancelsJobs(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1}, logging.Discard())
	cancelled := make(chan struct{})
	started := make(chan struct{})

	d.Submit("slow", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		close(cancelled)
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("running job was not cancelled")
	}
}

func TestJobTimeout(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, JobTimeout: 10 * time.Millisecond}, logging.Discard())
	defer d.Shutdown(context.Background())

	errc := make(chan error, 1)
	d.Submit("bounded", func(ctx context.Context) {
		<-ctx.Done()
		errc <- ctx.Err()
	})

	select {
	case err := <-errc:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job deadline not applied")
	}
}

func TestPanicIsRecovered(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 2}, logging.Discard())

	var wg sync.WaitGroup
	wg.Add(1)
	d.Submit("panics", func(ctx context.Context) { panic("boom") })
	d.Submit("after", func(ctx context.Context) { wg.Done() })

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	d.Shutdown(context.Background())
}

func TestJobContextCarriesLogger(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1}, logging.Discard())
	defer d.Shutdown(context.Background())

	fallback := logging.Discard()
	got := make(chan bool, 1)
	d.Submit("ctx", func(ctx context.Context) {
		got <- logging.FromContext(ctx, fallback) != fallback
	})
	if !<-got {
		t.Error("expected a logger on the job context")
	}
}
