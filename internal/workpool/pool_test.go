package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	id   int
	runs int
}

func newCounterPool(size int, created *atomic.Int32) *Pool[*counter] {
	return New(size, func(worker int) (*counter, error) {
		created.Add(1)
		return &counter{id: worker}, nil
	})
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const size, tasks = 3, 20
	var created atomic.Int32
	p := newCounterPool(size, &created)

	var inFlight, peak atomic.Int32
	var completed atomic.Int32
	for range tasks {
		err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			c.runs++
			inFlight.Add(-1)
			return nil
		}, func(err error) {
			if err != nil {
				t.Errorf("task failed: %v", err)
			}
			completed.Add(1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()

	if got := completed.Load(); got != tasks {
		t.Errorf("completed = %d, want %d", got, tasks)
	}
	if got := peak.Load(); got > size {
		t.Errorf("peak concurrency = %d, want <= %d", got, size)
	}
	if got := created.Load(); got > size {
		t.Errorf("created %d worker states, want <= %d", got, size)
	}
}

func TestPool_StateReusedPerWorker(t *testing.T) {
	var created atomic.Int32
	p := newCounterPool(1, &created)

	var mu sync.Mutex
	var seen []*counter
	for range 5 {
		err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Wait()

	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}
	for _, c := range seen {
		if c != seen[0] {
			t.Fatal("single worker should reuse its state")
		}
	}
}

func TestPool_CancelledSubmitReleasesPermit(t *testing.T) {
	var created atomic.Int32
	p := newCounterPool(1, &created)

	release := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
		close(started)
		<-release
		return nil
	}, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	called := false
	err := p.Submit(ctx, func(ctx context.Context, c *counter) error { return nil }, func(error) { called = true })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Submit on full pool = %v, want DeadlineExceeded", err)
	}
	close(release)

	// The only permit must be available again.
	done := make(chan error, 1)
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error { return nil }, func(err error) { done <- err }); err != nil {
		t.Fatalf("Submit after cancel: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("task error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("permit leaked: follow-up task never ran")
	}
	p.Wait()
	if called {
		t.Error("done must not be called for a rejected task")
	}
}

func TestPool_PanicRecoveredAndStateDiscarded(t *testing.T) {
	var created atomic.Int32
	p := newCounterPool(1, &created)

	errs := make(chan error, 2)
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
		panic("boom")
	}, func(err error) { errs <- err }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
		return nil
	}, func(err error) { errs <- err }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Wait()

	var pe *PanicError
	if err := <-errs; !errors.As(err, &pe) || pe.Value != "boom" {
		t.Errorf("first error = %v, want PanicError(boom)", err)
	}
	if err := <-errs; err != nil {
		t.Errorf("second task error = %v, want nil", err)
	}
	if created.Load() != 2 {
		t.Errorf("created = %d, want 2 (state rebuilt after panic)", created.Load())
	}
}

func TestPool_StateErrorFailsTask(t *testing.T) {
	boom := errors.New("no state")
	p := New(1, func(int) (*counter, error) { return nil, boom })

	var got error
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error {
		t.Error("task must not run without state")
		return nil
	}, func(err error) { got = err }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Wait()
	if !errors.Is(got, boom) {
		t.Errorf("error = %v, want %v", got, boom)
	}
}

func TestPool_SubmitAfterWait(t *testing.T) {
	var created atomic.Int32
	p := newCounterPool(2, &created)
	p.Wait()
	p.Wait()
	if err := p.Submit(context.Background(), func(ctx context.Context, c *counter) error { return nil }, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Wait = %v, want ErrClosed", err)
	}
}

func TestNew_DefaultSize(t *testing.T) {
	var created atomic.Int32
	p := newCounterPool(0, &created)
	defer p.Wait()
	if p.Size() < 1 {
		t.Errorf("Size = %d, want >= 1", p.Size())
	}
}
