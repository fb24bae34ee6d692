// Package workpool provides a fixed-size worker pool whose workers each own
// a lazily created, reusable state value. Admission is bounded by a weighted
// semaphore so the producer blocks once every worker is busy.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Wait has been called.
var ErrClosed = errors.New("workpool: pool is closed")

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task runs on a worker with that worker's state.
type Task[S any] func(ctx context.Context, state S) error

// Done is called exactly once per accepted task with the task's outcome.
type Done func(err error)

type job[S any] struct {
	ctx  context.Context
	task Task[S]
	done Done
}

// Pool runs tasks on a fixed number of workers.
type Pool[S any] struct {
	size     int
	newState func(worker int) (S, error)
	sem      *semaphore.Weighted
	jobs     chan job[S]
	wg       sync.WaitGroup
	closed   atomic.Bool
	once     sync.Once
}

// New starts size workers. A size of zero or less uses runtime.NumCPU().
// newState builds a worker's state the first time that worker runs a task,
// and again after a task panicked.
func New[S any](size int, newState func(worker int) (S, error)) *Pool[S] {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool[S]{
		size:     size,
		newState: newState,
		sem:      semaphore.NewWeighted(int64(size)),
		jobs:     make(chan job[S]),
	}
	p.wg.Add(size)
	for i := range size {
		go p.work(i)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[S]) Size() int {
	return p.size
}

// Submit blocks until a permit is free, then hands task to a worker. done
// may be nil. When Submit returns an error the task was not accepted, done
// is not called and no permit is held. Submit must not be called
// concurrently with Wait.
func (p *Pool[S]) Submit(ctx context.Context, task Task[S], done Done) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	select {
	case p.jobs <- job[S]{ctx: ctx, task: task, done: done}:
		return nil
	case <-ctx.Done():
		p.sem.Release(1)
		return ctx.Err()
	}
}

// Wait stops accepting tasks and blocks until every accepted task finished
// and all workers exited. It is safe to call more than once.
func (p *Pool[S]) Wait() {
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.jobs)
	})
	p.wg.Wait()
}

func (p *Pool[S]) work(worker int) {
	defer p.wg.Done()

	var state S
	ready := false
	for j := range p.jobs {
		if !ready {
			s, err := p.newState(worker)
			if err != nil {
				p.finish(j, fmt.Errorf("creating worker %d state: %w", worker, err))
				continue
			}
			state, ready = s, true
		}

		err := run(j, state)
		var pe *PanicError
		if errors.As(err, &pe) {
			var zero S
			state, ready = zero, false
		}
		p.finish(j, err)
	}
}

func run[S any](j job[S], state S) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return j.task(j.ctx, state)
}

func (p *Pool[S]) finish(j job[S], err error) {
	defer p.sem.Release(1)
	if j.done != nil {
		j.done(err)
	}
}
