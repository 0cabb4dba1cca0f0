package provision

import (
	"context"
	"fmt"
	"sync"

	"github.com/matzehuels/stackpack/pkg/errors"
)

// Queue runs submitted tasks one at a time in submission order. It has no
// capacity limit. The worker goroutine starts on demand and exits when the
// queue drains, so a Queue needs no shutdown.
//
// A task whose submitter's context is already done when the task reaches the
// front is skipped. A task that has started runs to completion: it receives
// a context that carries the submitter's values but not its cancellation.
type Queue struct {
	mu      sync.Mutex
	tasks   []*task
	running bool // worker goroutine alive
	busy    bool // a task is executing
}

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan struct{}
	err  error
}

// Ticket tracks one submitted task.
type Ticket struct {
	// Pending is the number of tasks ahead of this one at submission time.
	Pending int

	t *task
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Submit appends fn to the queue and returns immediately.
func (q *Queue) Submit(ctx context.Context, fn func(context.Context) error) *Ticket {
	t := &task{ctx: ctx, fn: fn, done: make(chan struct{})}

	q.mu.Lock()
	pending := len(q.tasks)
	if q.busy {
		pending++
	}
	q.tasks = append(q.tasks, t)
	if !q.running {
		q.running = true
		go q.drain()
	}
	q.mu.Unlock()

	return &Ticket{Pending: pending, t: t}
}

// Do submits fn and waits for it.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	return q.Submit(ctx, fn).Wait(ctx)
}

// Len returns the number of tasks waiting or executing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	if q.busy {
		n++
	}
	return n
}

// Wait blocks until the task finishes or ctx is done. Abandoning the wait
// does not remove a task that has already started.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.t.done:
		return t.t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the task has finished or was skipped.
func (t *Ticket) Done() <-chan struct{} { return t.t.done }

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		t := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.busy = true
		q.mu.Unlock()

		t.err = run(t)
		close(t.done)

		q.mu.Lock()
		q.busy = false
		q.mu.Unlock()
	}
}

func run(t *task) (err error) {
	if err := t.ctx.Err(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.ErrCodeInternal, "provisioning task panicked: %v", fmt.Sprint(r))
		}
	}()
	return t.fn(context.WithoutCancel(t.ctx))
}
