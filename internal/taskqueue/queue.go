package taskqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"legal_marketplace_service/pkg/logger"

	"go.uber.org/zap"
)

// Task is one deferred operation against the rate-limited backend.
type Task func(ctx context.Context) (interface{}, error)

// Result is delivered on the channel returned by Submit once the task settles.
type Result struct {
	Value interface{}
	Err   error
}

type entry struct {
	task   Task
	result chan Result
}

// SerializedTaskQueue executes submitted tasks strictly in FIFO order with
// at most one task in flight. A task failure is delivered only to its own
// submitter; the queue keeps processing the remaining entries. Every task
// runs under a bounded deadline so one hung call cannot stall the queue
// forever.
type SerializedTaskQueue struct {
	mu      sync.Mutex
	entries []*entry
	wake    chan struct{}
	done    chan struct{}
	closed  bool

	taskTimeout time.Duration
}

// New creates the queue and starts its single worker. taskTimeout bounds
// each task's execution; zero means no deadline.
func New(taskTimeout time.Duration) *SerializedTaskQueue {
	q := &SerializedTaskQueue{
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		taskTimeout: taskTimeout,
	}
	go q.run()
	return q
}

// Submit enqueues task and returns the channel its result will arrive on.
// The channel is buffered, so the submitter may collect the result later
// or never without blocking the worker.
func (q *SerializedTaskQueue) Submit(task Task) <-chan Result {
	res := make(chan Result, 1)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		res <- Result{Err: fmt.Errorf("task queue closed")}
		return res
	}
	q.entries = append(q.entries, &entry{task: task, result: res})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return res
}

// Len returns the number of tasks waiting to run.
func (q *SerializedTaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops the worker after the current task settles. Entries still
// queued are rejected.
func (q *SerializedTaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, e := range pending {
		e.result <- Result{Err: fmt.Errorf("task queue closed")}
	}
	close(q.done)
}

func (q *SerializedTaskQueue) run() {
	for {
		e := q.pop()
		if e == nil {
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}

		e.result <- q.execute(e.task)
	}
}

func (q *SerializedTaskQueue) pop() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e
}

// execute runs one task under the queue deadline. On expiry the entry is
// rejected and the worker moves on; the task goroutine is left to finish
// on its own.
func (q *SerializedTaskQueue) execute(task Task) Result {
	ctx := context.Background()
	cancel := context.CancelFunc(func() {})
	if q.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, q.taskTimeout)
	}
	defer cancel()

	settled := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("task panic", zap.Any("panic", r))
				settled <- Result{Err: fmt.Errorf("task panic: %v", r)}
			}
		}()
		v, err := task(ctx)
		settled <- Result{Value: v, Err: err}
	}()

	select {
	case res := <-settled:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}
