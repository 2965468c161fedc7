package command

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrQueueFull is returned by PutTimeout when a bounded queue stays full
// for the whole timeout. Backpressure is always surfaced to the caller,
// never silently dropped.
var ErrQueueFull = errors.New("command queue is full")

// Stats is a point-in-time snapshot of queue lifecycle counters.
// Pending = TotalEnqueued - Processed - Errors at all times.
type Stats struct {
	TotalEnqueued int `json:"total_commands"`
	Pending       int `json:"pending"`
	Processed     int `json:"processed"`
	Errors        int `json:"errors"`
}

// Queue is a thread-safe FIFO mailbox of commands with lifecycle
// statistics. A maxSize of 0 means unbounded.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	nonFull  *sync.Cond
	items    []Command
	maxSize  int
	stats    Stats
}

// NewQueue creates an unbounded queue.
func NewQueue() *Queue {
	return NewBoundedQueue(0)
}

// NewBoundedQueue creates a queue holding at most maxSize pending
// commands (0 = unbounded).
func NewBoundedQueue(maxSize int) *Queue {
	q := &Queue{maxSize: maxSize}
	q.nonEmpty = sync.NewCond(&q.mu)
	q.nonFull = sync.NewCond(&q.mu)
	return q
}

// Put enqueues a command. On a bounded queue that is full it returns
// ErrQueueFull immediately.
func (q *Queue) Put(cmd Command) error {
	return q.put(cmd, 0)
}

// PutTimeout enqueues a command, waiting up to timeout for space on a
// bounded queue before giving up with ErrQueueFull.
func (q *Queue) PutTimeout(cmd Command, timeout time.Duration) error {
	return q.put(cmd, timeout)
}

func (q *Queue) put(cmd Command, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 {
		deadline := time.Now().Add(timeout)
		for len(q.items) >= q.maxSize {
			if timeout <= 0 {
				return ErrQueueFull
			}
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrQueueFull
			}
			waitCond(q.nonFull, remaining)
		}
	}

	q.items = append(q.items, cmd)
	q.stats.TotalEnqueued++
	q.stats.Pending++
	q.nonEmpty.Signal()
	return nil
}

// Get dequeues the next command, waiting up to timeout. The second
// return value is false when the timeout elapsed with nothing queued;
// the controller uses that to periodically check its running flag.
func (q *Queue) Get(timeout time.Duration) (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for len(q.items) == 0 {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Command{}, false
		}
		waitCond(q.nonEmpty, remaining)
	}

	cmd := q.items[0]
	q.items = q.items[1:]
	q.stats.Pending--
	q.nonFull.Signal()
	return cmd, true
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// MarkProcessed records one successfully handled command.
func (q *Queue) MarkProcessed() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Processed++
}

// MarkError records one command that failed during dispatch.
func (q *Queue) MarkError() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stats.Errors++
}

// Stats returns a copy of the lifecycle counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// waitCond waits on cond for at most d. The condition lock must be held.
// A timer broadcasts to wake the waiter; spurious wakeups are fine since
// all callers re-check their predicate in a loop.
func waitCond(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
}
