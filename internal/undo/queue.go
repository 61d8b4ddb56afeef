package undo

import "sync"

// request pairs a command with the channel its result is delivered on.
type request struct {
	cmd  Command
	done chan outcome
}

type outcome struct {
	result Result
	err    error
}

// commandQueue is a thread-safe FIFO queue of pending requests.
//
// The queue is unbounded; callers block on their own done channel rather than
// on enqueueing. It uses a channel for signaling to enable context-aware
// waiting in the Dispatcher's Run loop.
type commandQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{} // Signals request availability (buffered, size 1)
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		requests: make([]request, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
// Returns (request{}, false) if the queue is empty.
func (q *commandQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}

	r := q.requests[0]
	// Nil out the slot so the backing array does not retain the request.
	q.requests[0] = request{}
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed when the queue is closed.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops accepting requests and wakes the waiter.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *commandQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
