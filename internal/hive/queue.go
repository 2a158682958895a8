package hive

import (
	"sync"
	"time"

	"github.com/Clyde17271/LEX-TRI/internal/temporal"
	"github.com/Clyde17271/LEX-TRI/internal/worker"
)

type eventType int

const (
	// eventSubmit enqueues new tasks.
	eventSubmit eventType = iota + 1
	// eventResult applies a worker outcome.
	eventResult
	// eventCancel cancels a pending task.
	eventCancel
	// eventNodeStatus changes a node's availability.
	eventNodeStatus
	// eventQuery runs a read on the loop goroutine.
	eventQuery
)

// event is one unit of work for the coordinator loop.
type event struct {
	typ eventType

	tasks      []*Task
	timelineID string
	timeline   *temporal.Timeline

	taskID   string
	analysis worker.Analysis
	err      error
	at       time.Time

	nodeID     string
	nodeStatus NodeStatus

	query func()

	// reply receives the outcome for submit, cancel and node status events.
	reply chan error
}

// eventQueue is a thread-safe unbounded FIFO.
//
// Producers are public API calls and worker goroutines; the only consumer
// is Coordinator.Run. A size-1 signal channel lets the loop wait on the
// queue and ctx in one select.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]
	// Clear the slot so the backing array does not pin timelines.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and returns whatever was still queued so
// the caller can release waiters.
func (q *eventQueue) Close() []event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	rest := q.events
	q.events = nil
	return rest
}
