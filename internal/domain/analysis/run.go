package analysis

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle position of a Run.
type State int32

// Run states. A run moves Idle → Running → Completed or Failed; Cancel moves
// it to Terminated from any state.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Run is the caller's handle on one analysis. Events arrive on Events() in
// order and the channel is closed when the run ends. A run that finishes
// delivers exactly one Completed or Failed event; a cancelled run delivers
// none.
type Run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	state  atomic.Int32
	done   chan struct{}
	once   sync.Once

	// pubMu serializes publish with the discard in Cancel.
	pubMu sync.Mutex
}

// NewRun creates an idle run bound to ctx. Cancelling ctx cancels the run.
func NewRun(ctx context.Context, buffer int) *Run {
	if buffer < 0 {
		buffer = 0
	}
	rctx, cancel := context.WithCancel(ctx)
	return &Run{
		id:     uuid.NewString(),
		ctx:    rctx,
		cancel: cancel,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the unique identifier of the run.
func (r *Run) ID() string { return r.id }

// Events returns the run's event stream.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed once the run has released its resources.
func (r *Run) Done() <-chan struct{} { return r.done }

// State returns the current lifecycle state.
func (r *Run) State() State { return State(r.state.Load()) }

// Cancel stops the run. No events are delivered after Cancel returns: events
// still buffered are discarded. It is safe to call more than once and from
// any goroutine.
func (r *Run) Cancel() {
	for {
		cur := r.State()
		if cur == StateTerminated {
			return
		}
		if r.state.CompareAndSwap(int32(cur), int32(StateTerminated)) {
			r.cancel()
			r.discard()
			if cur == StateIdle {
				// Nobody is driving the run yet, so nobody else will close it.
				r.finish()
			}
			return
		}
	}
}

func (r *Run) transition(from, to State) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

// publish delivers ev unless the run has been cancelled.
func (r *Run) publish(ev Event) bool {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// discard empties the event buffer. It runs after r.ctx is cancelled, so a
// publish blocked on a full buffer returns and later ones deliver nothing.
func (r *Run) discard() {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	for {
		select {
		case _, ok := <-r.events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (r *Run) finish() {
	r.once.Do(func() {
		r.cancel()
		close(r.events)
		close(r.done)
	})
}

// NewRun creates an idle run with the controller's event buffer, for callers
// that schedule Drive themselves.
func (c *Controller) NewRun(ctx context.Context) *Run {
	return NewRun(ctx, c.eventBuffer)
}

// Start runs req on a new goroutine and returns its handle immediately.
func (c *Controller) Start(ctx context.Context, req Request) *Run {
	r := c.NewRun(ctx)
	go c.Drive(r, req.Clone())
	return r
}

// Drive executes req for r on the calling goroutine and closes r's event
// stream when done. A run that was cancelled before Drive is called is left
// untouched.
func (c *Controller) Drive(r *Run, req Request) {
	if !r.transition(StateIdle, StateRunning) {
		return
	}
	defer r.finish()

	done, err := c.Execute(r.ctx, req, func(ev Event) { r.publish(ev) })
	ev, ok := Terminal(done, err)
	if !ok || r.ctx.Err() != nil {
		r.transition(StateRunning, StateTerminated)
		return
	}

	next := StateCompleted
	if _, failed := ev.(Failed); failed {
		next = StateFailed
	}
	if !r.transition(StateRunning, next) {
		return
	}
	r.publish(ev)
}
