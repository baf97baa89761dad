package event

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eapache/queue"
	"github.com/petermattis/goid"
)

var (
	// ErrReactorRunning is reported when Run is called on a reactor that is
	// already dispatching.
	ErrReactorRunning = errors.New("event: reactor is already running")

	// ErrInvalidInterval is reported by AddTimer for intervals below one
	// millisecond.
	ErrInvalidInterval = errors.New("event: timer interval must be at least one millisecond")

	// ErrInvalidCount is reported by AddTimer for a zero event count.
	ErrInvalidCount = errors.New("event: timer count must be positive or unbounded")

	// ErrUnknownTimer is reported when a timer id does not name a registered
	// timer, either because it never existed or because the timer has fired
	// its last event or been removed.
	ErrUnknownTimer = errors.New("event: unknown timer id")
)

// SocketHandler is invoked with the reactor and the handle that became
// read-ready. A non-nil error stops dispatch and propagates out of
// [Reactor.Run].
type SocketHandler func(r *Reactor, fd int) error

// TimerHandler is invoked with the reactor and the id of the timer that
// fired. A non-nil error stops dispatch and propagates out of [Reactor.Run].
type TimerHandler func(r *Reactor, id TimerID) error

// EventHandler is an immediate-event callback. A non-nil error stops dispatch
// and propagates out of [Reactor.Run].
type EventHandler func(r *Reactor) error

// TimerID identifies a timer registration. An id stays valid for
// [Reactor.RemoveTimer] and [Reactor.RestartTimerInterval] until the timer
// fires its last event or is removed; lookups of expired ids fail with
// [ErrUnknownTimer].
type TimerID int

// InvalidTimerID is never returned by [Reactor.AddTimer].
const InvalidTimerID TimerID = 0

type socketReg struct {
	fd      int // -1 once removed; compacted away before the next poll
	handler SocketHandler
}

// Reactor is a single-threaded dispatcher for socket readiness, timers and
// immediate events.
//
// Socket handlers fire whenever their handle polls read-ready, in
// registration order when several handlers share a handle. Timers fire a
// fixed or unbounded number of times on a drift-free cadence. Immediate
// events run at the top of the next dispatch pass, before any polling.
// Handlers may freely add and remove registrations, including their own,
// while they run: removals take effect against the pass in flight. Additions
// made by timer and socket handlers become eligible on the next pass;
// additions made by immediate events, which run before the poll, take part in
// the current pass.
//
// A Reactor is a single-owner object with no internal synchronization. While
// Run is active, every method must be called from the goroutine executing it;
// violations panic.
type Reactor struct {
	clock  Clock
	poller Poller

	sockets      []socketReg
	pollItems    []PollItem
	needsRebuild bool

	timers      timerQueue
	nextTimerID TimerID
	firing      *timer

	events *queue.Queue // immediate events, FIFO

	running       bool
	stopRequested bool
	gid           int64 // goroutine driving Run, 0 when idle
}

// NewReactor creates a reactor backed by the system clock and the platform
// poller.
func NewReactor() *Reactor {
	return NewReactorWith(SystemClock, NewPoller())
}

// NewReactorWith creates a reactor with an injected clock and poller.
func NewReactorWith(clock Clock, poller Poller) *Reactor {
	return &Reactor{
		clock:  clock,
		poller: poller,
		events: queue.New(),
	}
}

// AddSocket registers handler to be invoked whenever fd becomes read-ready.
// Several handlers may be registered for the same handle; each one fires once
// per readiness observation, in registration order.
func (r *Reactor) AddSocket(fd int, handler SocketHandler) {
	r.checkOwner()
	r.sockets = append(r.sockets, socketReg{fd: fd, handler: handler})
	r.needsRebuild = true
}

// RemoveSocket removes every handler registered for fd. When called from
// inside one of fd's handlers, the remaining handlers for fd are skipped for
// the rest of the pass, even if the last poll reported the handle ready.
// Removing a handle that was never registered does nothing.
func (r *Reactor) RemoveSocket(fd int) {
	r.checkOwner()
	for i := range r.sockets {
		if r.sockets[i].fd == fd {
			r.sockets[i].fd = -1
		}
	}
	r.needsRebuild = true
}

// AddTimer registers a timer whose handler fires count times (unbounded if
// count is negative) at the given interval, the first time one interval
// after this call. The returned id names the timer to RemoveTimer and
// RestartTimerInterval.
func (r *Reactor) AddTimer(interval time.Duration, count int, handler TimerHandler) (TimerID, error) {
	r.checkOwner()
	if interval < time.Millisecond {
		return InvalidTimerID, ErrInvalidInterval
	}
	if count == 0 {
		return InvalidTimerID, ErrInvalidCount
	}
	if count < 0 {
		count = -1
	}
	r.nextTimerID++
	t := &timer{
		id:        r.nextTimerID,
		deadline:  r.clock.Now().Add(interval),
		interval:  interval,
		remaining: count,
		handler:   handler,
	}
	heap.Push(&r.timers, t)
	return t.id, nil
}

// RemoveTimer removes the timer named by id, cancelling all of its future
// events. A timer may remove itself from its own handler.
func (r *Reactor) RemoveTimer(id TimerID) error {
	r.checkOwner()
	t := r.timers.find(id)
	if t == nil {
		return ErrUnknownTimer
	}
	heap.Remove(&r.timers, t.index)
	return nil
}

// RestartTimerInterval resets the timer's next deadline to one interval from
// now, leaving its interval and remaining count untouched. It re-aligns a
// periodic timer after an external event; called on the timer currently being
// dispatched, it re-aligns that timer's next fire from now.
func (r *Reactor) RestartTimerInterval(id TimerID) error {
	r.checkOwner()
	t := r.timers.find(id)
	if t == nil {
		return ErrUnknownTimer
	}
	t.deadline = r.clock.Now().Add(t.interval)
	heap.Fix(&r.timers, t.index)
	if t == r.firing {
		t.restarted = true
	}
	return nil
}

// Stop requests that the running dispatch loop return. Called from inside a
// handler, the loop finishes that handler and then returns from Run. Called
// while the reactor is idle, the request is consumed by the next Run, which
// returns immediately.
func (r *Reactor) Stop() {
	r.checkOwner()
	r.stopRequested = true
}

// AddImmediateEvent schedules handler to run once at the earliest point of
// the reactor's next dispatch pass, before polling. Immediate events run in
// FIFO order; events enqueued while the queue is draining run in the same
// pass.
func AddImmediateEvent(r *Reactor, handler EventHandler) {
	r.checkOwner()
	r.events.Add(handler)
}

// Run dispatches immediate events, due timers and ready sockets until Stop
// is called or no registration that could still fire remains. A handler
// error stops dispatch and is returned; all registrations survive, so Run
// may be called again afterwards.
func (r *Reactor) Run() error {
	if r.running {
		return ErrReactorRunning
	}
	r.running = true
	r.gid = goid.Get()
	defer func() {
		r.running = false
		r.firing = nil
		r.gid = 0
	}()

	for {
		if r.stopRequested {
			r.stopRequested = false
			return nil
		}

		// Immediate events first, FIFO. Events enqueued during the drain
		// belong to this same pass.
		for r.events.Length() > 0 {
			handler := r.events.Remove().(EventHandler)
			if err := handler(r); err != nil {
				return r.dispatchFailed(err)
			}
			if r.stopRequested {
				r.stopRequested = false
				return nil
			}
		}

		if r.needsRebuild {
			r.rebuild()
		}
		if len(r.sockets) == 0 && r.timers.Len() == 0 {
			return nil
		}

		timeout := time.Duration(-1)
		if r.timers.Len() > 0 {
			timeout = max(0, r.timers.peek().deadline.Sub(r.clock.Now()))
		}
		socketCount := len(r.sockets)
		if _, err := r.poller.Poll(r.pollItems, timeout); err != nil {
			return r.dispatchFailed(fmt.Errorf("event: poll failed: %w", err))
		}

		// Due timers next, in (deadline, id) order. The post-poll instant
		// decides which timers are due, so timers added by a timer or socket
		// handler (whose deadlines lie at least one interval past it) never
		// fire in the pass that created them.
		now := r.clock.Now()
		for r.timers.Len() > 0 && !r.timers.peek().deadline.After(now) {
			if err := r.fireTimer(r.timers.peek()); err != nil {
				return r.dispatchFailed(err)
			}
			if r.stopRequested {
				r.stopRequested = false
				return nil
			}
		}

		// Finally the ready sockets, in registration order, skipping any
		// removed earlier in the pass.
		for i := 0; i < socketCount; i++ {
			if !r.pollItems[i].REvents.readable() || r.sockets[i].fd < 0 {
				continue
			}
			if err := r.sockets[i].handler(r, r.sockets[i].fd); err != nil {
				return r.dispatchFailed(err)
			}
			if r.stopRequested {
				r.stopRequested = false
				return nil
			}
		}
	}
}

// fireTimer runs t's handler and then settles the registration: decrement a
// bounded count, self-remove on zero, otherwise advance the deadline by one
// interval. The bookkeeping runs even when the handler fails, and is skipped
// entirely if the handler removed its own timer.
func (r *Reactor) fireTimer(t *timer) error {
	r.firing = t
	t.restarted = false
	err := t.handler(r, t.id)
	r.firing = nil

	if t.index >= 0 {
		if t.remaining > 0 {
			t.remaining--
		}
		if t.remaining == 0 {
			heap.Remove(&r.timers, t.index)
		} else if !t.restarted {
			// Advance by the interval, not from now: the cadence stays
			// drift-free across slow passes.
			t.deadline = t.deadline.Add(t.interval)
			heap.Fix(&r.timers, t.index)
		}
	}
	return err
}

// rebuild compacts removed sockets and rebuilds the poll set. Removal only
// tombstones entries, so indices stay stable for the duration of a dispatch
// pass; the compaction happens here, between passes.
func (r *Reactor) rebuild() {
	n := 0
	for i := range r.sockets {
		if r.sockets[i].fd >= 0 {
			r.sockets[n] = r.sockets[i]
			n++
		}
	}
	for i := n; i < len(r.sockets); i++ {
		r.sockets[i] = socketReg{}
	}
	r.sockets = r.sockets[:n]

	r.pollItems = r.pollItems[:0]
	for i := range r.sockets {
		r.pollItems = append(r.pollItems, PollItem{FD: r.sockets[i].fd, Events: EventIn})
	}
	r.needsRebuild = false
}

// dispatchFailed tears down the in-flight pass before the error leaves Run.
// Registrations are left intact so the reactor can be run again.
func (r *Reactor) dispatchFailed(err error) error {
	slog.Debug("event: reactor stopping on handler error", slog.Any("error", err))
	r.stopRequested = false
	return err
}

// checkOwner panics when a running reactor is touched from a goroutine other
// than the one executing Run, turning a latent data race into an immediate
// failure.
func (r *Reactor) checkOwner() {
	if r.gid != 0 && goid.Get() != r.gid {
		panic("event: reactor used from outside its dispatch goroutine")
	}
}

// timer is a single timer registration.
type timer struct {
	id        TimerID
	deadline  time.Time
	interval  time.Duration
	remaining int // -1 when unbounded
	restarted bool
	handler   TimerHandler
	index     int // heap position; -1 once removed
}

// timerQueue is a priority queue of timers sorted so the topmost timer is the
// one due soonest, with simultaneous deadlines broken by ascending id.
type timerQueue []*timer

// Len implements [heap.Interface].
func (q timerQueue) Len() int { return len(q) }

// Less implements [heap.Interface].
func (q timerQueue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].id < q[j].id
	}
	return q[i].deadline.Before(q[j].deadline)
}

// Swap implements [heap.Interface].
func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

// Push implements [heap.Interface].
func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = q.Len()
	*q = append(*q, t)
}

// Pop implements [heap.Interface].
func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

func (q timerQueue) peek() *timer { return q[0] }

func (q timerQueue) find(id TimerID) *timer {
	for _, t := range q {
		if t.id == id {
			return t
		}
	}
	return nil
}
