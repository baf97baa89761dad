package event

import (
	"errors"
	"time"
)

// ErrNotImplemented is reported by operations that are unsupported on the
// current platform.
var ErrNotImplemented = errors.New("event: not implemented on this platform")

// EventMask is a set of readiness conditions for a polled socket.
type EventMask int16

const (
	// EventIn indicates that the socket has data available for reading.
	EventIn EventMask = 1 << iota
	// EventErr indicates an error condition on the socket.
	EventErr
	// EventHup indicates that the peer has closed its end of the connection.
	EventHup
)

// readable reports whether the mask should be dispatched as read readiness.
// Error and hang-up conditions count as readable; the handler observes them
// as a zero-byte read.
func (m EventMask) readable() bool {
	return m&(EventIn|EventErr|EventHup) != 0
}

// PollItem is one socket submitted to a [Poller]: the handle, the readiness
// conditions of interest, and the conditions reported back by the last poll.
type PollItem struct {
	FD      int
	Events  EventMask
	REvents EventMask
}

// Poller multiplexes readiness over a set of sockets.
//
// Poll blocks until at least one item satisfies its readiness interest or the
// timeout elapses, fills in REvents for every item, and returns the number of
// ready items. A negative timeout blocks indefinitely; a zero timeout polls
// without blocking; an empty item set with a non-negative timeout sleeps for
// the timeout. Implementations may wake spuriously, returning zero ready
// items early, and may report spurious readiness; callers must tolerate both.
type Poller interface {
	Poll(items []PollItem, timeout time.Duration) (int, error)
}
