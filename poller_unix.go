//go:build unix

package event

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// pollPoller implements [Poller] on top of poll(2). The reactor re-submits
// its full interest set on every pass, which maps directly onto the stateless
// poll call; there is no registration to keep in sync.
type pollPoller struct {
	fds []unix.PollFd
}

// NewPoller returns the platform's default [Poller].
func NewPoller() Poller {
	return &pollPoller{}
}

// Poll implements [Poller].
func (p *pollPoller) Poll(items []PollItem, timeout time.Duration) (int, error) {
	if cap(p.fds) < len(items) {
		p.fds = make([]unix.PollFd, len(items))
	}
	p.fds = p.fds[:len(items)]
	for i := range items {
		p.fds[i] = unix.PollFd{Fd: int32(items[i].FD), Events: unixEvents(items[i].Events)}
		items[i].REvents = 0
	}

	n, err := unix.Poll(p.fds, pollTimeout(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			// Spurious wake-up; the reactor recomputes its wait and retries.
			return 0, nil
		}
		return 0, err
	}
	for i := range items {
		items[i].REvents = eventMask(p.fds[i].Revents)
	}
	return n, nil
}

func pollTimeout(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout.Milliseconds())
	if ms == 0 && timeout > 0 {
		// Round sub-millisecond waits up so the reactor doesn't spin.
		ms = 1
	}
	return ms
}

func unixEvents(m EventMask) int16 {
	var events int16
	if m&EventIn != 0 {
		events |= unix.POLLIN
	}
	return events
}

func eventMask(revents int16) EventMask {
	var m EventMask
	if revents&unix.POLLIN != 0 {
		m |= EventIn
	}
	if revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
		m |= EventErr
	}
	if revents&unix.POLLHUP != 0 {
		m |= EventHup
	}
	return m
}
