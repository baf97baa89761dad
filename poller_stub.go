//go:build !unix

package event

import "time"

// stubPoller keeps the package compiling on platforms without poll(2).
// Reactors that never reach the polling step (pure immediate-event use, or an
// injected [Poller]) still work; anything that needs real socket readiness
// reports [ErrNotImplemented].
type stubPoller struct{}

// NewPoller returns the platform's default [Poller].
func NewPoller() Poller {
	return stubPoller{}
}

// Poll implements [Poller].
func (stubPoller) Poll([]PollItem, time.Duration) (int, error) {
	return 0, ErrNotImplemented
}
