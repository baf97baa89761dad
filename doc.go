// Package event implements the event-loop core of a distributed
// co-simulation middleware: a single-threaded [Reactor] that multiplexes
// socket readiness with timers and immediate events, and a [Promise]/[Future]
// pair whose completion handlers are dispatched through the reactor.
//
// All types in this package are single-owner objects. They perform no
// synchronization and must only be touched from the goroutine that drives
// [Reactor.Run]; a running reactor enforces this and panics on cross-goroutine
// use. Code running on other goroutines must marshal work onto the reactor
// goroutine through its own thread-safe shim.
package event
