package event

import "errors"

var (
	// ErrNoState is reported by operations on a promise or future that does
	// not (or no longer does) share state with a counterpart.
	ErrNoState = errors.New("event: no shared state")

	// ErrFutureRetrieved is reported by a second call to GetFuture.
	ErrFutureRetrieved = errors.New("event: future already retrieved")

	// ErrPromiseSatisfied is reported when a promise that already holds a
	// result or exception is resolved again.
	ErrPromiseSatisfied = errors.New("event: promise already satisfied")

	// ErrBrokenPromise is delivered to a future whose promise was closed
	// without ever being resolved.
	ErrBrokenPromise = errors.New("event: broken promise")

	// ErrNilHandler is reported when a required handler is nil.
	ErrNilHandler = errors.New("event: nil handler")

	// ErrNilException is reported by SetException(nil).
	ErrNilException = errors.New("event: nil exception")
)

// Void is the result type of promises and futures that carry no value.
type Void = struct{}

// ResultHandler consumes a future's result. A non-nil error propagates out
// of [Reactor.Run].
type ResultHandler[T any] func(T) error

// ExceptionHandler consumes a future's exception. A non-nil error propagates
// out of [Reactor.Run]; [Rethrow] is the default.
type ExceptionHandler func(error) error

// Rethrow is the default exception handler: the exception propagates
// unchanged out of [Reactor.Run].
func Rethrow(err error) error { return err }

// sharedState is the cell shared by a promise and its future. It holds the
// handlers, stored through the future, and the result or exception, stored
// through the promise; as soon as it holds both, invocation of the matching
// handler is scheduled on the reactor as an immediate event.
type sharedState[T any] struct {
	reactor *Reactor

	futureRetrieved bool
	resultRetrieved bool

	resultHandler    ResultHandler[T]
	exceptionHandler ExceptionHandler

	result    T
	hasResult bool
	exception error
}

// Promise is the producing end of a one-shot deferred result dispatched by a
// [Reactor].
//
// A promise that may end up abandoned must be closed; Close injects the
// broken-promise exception so the consumer is not left waiting forever. The
// reactor must outlive the promise.
type Promise[T any] struct {
	state *sharedState[T]
}

// NewPromise creates a promise whose handlers will be dispatched by r.
func NewPromise[T any](r *Reactor) *Promise[T] {
	return &Promise[T]{state: &sharedState[T]{reactor: r}}
}

// GetFuture returns the future sharing this promise's state. There is only
// one: a second call reports [ErrFutureRetrieved].
func (p *Promise[T]) GetFuture() (*Future[T], error) {
	if p == nil || p.state == nil {
		return nil, ErrNoState
	}
	if p.state.futureRetrieved {
		return nil, ErrFutureRetrieved
	}
	p.state.futureRetrieved = true
	return &Future[T]{state: p.state}, nil
}

// SetValue stores the promise's result and, if a result handler has been
// registered, schedules its invocation as an immediate event. The caller
// never observes handler side effects before SetValue returns.
func (p *Promise[T]) SetValue(result T) error {
	if err := p.unsatisfied(); err != nil {
		return err
	}
	p.state.result = result
	p.state.hasResult = true
	if p.state.resultHandler != nil {
		scheduleResult(p.state)
	}
	return nil
}

// SetException stores the promise's exception and, if an exception handler
// has been registered, schedules its invocation as an immediate event.
func (p *Promise[T]) SetException(exception error) error {
	if exception == nil {
		return ErrNilException
	}
	if err := p.unsatisfied(); err != nil {
		return err
	}
	p.state.exception = exception
	if p.state.exceptionHandler != nil {
		scheduleException(p.state)
	}
	return nil
}

func (p *Promise[T]) unsatisfied() error {
	if p == nil || p.state == nil {
		return ErrNoState
	}
	if p.state.hasResult || p.state.exception != nil {
		return ErrPromiseSatisfied
	}
	return nil
}

// Close abandons the promise. If it was never resolved, [ErrBrokenPromise]
// is stored as its exception and delivered through the future like any other.
// Closing a resolved promise stores nothing new. In either case the promise
// gives up its state, so later operations on it report [ErrNoState]; Close
// itself is idempotent.
func (p *Promise[T]) Close() error {
	if p == nil || p.state == nil {
		return nil
	}
	if !p.state.hasResult && p.state.exception == nil {
		_ = p.SetException(ErrBrokenPromise)
	}
	p.state = nil
	return nil
}

// Future is the consuming end of a one-shot deferred result dispatched by a
// [Reactor].
//
// In every resolution order — handlers attached before the result, after the
// result, or after a pre-resolved promise handed out its future — the handler
// is invoked through the reactor's immediate-event queue, never synchronously.
// A side effect therefore becomes observable only after the next Run
// iteration.
type Future[T any] struct {
	state *sharedState[T]
}

// Valid reports whether OnCompletion may be called: the future shares state
// with a promise and no handlers have been attached yet.
func (f *Future[T]) Valid() bool {
	return f != nil && f.state != nil && f.state.resultHandler == nil
}

// OnCompletion registers the result and exception handlers. A nil
// exceptionHandler selects [Rethrow]. If the shared state already holds a
// result or exception, the matching handler is scheduled immediately.
// OnCompletion consumes the future: afterwards Valid reports false and
// further calls report [ErrNoState]. The handlers may outlive the Future
// value itself.
func (f *Future[T]) OnCompletion(resultHandler ResultHandler[T], exceptionHandler ExceptionHandler) error {
	if f == nil || f.state == nil {
		return ErrNoState
	}
	if resultHandler == nil {
		return ErrNilHandler
	}
	if exceptionHandler == nil {
		exceptionHandler = Rethrow
	}
	s := f.state
	s.resultHandler = resultHandler
	s.exceptionHandler = exceptionHandler
	if s.hasResult {
		scheduleResult(s)
	} else if s.exception != nil {
		scheduleException(s)
	}
	f.state = nil
	return nil
}

// Reactor returns the reactor this future dispatches on, or nil for a future
// with no shared state.
func (f *Future[T]) Reactor() *Reactor {
	if f == nil || f.state == nil {
		return nil
	}
	return f.state.reactor
}

func scheduleResult[T any](s *sharedState[T]) {
	AddImmediateEvent(s.reactor, func(*Reactor) error {
		s.resultRetrieved = true
		return s.resultHandler(s.result)
	})
}

func scheduleException[T any](s *sharedState[T]) {
	AddImmediateEvent(s.reactor, func(*Reactor) error {
		s.resultRetrieved = true
		return s.exceptionHandler(s.exception)
	})
}
