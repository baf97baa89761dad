package event

// ChainedFuture sequences dependent asynchronous operations with a single
// terminal error handler. Build one with [Chain], extend it with [Then] (a
// package function, because a further stage introduces a new result type) and
// finish it with the Then method and [ChainedFuture.Catch]:
//
//	Then(Chain(f, stage1), stage2).Then(final).Catch(handler)
//
// Between stages a hidden promise forwards either the next future's
// resolution or any exception: one raised by the upstream future, returned
// synchronously by a stage, or carried by the future a stage returned. The
// Catch handler sees every error in the chain exactly once; a chain without
// one loses errors silently.
type ChainedFuture[T any] struct {
	future *Future[T]
}

// Chain starts a chain on f. The handler receives f's result and returns the
// next stage's future; returning a non-nil error instead routes it to the
// chain's Catch handler.
func Chain[T, U any](f *Future[T], handler func(T) (*Future[U], error)) *ChainedFuture[U] {
	return Then(&ChainedFuture[T]{future: f}, handler)
}

// Then appends a non-terminal stage to cf, consuming it.
func Then[T, U any](cf *ChainedFuture[T], handler func(T) (*Future[U], error)) *ChainedFuture[U] {
	upstream := cf.future
	cf.future = nil
	if !upstream.Valid() {
		return &ChainedFuture[U]{}
	}
	next := NewPromise[U](upstream.Reactor())
	_ = upstream.OnCompletion(
		func(result T) error {
			inner, err := handler(result)
			if err != nil {
				return next.SetException(err)
			}
			if !inner.Valid() {
				return next.SetException(ErrNoState)
			}
			return forward(inner, next)
		},
		func(err error) error {
			return next.SetException(err)
		},
	)
	fut, _ := next.GetFuture()
	return &ChainedFuture[U]{future: fut}
}

// forward propagates f's eventual resolution into p.
func forward[U any](f *Future[U], p *Promise[U]) error {
	return f.OnCompletion(
		func(result U) error { return p.SetValue(result) },
		func(err error) error { return p.SetException(err) },
	)
}

// Then appends the terminal stage, whose handler consumes the final result
// and returns no further future.
func (cf *ChainedFuture[T]) Then(handler func(T) error) *EndChainedFuture {
	upstream := cf.future
	cf.future = nil
	if !upstream.Valid() {
		return &EndChainedFuture{}
	}
	next := NewPromise[Void](upstream.Reactor())
	_ = upstream.OnCompletion(
		func(result T) error {
			if err := handler(result); err != nil {
				return next.SetException(err)
			}
			return next.SetValue(Void{})
		},
		func(err error) error {
			return next.SetException(err)
		},
	)
	fut, _ := next.GetFuture()
	return &EndChainedFuture{future: fut}
}

// Catch terminates the chain without a further stage, attaching only the
// error handler. Reports [ErrNoState] on a chain that was already extended
// or terminated.
func (cf *ChainedFuture[T]) Catch(handler ExceptionHandler) error {
	upstream := cf.future
	cf.future = nil
	if !upstream.Valid() {
		return ErrNoState
	}
	return upstream.OnCompletion(func(T) error { return nil }, handler)
}

// EndChainedFuture is a chain whose stages have all been attached; only the
// terminal error handler remains to be set.
type EndChainedFuture struct {
	future *Future[Void]
}

// Catch attaches the chain's terminal error handler. Reports [ErrNoState] on
// a chain that was already terminated.
func (ef *EndChainedFuture) Catch(handler ExceptionHandler) error {
	upstream := ef.future
	ef.future = nil
	if !upstream.Valid() {
		return ErrNoState
	}
	return upstream.OnCompletion(func(Void) error { return nil }, handler)
}
