package event

import "errors"

// ErrNoFutures is reported by WhenAll over an empty input set.
var ErrNoFutures = errors.New("event: WhenAll requires at least one future")

// Result is the per-input outcome of a [WhenAll]: either a value or the
// exception the input failed with.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok reports whether the input resolved with a value.
func (r Result[T]) Ok() bool { return r.Err == nil }

// WhenAll returns a future that resolves when the last of the input futures
// resolves. Its result holds one [Result] per input, in input order; inputs
// that failed contribute their exception instead of a value, and the
// returned future itself never carries an exception. All inputs must be
// valid futures on the same reactor, and all of them are consumed.
func WhenAll[T any](futures ...*Future[T]) (*Future[[]Result[T]], error) {
	if len(futures) == 0 {
		return nil, ErrNoFutures
	}
	promise := NewPromise[[]Result[T]](futures[0].Reactor())
	results := make([]Result[T], len(futures))
	remaining := len(futures)

	complete := func() error {
		remaining--
		if remaining == 0 {
			return promise.SetValue(results)
		}
		return nil
	}
	for i, f := range futures {
		err := f.OnCompletion(
			func(result T) error {
				results[i].Value = result
				return complete()
			},
			func(err error) error {
				results[i].Err = err
				return complete()
			},
		)
		if err != nil {
			return nil, err
		}
	}
	return promise.GetFuture()
}
