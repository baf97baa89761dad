package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intFutures(t *testing.T, reactor *Reactor, n int) ([]*Promise[int], []*Future[int]) {
	t.Helper()
	promises := make([]*Promise[int], n)
	futures := make([]*Future[int], n)
	for i := range promises {
		promises[i] = NewPromise[int](reactor)
		f, err := promises[i].GetFuture()
		require.NoError(t, err)
		futures[i] = f
	}
	return promises, futures
}

func TestWhenAll(t *testing.T) {
	reactor, _ := newFakeReactor()
	promises, futures := intFutures(t, reactor, 3)

	errOdd := errors.New("odd input")

	all, err := WhenAll(futures...)
	require.NoError(t, err)
	for _, f := range futures {
		assert.False(t, f.Valid()) // inputs are consumed on entry
	}

	var results []Result[int]
	require.NoError(t, all.OnCompletion(func(rs []Result[int]) error {
		results = rs
		return nil
	}, nil))

	require.NoError(t, promises[0].SetValue(2))
	require.NoError(t, promises[1].SetException(errOdd))
	require.NoError(t, promises[2].SetValue(7))
	require.NoError(t, reactor.Run())

	require.Len(t, results, 3)
	assert.True(t, results[0].Ok())
	assert.Equal(t, 2, results[0].Value)
	assert.False(t, results[1].Ok())
	assert.ErrorIs(t, results[1].Err, errOdd)
	assert.True(t, results[2].Ok())
	assert.Equal(t, 7, results[2].Value)
}

// Input order is preserved no matter the order in which the inputs resolve,
// and the output resolves exactly once, with the last input.
func TestWhenAllOutOfOrder(t *testing.T) {
	reactor, _ := newFakeReactor()
	promises, futures := intFutures(t, reactor, 3)

	all, err := WhenAll(futures...)
	require.NoError(t, err)

	completions := 0
	var results []Result[int]
	require.NoError(t, all.OnCompletion(func(rs []Result[int]) error {
		completions++
		results = rs
		return nil
	}, nil))

	require.NoError(t, promises[2].SetValue(30))
	require.NoError(t, reactor.Run())
	assert.Zero(t, completions)

	require.NoError(t, promises[0].SetValue(10))
	require.NoError(t, promises[1].SetValue(20))
	require.NoError(t, reactor.Run())

	assert.Equal(t, 1, completions)
	require.Len(t, results, 3)
	assert.Equal(t, 10, results[0].Value)
	assert.Equal(t, 20, results[1].Value)
	assert.Equal(t, 30, results[2].Value)
}

// The fan-in future never fails, even when every input does.
func TestWhenAllAllFailed(t *testing.T) {
	reactor, _ := newFakeReactor()
	promises, futures := intFutures(t, reactor, 2)

	all, err := WhenAll(futures...)
	require.NoError(t, err)

	errA := errors.New("a failed")
	var results []Result[int]
	require.NoError(t, all.OnCompletion(func(rs []Result[int]) error {
		results = rs
		return nil
	}, func(err error) error {
		t.Errorf("WhenAll future must not fail, got: %v", err)
		return nil
	}))

	require.NoError(t, promises[0].SetException(errA))
	require.NoError(t, promises[1].Close())
	require.NoError(t, reactor.Run())

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, errA)
	assert.ErrorIs(t, results[1].Err, ErrBrokenPromise)
}

func TestWhenAllSingle(t *testing.T) {
	reactor, _ := newFakeReactor()
	promises, futures := intFutures(t, reactor, 1)

	all, err := WhenAll(futures...)
	require.NoError(t, err)

	var results []Result[int]
	require.NoError(t, all.OnCompletion(func(rs []Result[int]) error {
		results = rs
		return nil
	}, nil))

	require.NoError(t, promises[0].SetValue(99))
	require.NoError(t, reactor.Run())

	require.Len(t, results, 1)
	assert.Equal(t, 99, results[0].Value)
}

func TestWhenAllEmpty(t *testing.T) {
	_, err := WhenAll[int]()
	assert.ErrorIs(t, err, ErrNoFutures)
}

func TestWhenAllInvalidInput(t *testing.T) {
	reactor, _ := newFakeReactor()
	promise := NewPromise[int](reactor)
	future, err := promise.GetFuture()
	require.NoError(t, err)
	require.NoError(t, future.OnCompletion(func(int) error { return nil }, func(error) error { return nil }))

	_, err = WhenAll(future)
	assert.ErrorIs(t, err, ErrNoState)
}
