//go:build unix

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPollerReadiness(t *testing.T) {
	srv, cli := msgSocketPair(t)
	poller := NewPoller()
	items := []PollItem{{FD: srv, Events: EventIn}}

	n, err := poller.Poll(items, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, items[0].REvents.readable())

	sendMessage(t, cli, "ping")

	n, err = poller.Poll(items, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, items[0].REvents.readable())
	assert.Equal(t, "ping", readMessage(t, srv))
}

func TestPollerReadySubset(t *testing.T) {
	srvA, cliA := msgSocketPair(t)
	srvB, _ := msgSocketPair(t)
	poller := NewPoller()
	items := []PollItem{
		{FD: srvA, Events: EventIn},
		{FD: srvB, Events: EventIn},
	}

	sendMessage(t, cliA, "only A")

	n, err := poller.Poll(items, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, items[0].REvents.readable())
	assert.False(t, items[1].REvents.readable())
}

func TestPollerTimeoutSleeps(t *testing.T) {
	poller := NewPoller()
	start := time.Now()
	n, err := poller.Poll(nil, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestPollerHangupReadable(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	srv := fds[0]
	t.Cleanup(func() { _ = unix.Close(srv) })
	require.NoError(t, unix.Close(fds[1]))

	poller := NewPoller()
	items := []PollItem{{FD: srv, Events: EventIn}}
	n, err := poller.Poll(items, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The hang-up reports as readable and reads as zero bytes.
	assert.True(t, items[0].REvents.readable())
	buf := make([]byte, 8)
	got, err := unix.Read(srv, buf)
	require.NoError(t, err)
	assert.Zero(t, got)
}
