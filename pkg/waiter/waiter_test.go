package waiter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

const (
	evA EventType = 1 << iota
	evB
)

func pending(c chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func TestWaiter(t *testing.T) {
	n := neko.Modern(t)

	n.It("ignores events outside the mask", func(t *testing.T) {
		var w Waiter

		c := make(chan struct{}, 1)
		w.RegisterChannel(evA, c)

		w.Notify(evB)
		require.False(t, pending(c))
	})

	n.It("coalesces notifications", func(t *testing.T) {
		var w Waiter

		c := make(chan struct{}, 1)
		w.RegisterChannel(evA, c)

		w.Notify(evA)
		w.Notify(evA | evB)

		require.True(t, pending(c))
		require.False(t, pending(c))
	})

	n.It("stops notifying after unregister", func(t *testing.T) {
		var w Waiter

		c := make(chan struct{}, 1)
		e := w.RegisterChannel(evA, c)

		w.Unregister(e)
		require.Equal(t, 0, w.Len())

		w.Notify(evA)
		require.False(t, pending(c))
	})

	n.Meow()
}
