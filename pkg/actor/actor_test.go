package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func TestSendMutatesStateInOrder(t *testing.T) {
	k := NewKernel(4)
	h := Spawn(k, context.Background(), func() counter { return counter{} })
	defer h.Drop()

	const n = 100
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		require.NoError(t, h.Send(func(c *counter) {
			c.n++
			if c.n == n {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("actor never processed all sends")
	}

	got, err := Ask(h, func(c *counter) int { return c.n })
	require.NoError(t, err)
	require.Equal(t, n, got)
}

func TestAskRoundTripsReply(t *testing.T) {
	k := NewKernel(4)
	h := Spawn(k, context.Background(), func() counter { return counter{n: 41} })
	defer h.Drop()

	got, err := Ask(h, func(c *counter) int {
		c.n++
		return c.n
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
}

func TestDropFailsFutureSendAndAsk(t *testing.T) {
	k := NewKernel(4)
	h := Spawn(k, context.Background(), func() counter { return counter{} })
	h.Drop()

	// Give the actor goroutine a moment to observe cancellation and close
	// its mailbox.
	require.Eventually(t, func() bool {
		return h.Send(func(*counter) {}) == ErrAlreadyDeleted
	}, time.Second, time.Millisecond)

	_, err := Ask(h, func(c *counter) int { return c.n })
	require.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestDropCancelsOutstandingAsk(t *testing.T) {
	k := NewKernel(1)
	blockCh := make(chan struct{})
	h := Spawn(k, context.Background(), func() counter { return counter{} })

	// Occupy the actor's single mailbox-processing slot so the next Ask
	// queues behind it instead of running immediately.
	require.NoError(t, h.Send(func(*counter) { <-blockCh }))

	type result struct {
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		_, err := Ask(h, func(c *counter) int { return c.n })
		resultCh <- result{err: err}
	}()

	// Let the Ask enqueue, then drop the actor before the blocking send
	// unblocks — the queued Ask must fail with ErrAlreadyDeleted rather
	// than hang forever.
	time.Sleep(20 * time.Millisecond)
	h.Drop()
	close(blockCh)

	select {
	case r := <-resultCh:
		require.ErrorIs(t, r.err, ErrAlreadyDeleted)
	case <-time.After(time.Second):
		t.Fatal("Ask against a dropped actor never returned")
	}
}

func TestScheduleAfterDeliversCommandOnce(t *testing.T) {
	k := NewKernel(4)
	h := Spawn(k, context.Background(), func() counter { return counter{} })
	defer h.Drop()

	timer := ScheduleAfter(h, 10*time.Millisecond, func(c *counter) { c.n = 7 })
	defer timer.Stop()

	require.Eventually(t, func() bool {
		got, err := Ask(h, func(c *counter) int { return c.n })
		return err == nil && got == 7
	}, time.Second, 5*time.Millisecond)
}

func TestKernelBoundsConcurrentHandlers(t *testing.T) {
	k := NewKernel(2)
	const actors = 5

	var handles []*Handle[counter]
	release := make(chan struct{})
	entered := make(chan struct{}, actors)

	for i := 0; i < actors; i++ {
		h := Spawn(k, context.Background(), func() counter { return counter{} })
		handles = append(handles, h)
		require.NoError(t, h.Send(func(*counter) {
			entered <- struct{}{}
			<-release
		}))
	}
	defer func() {
		for _, h := range handles {
			h.Drop()
		}
	}()

	enteredCount := 0
	timeout := time.After(200 * time.Millisecond)
loop:
	for {
		select {
		case <-entered:
			enteredCount++
		case <-timeout:
			break loop
		}
	}
	require.LessOrEqual(t, enteredCount, 2, "kernel should not run more handlers concurrently than its weight")
	close(release)
}
