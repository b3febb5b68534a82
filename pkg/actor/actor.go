// Package actor implements the actor/scheduling kernel of spec.md §4.J: a
// single-threaded execution context per long-lived entity, addressed
// through a cheaply-cloned handle, with commands (fire-and-forget) and
// requests (typed one-shot reply) serialized through one unbounded
// mailbox per actor. Dropping a handle is the sole cancellation
// primitive; outstanding and future requests against a dropped actor fail
// with ErrAlreadyDeleted.
package actor

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrAlreadyDeleted is returned by Send/Ask once an actor's handle has been
// dropped, per spec.md §5's "outstanding synchronous requests to a dropped
// actor fail with AlreadyDeleted".
var ErrAlreadyDeleted = errors.New("actor: already deleted")

// Kernel bounds how many actor mailboxes may be actively executing a
// handler at once, modeling spec.md §5's "cooperative actors multiplexed
// over a thread pool" rather than dedicating one OS thread to every actor.
type Kernel struct {
	sem *semaphore.Weighted
}

// NewKernel returns a Kernel allowing up to maxConcurrent actors to run a
// mail handler simultaneously; actors beyond that bound block mid-mailbox,
// same as a goroutine pool with a fixed worker count.
func NewKernel(maxConcurrent int64) *Kernel {
	return &Kernel{sem: semaphore.NewWeighted(maxConcurrent)}
}

// envelope is one mailbox entry. run executes against the actor's private
// state; onCancel, present only for requests, fires instead of run if the
// actor is dropped before the request is dequeued.
type envelope[S any] struct {
	run      func(*S)
	onCancel func()
}

// mailbox is an unbounded FIFO queue: spec.md §4.J requires producers never
// block on a stalled actor, which a fixed-capacity channel cannot
// guarantee, so the queue itself is a plain slice behind a mutex with a
// single-slot wake channel standing in for a condition variable.
type mailbox[S any] struct {
	mu     sync.Mutex
	queue  []envelope[S]
	wake   chan struct{}
	closed bool
}

func newMailbox[S any]() *mailbox[S] {
	return &mailbox[S]{wake: make(chan struct{}, 1)}
}

func (m *mailbox[S]) push(e envelope[S]) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrAlreadyDeleted
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *mailbox[S]) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// drain pops every envelope currently queued, returning ok=false only once
// the mailbox is closed and empty.
func (m *mailbox[S]) drain() (batch []envelope[S], ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, !m.closed
	}
	batch, m.queue = m.queue, nil
	return batch, true
}

// close marks the mailbox closed and fires onCancel for every envelope
// still queued, the "pending requesters receive AlreadyDeleted" half of
// spec.md §4.J's drop semantics.
func (m *mailbox[S]) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	leftover := m.queue
	m.queue = nil
	m.mu.Unlock()
	for _, e := range leftover {
		if e.onCancel != nil {
			e.onCancel()
		}
	}
	m.signal()
}

// cancelEnvelopes fires onCancel for every envelope in batch that was
// drained from the queue but never run, so a dropped actor can never leave
// an Ask call blocked forever waiting on a reply that will never come.
func cancelEnvelopes[S any](batch []envelope[S]) {
	for _, e := range batch {
		if e.onCancel != nil {
			e.onCancel()
		}
	}
}

// Handle addresses a spawned actor. It is safe to copy and share across
// goroutines; every method serializes through the actor's single mailbox.
type Handle[S any] struct {
	mb     *mailbox[S]
	cancel context.CancelFunc
}

// Spawn starts an actor with private state built by newState, processed by
// mail under k's concurrency bound until ctx is cancelled or Drop is
// called. The actor's goroutine is the sole owner of its state; no other
// code may reach into it except through Send/Ask.
func Spawn[S any](k *Kernel, ctx context.Context, newState func() S) *Handle[S] {
	actorCtx, cancel := context.WithCancel(ctx)
	mb := newMailbox[S]()
	h := &Handle[S]{mb: mb, cancel: cancel}

	go func() {
		state := newState()
		defer mb.close()
		for {
			batch, ok := mb.drain()
			if !ok {
				return
			}
			if len(batch) == 0 {
				select {
				case <-actorCtx.Done():
					return
				case <-mb.wake:
				}
				continue
			}
			for i, e := range batch {
				if err := k.sem.Acquire(actorCtx, 1); err != nil {
					cancelEnvelopes(batch[i:])
					return
				}
				e.run(&state)
				k.sem.Release(1)
				select {
				case <-actorCtx.Done():
					cancelEnvelopes(batch[i+1:])
					return
				default:
				}
			}
		}
	}()

	return h
}

// Send enqueues a fire-and-forget command. It returns ErrAlreadyDeleted if
// the actor has already been dropped; a command enqueued just before a
// concurrent Drop may be silently discarded rather than run, same as a
// command delivered to a mailbox that closes before it is dequeued.
func (h *Handle[S]) Send(cmd func(*S)) error {
	return h.mb.push(envelope[S]{run: cmd})
}

// Drop is spec.md §4.J's sole cancellation primitive: it is unconditional,
// aborts the actor's loop at its next suspension point, and fails every
// request still queued (and every one sent afterward) with
// ErrAlreadyDeleted.
func (h *Handle[S]) Drop() {
	h.cancel()
}

// Ask sends a request and blocks for its typed reply. It returns
// ErrAlreadyDeleted if the actor is already gone, or becomes gone before
// req is dequeued.
func Ask[S any, R any](h *Handle[S], req func(*S) R) (R, error) {
	var zero R
	replyCh := make(chan R, 1)
	cancelCh := make(chan struct{})
	err := h.mb.push(envelope[S]{
		run:      func(s *S) { replyCh <- req(s) },
		onCancel: func() { close(cancelCh) },
	})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-replyCh:
		return r, nil
	case <-cancelCh:
		return zero, ErrAlreadyDeleted
	}
}

// ScheduleAfter enqueues cmd onto h's mailbox once d elapses, the actor
// analogue of spec.md §5's third suspension point ("awaiting a timer")
// implemented without parking the actor's own goroutine on a sleep.
func ScheduleAfter[S any](h *Handle[S], d time.Duration, cmd func(*S)) *time.Timer {
	return time.AfterFunc(d, func() {
		_ = h.Send(cmd)
	})
}
