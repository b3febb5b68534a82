package transport

import (
	"context"

	"rtps-go/pkg/actor"
	"rtps-go/pkg/rtps"
)

// actorState is the private state the transport actor owns: the single
// underlying Transport every Send serializes through.
type actorState struct {
	inner Transport
}

// ActorTransport wraps a Transport so every Send is dispatched through one
// actor mailbox, giving the socket exactly one serialized writer per
// spec.md §5's "the UDP socket(s) are owned by a transport actor; all
// sends serialize through it" — independent of whether the wrapped
// Transport's own Send is itself safe for concurrent use.
type ActorTransport struct {
	inner Transport
	h     *actor.Handle[actorState]
}

// NewActorTransport spawns the transport actor under k, owning inner until
// Close (which also drops the actor).
func NewActorTransport(k *actor.Kernel, ctx context.Context, inner Transport) *ActorTransport {
	h := actor.Spawn(k, ctx, func() actorState { return actorState{inner: inner} })
	return &ActorTransport{inner: inner, h: h}
}

func (t *ActorTransport) Send(loc rtps.Locator, data []byte) error {
	sendErr, err := actor.Ask(t.h, func(s *actorState) error { return s.inner.Send(loc, data) })
	if err != nil {
		return err
	}
	return sendErr
}

// Recv is not routed through the actor: spec.md §5's suspension point (4)
// is "awaiting a UDP read", a blocking wait with no state to serialize,
// distinct from the send path the transport actor owns.
func (t *ActorTransport) Recv(ctx context.Context) (rtps.Locator, []byte, error) {
	return t.inner.Recv(ctx)
}

func (t *ActorTransport) JoinMulticast(loc rtps.Locator) error {
	return t.inner.JoinMulticast(loc)
}

func (t *ActorTransport) LocalLocator() rtps.Locator {
	return t.inner.LocalLocator()
}

func (t *ActorTransport) Close() error {
	t.h.Drop()
	return t.inner.Close()
}
