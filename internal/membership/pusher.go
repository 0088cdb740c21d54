package membership

import "context"

// PushResult is the outcome of a single push RPC.
type PushResult int

const (
	// PushOK means the subscriber accepted the update.
	PushOK PushResult = iota
	// PushNotUp means the subscriber reported it is no longer UP — a race
	// with a concurrent crashed/remove. The dispatcher treats this as "no
	// progress" and restores the pre-send ack.
	PushNotUp
)

// Pusher is the dispatcher's view of the RPC transport: a cancellable,
// one-shot call that delivers msg to subscriberID. The real transport is
// an external collaborator referenced only by this interface — see
// spec.md §1; internal/transport supplies test/demo implementations.
type Pusher interface {
	// Push delivers msg to subscriberID. It must honor ctx cancellation:
	// once ctx is done, Push should return promptly with ctx.Err().
	Push(ctx context.Context, subscriberID ServerId, msg WireMessage) (PushResult, error)
}
