package transport

import (
	"context"
	"sync"
	"time"

	"github.com/dreamware/torua/internal/membership"
)

// Call records one invocation of Fake.Push, for test assertions.
type Call struct {
	Subscriber membership.ServerId
	Version    uint64
	Type       membership.MessageType
}

// Fake is a membership.Pusher test double that simulates per-subscriber
// latency and ServerNotUp races under direct test control, without any real
// network I/O. It is the default Pusher for membership's own unit tests and
// for scenarios in the demo command that want deterministic timing.
type Fake struct {
	mu sync.Mutex

	latency map[membership.ServerId]time.Duration
	notUp   map[membership.ServerId]bool
	hang    map[membership.ServerId]bool
	calls   []Call
}

// NewFake returns a Fake with no simulated latency or failures: every push
// succeeds immediately.
func NewFake() *Fake {
	return &Fake{
		latency: make(map[membership.ServerId]time.Duration),
		notUp:   make(map[membership.ServerId]bool),
		hang:    make(map[membership.ServerId]bool),
	}
}

// SetLatency makes every subsequent push to id sleep for d before replying.
func (f *Fake) SetLatency(id membership.ServerId, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency[id] = d
}

// SetNotUp makes every subsequent push to id report PushNotUp instead of
// PushOK, simulating a race with a concurrent crashed/remove.
func (f *Fake) SetNotUp(id membership.ServerId, notUp bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notUp[id] = notUp
}

// SetHang makes every subsequent push to id block until ctx is cancelled,
// simulating an unresponsive subscriber for dispatcher timeout tests.
func (f *Fake) SetHang(id membership.ServerId, hang bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang[id] = hang
}

// Calls returns a copy of every push observed so far, in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Push implements membership.Pusher.
func (f *Fake) Push(ctx context.Context, id membership.ServerId, msg membership.WireMessage) (membership.PushResult, error) {
	f.mu.Lock()
	delay := f.latency[id]
	notUp := f.notUp[id]
	hang := f.hang[id]
	f.calls = append(f.calls, Call{Subscriber: id, Version: msg.VersionNumber, Type: msg.Type})
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return membership.PushOK, ctx.Err()
	}

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return membership.PushOK, ctx.Err()
		}
	}

	if notUp {
		return membership.PushNotUp, nil
	}
	return membership.PushOK, nil
}
