package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// noopPusher is a trivial Pusher that always succeeds immediately. It lets
// internal tests that need direct access to unexported Registry fields
// exercise a Registry without importing internal/transport, which would
// otherwise create an import cycle (transport imports membership).
type noopPusher struct{}

func (noopPusher) Push(_ context.Context, _ ServerId, _ WireMessage) (PushResult, error) {
	return PushOK, nil
}

func newInternalTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(noopPusher{}, opts...)
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

// S3 — version buffering.
func TestScenarioVersionBuffering(t *testing.T) {
	r := newInternalTestRegistry(t)

	a := r.GenerateID()
	r.Add(a, "loc-a", ServiceMaster, 0)
	require.Equal(t, uint64(1), r.Version())

	b := r.GenerateID()
	r.Add(b, "loc-b", ServiceBackup, 0)
	require.Equal(t, uint64(2), r.Version())

	require.NoError(t, r.Crashed(a))
	require.Equal(t, uint64(3), r.Version())

	r.mu.Lock()
	msg, ok := r.log.deltaForVersion(2)
	r.mu.Unlock()
	require.True(t, ok)
	require.Equal(t, uint64(2), msg.VersionNumber)
}

func TestObserverOrderMirrorsMutationOrder(t *testing.T) {
	r := newInternalTestRegistry(t)

	tr := &recordingTracker{}
	r.RegisterTracker(tr)

	id := r.GenerateID()
	r.Add(id, "loc", ServiceBackup, 0)
	require.NoError(t, r.Remove(id))

	require.Equal(t, []EventKind{EventServerAdded, EventServerCrashed, EventServerRemoved}, tr.enqueued)
	require.Equal(t, 3, tr.fired)
}
