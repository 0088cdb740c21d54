package membership

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingTracker struct {
	enqueued []EventKind
	fired    int
}

func (r *recordingTracker) EnqueueChange(_ *Entry, kind EventKind) {
	r.enqueued = append(r.enqueued, kind)
}

func (r *recordingTracker) FireCallback() {
	r.fired++
}

func TestTrackerSetNotifiesEnqueueThenFirePerMutation(t *testing.T) {
	var ts trackerSet
	tr := &recordingTracker{}
	ts.Register(tr)

	e := &Entry{ID: NewServerId(1, 0)}
	ts.notify(e, EventServerAdded)
	ts.notify(e, EventServerCrashed)

	require.Equal(t, []EventKind{EventServerAdded, EventServerCrashed}, tr.enqueued)
	require.Equal(t, 2, tr.fired)
}

func TestTrackerSetMultipleTrackersSeeSameOrder(t *testing.T) {
	var ts trackerSet
	a, b := &recordingTracker{}, &recordingTracker{}
	ts.Register(a)
	ts.Register(b)

	e := &Entry{ID: NewServerId(1, 0)}
	ts.notify(e, EventServerAdded)

	require.Equal(t, a.enqueued, b.enqueued)
}

func TestTrackerSetUnregister(t *testing.T) {
	var ts trackerSet
	tr := &recordingTracker{}
	ts.Register(tr)
	ts.Unregister(tr)

	ts.notify(&Entry{}, EventServerAdded)
	require.Empty(t, tr.enqueued)
	require.Equal(t, 0, tr.fired)
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "SERVER_ADDED", EventServerAdded.String())
	require.Equal(t, "SERVER_CRASHED", EventServerCrashed.String())
	require.Equal(t, "SERVER_REMOVED", EventServerRemoved.String())
}
