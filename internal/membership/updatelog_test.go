package membership

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestUpdateLog() (*Table, *updateLog) {
	tbl, _, _ := newTestTable()
	log := newUpdateLog(tbl)
	tbl.appendDelta = log.appendDelta
	return tbl, log
}

func TestCommitNoOpOnEmptyDelta(t *testing.T) {
	_, log := newTestUpdateLog()
	require.False(t, log.Commit())
	require.Equal(t, uint64(0), log.Version())
}

func TestCommitBumpsVersionOncePerBatch(t *testing.T) {
	tbl, log := newTestUpdateLog()
	id := tbl.GenerateID()
	tbl.Add(id, "loc", ServiceMaster, 0)

	require.True(t, log.Commit())
	require.Equal(t, uint64(1), log.Version())
	require.False(t, log.Commit()) // nothing buffered since last commit
}

func TestQueueVersionsAscendingAndContiguous(t *testing.T) {
	tbl, log := newTestUpdateLog()
	a := tbl.GenerateID()
	tbl.Add(a, "loc-a", ServiceMaster, 0)
	log.Commit()

	b := tbl.GenerateID()
	tbl.Add(b, "loc-b", ServiceBackup, 10)
	log.Commit()

	require.NoError(t, tbl.Crashed(a))
	log.Commit()

	require.Len(t, log.queue, 3)
	for i, want := range []uint64{1, 2, 3} {
		require.Equal(t, want, log.queue[i].version())
	}
	require.Equal(t, log.Version(), log.queue[len(log.queue)-1].version())
}

func TestDeltaForVersionWithinQueue(t *testing.T) {
	tbl, log := newTestUpdateLog()
	a := tbl.GenerateID()
	tbl.Add(a, "loc-a", ServiceMaster, 0)
	log.Commit()
	b := tbl.GenerateID()
	tbl.Add(b, "loc-b", ServiceBackup, 10)
	log.Commit()

	msg, ok := log.deltaForVersion(2)
	require.True(t, ok)
	require.Equal(t, uint64(2), msg.VersionNumber)
	require.Equal(t, MessageUpdate, msg.Type)
}

func TestDeltaForVersionOutOfRange(t *testing.T) {
	tbl, log := newTestUpdateLog()
	id := tbl.GenerateID()
	tbl.Add(id, "loc", ServiceMaster, 0)
	log.Commit()

	_, ok := log.deltaForVersion(99)
	require.False(t, ok)
}

func TestPruneUpdatesEmptiesQueueAndSignals(t *testing.T) {
	tbl, log := newTestUpdateLog()
	id := tbl.GenerateID()
	tbl.Add(id, "loc", ServiceMaster, 0)
	log.Commit()

	signalled := false
	log.onPrunedEmpty = func() { signalled = true }
	log.PruneUpdates(1)

	require.Empty(t, log.queue)
	require.True(t, signalled)
}

func TestPruneUpdatesKeepsEntriesAboveThreshold(t *testing.T) {
	tbl, log := newTestUpdateLog()
	a := tbl.GenerateID()
	tbl.Add(a, "loc-a", ServiceMaster, 0)
	log.Commit()
	b := tbl.GenerateID()
	tbl.Add(b, "loc-b", ServiceBackup, 0)
	log.Commit()

	log.PruneUpdates(1)
	require.Len(t, log.queue, 1)
	require.Equal(t, uint64(2), log.queue[0].version())
}

func TestBuildSnapshotFiltersByServiceAndStampsVersion(t *testing.T) {
	tbl, log := newTestUpdateLog()
	m := tbl.GenerateID()
	tbl.Add(m, "loc-m", ServiceMaster, 0)
	log.Commit()
	sub := tbl.GenerateID()
	tbl.Add(sub, "loc-s", ServiceMembership, 0)
	log.Commit()

	snap := log.BuildSnapshot(ServiceMaster | ServiceBackup)
	require.Len(t, snap.Entries, 1)
	require.Equal(t, m.Uint64(), snap.Entries[0].ServerID)
	require.Equal(t, log.Version(), snap.VersionNumber)
	require.Equal(t, MessageFullList, snap.Type)
}
