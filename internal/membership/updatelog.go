package membership

// queuedDelta is a committed delta: a WireMessage tagged with the version
// it advanced the registry to.
type queuedDelta struct {
	message WireMessage
}

func (q queuedDelta) version() uint64 {
	return q.message.VersionNumber
}

// updateLog is the registry's D component: the monotonic version counter,
// the in-progress delta accumulating entries since the last commit, and
// the FIFO queue of committed deltas indexed by version.
//
// Invariant: queue versions are strictly ascending and contiguous with
// step 1; the queue tail's version equals version whenever the queue is
// non-empty.
type updateLog struct {
	version uint64

	inProgress []WireEntry
	queue      []queuedDelta

	table *Table

	// onPrunedEmpty is called when pruning empties the queue, so the
	// dispatcher can broadcast quiescence.
	onPrunedEmpty func()
}

func newUpdateLog(table *Table) *updateLog {
	return &updateLog{table: table}
}

// appendDelta buffers a freshly serialized entry into the in-progress
// delta. This is the hook Table.Add/Crashed/Remove call into.
func (u *updateLog) appendDelta(e WireEntry) {
	u.inProgress = append(u.inProgress, e)
}

// Version returns the current committed version.
func (u *updateLog) Version() uint64 {
	return u.version
}

// Commit flushes the in-progress delta into the queue as a new version. A
// commit over an empty in-progress delta is a no-op: version does not
// advance and nothing is enqueued. Returns true if a new version was
// committed.
func (u *updateLog) Commit() bool {
	if len(u.inProgress) == 0 {
		return false
	}
	u.version++
	msg := WireMessage{
		Entries:       u.inProgress,
		VersionNumber: u.version,
		Type:          MessageUpdate,
	}
	u.queue = append(u.queue, queuedDelta{message: msg})
	u.inProgress = nil
	return true
}

// PruneUpdates drops queued deltas whose version is <= threshold. If the
// queue becomes empty as a result, onPrunedEmpty is invoked.
func (u *updateLog) PruneUpdates(threshold uint64) {
	i := 0
	for i < len(u.queue) && u.queue[i].version() <= threshold {
		i++
	}
	if i == 0 {
		return
	}
	u.queue = u.queue[i:]
	if len(u.queue) == 0 && u.onPrunedEmpty != nil {
		u.onPrunedEmpty()
	}
}

// deltaForVersion returns the queued delta whose version equals target, if
// it is currently buffered. The caller must already know
// queue.front().version <= target <= queue.back().version.
func (u *updateLog) deltaForVersion(target uint64) (WireMessage, bool) {
	if len(u.queue) == 0 {
		return WireMessage{}, false
	}
	front := u.queue[0].version()
	back := u.queue[len(u.queue)-1].version()
	if target < front || target > back {
		return WireMessage{}, false
	}
	return u.queue[target-front].message, true
}

// BuildSnapshot produces a full-list wire message of every present entry
// whose services intersect the requested set, stamped with the current
// version.
func (u *updateLog) BuildSnapshot(services ServiceSet) WireMessage {
	entries := make([]WireEntry, 0, u.table.Size())
	for i := 0; i < u.table.Size(); i++ {
		e := u.table.slots[i].entry
		if e == nil {
			continue
		}
		if e.Services&services == 0 {
			continue
		}
		entries = append(entries, e.toWire())
	}
	return WireMessage{
		Entries:       entries,
		VersionNumber: u.version,
		Type:          MessageFullList,
	}
}
