package membership

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/torua/internal/obs"
)

// Registry is the coordinator's authoritative, in-process server list. It
// owns the table (C), the update log (D), the dispatcher (E), and the
// tracker set (F) behind a single mutex, and is the only type package
// consumers outside membership need to construct.
type Registry struct {
	mu sync.Mutex

	table    *Table
	log      *updateLog
	trackers trackerSet
	dispatch *Dispatcher

	hasUpdatesOrStop *sync.Cond
	listUpToDate     *sync.Cond

	logger  *zap.Logger
	metrics *obs.Metrics
}

// NewRegistry constructs a Registry wired to pusher (the RPC transport for
// membership-update pushes) with the given options.
func NewRegistry(pusher Pusher, opts ...Option) *Registry {
	o := newOptions(opts)

	r := &Registry{
		logger:  o.logger,
		metrics: o.metrics,
	}
	r.hasUpdatesOrStop = sync.NewCond(&r.mu)
	r.listUpToDate = sync.NewCond(&r.mu)

	r.table = newTable(
		func(e WireEntry) { r.log.appendDelta(e) },
		func(e *Entry, kind EventKind) { r.trackers.notify(e, kind) },
	)
	r.log = newUpdateLog(r.table)
	r.log.onPrunedEmpty = func() { r.listUpToDate.Broadcast() }

	r.dispatch = newDispatcher(r, pusher, o.config, o.logger, o.metrics)
	return r
}

// Start launches the background dispatcher.
func (r *Registry) Start() {
	r.dispatch.Start()
}

// Stop halts the dispatcher, cancelling and restoring any outstanding RPCs.
func (r *Registry) Stop() {
	r.dispatch.Stop()
}

// Err returns the dispatcher's fatal error, if any, or nil while healthy.
func (r *Registry) Err() error {
	return r.dispatch.Err()
}

// RegisterTracker adds an observer that will be notified, in order, of
// every subsequent add/crashed/remove event.
func (r *Registry) RegisterTracker(t Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers.Register(t)
}

// UnregisterTracker removes a previously registered tracker.
func (r *Registry) UnregisterTracker(t Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers.Unregister(t)
}

// GenerateID reserves a fresh ServerId. See Table.GenerateID.
func (r *Registry) GenerateID() ServerId {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.GenerateID()
}

// Add enlists a new UP server and commits the resulting delta in one step,
// matching the contract that mutations take the lock, update the table,
// buffer a delta, notify trackers, and release — with the version bump
// happening atomically with the delta enqueue.
func (r *Registry) Add(id ServerId, locator string, services ServiceSet, readSpeed uint32) {
	r.mu.Lock()
	r.table.Add(id, locator, services, readSpeed)
	r.commitLocked()
	r.mu.Unlock()
	r.logger.Info("server added", zap.Stringer("id", id), zap.String("locator", locator))
}

// Crashed transitions id to CRASHED and commits the resulting delta.
func (r *Registry) Crashed(id ServerId) error {
	r.mu.Lock()
	err := r.table.Crashed(id)
	if err == nil {
		r.commitLocked()
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.logger.Info("server crashed", zap.Stringer("id", id))
	return nil
}

// Remove crashes (if needed) and removes id, committing the resulting
// delta(s) — crash and removal land in the same commit, so subscribers
// never observe an intermediate DOWN-less CRASHED state as a separate
// version boundary from the final removal... unless Crashed was already
// called and committed earlier, in which case only the DOWN transition is
// new here.
func (r *Registry) Remove(id ServerId) error {
	r.mu.Lock()
	err := r.table.Remove(id)
	if err == nil {
		r.commitLocked()
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.logger.Info("server removed", zap.Stringer("id", id))
	return nil
}

// At returns a copy of the entry named by id.
func (r *Registry) At(id ServerId) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.At(id)
}

// AtIndex returns a copy of the entry at index.
func (r *Registry) AtIndex(index uint32) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.AtIndex(index)
}

// NextMasterIndex returns the first index >= start holding an UP MASTER, or -1.
func (r *Registry) NextMasterIndex(start uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.NextMasterIndex(start)
}

// NextBackupIndex returns the first index >= start holding an UP BACKUP, or -1.
func (r *Registry) NextBackupIndex(start uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.NextBackupIndex(start)
}

// MasterCount returns the number of UP entries advertising MASTER.
func (r *Registry) MasterCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.MasterCount()
}

// BackupCount returns the number of UP entries advertising BACKUP.
func (r *Registry) BackupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.BackupCount()
}

// SetMinOpenSegmentId raises id's MinOpenSegmentId to max(current, s).
func (r *Registry) SetMinOpenSegmentId(id ServerId, s uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.SetMinOpenSegmentId(id, s)
}

// SetReplicationId unconditionally assigns id's ReplicationId.
func (r *Registry) SetReplicationId(id ServerId, rep uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.SetReplicationId(id, rep)
}

// SetInfoLogId records the external log handle for id's info-log entry.
func (r *Registry) SetInfoLogId(id ServerId, logID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.SetInfoLogId(id, logID)
}

// SetUpdateLogId records the external log handle for id's update-log entry.
func (r *Registry) SetUpdateLogId(id ServerId, logID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.SetUpdateLogId(id, logID)
}

// Version returns the registry's current committed version.
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Version()
}

// Snapshot builds a full-list wire message for the requested services.
func (r *Registry) Snapshot(services ServiceSet) WireMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.BuildSnapshot(services)
}

// commitLocked bumps the version if the in-progress delta is non-empty and
// wakes the dispatcher. Caller must hold r.mu.
func (r *Registry) commitLocked() {
	if r.log.Commit() {
		r.metrics.SetVersion(r.log.Version())
		r.metrics.SetQueueDepth(len(r.log.queue))
		r.dispatch.noUpdatesFoundHint = false
		r.hasUpdatesOrStop.Broadcast()
	}
}

// ackEntryLocked records a subscriber's new acked version and clears its
// in-flight flag. If newAck is behind the current version, the dispatcher's
// no-updates hint is cleared so the next scan reconsiders it. Caller must
// hold r.mu.
func (r *Registry) ackEntryLocked(id ServerId, newAck uint64) {
	e, err := r.table.live(id)
	if err != nil {
		return
	}
	e.AckedVersion = newAck
	e.InFlight = false
	if newAck < r.log.Version() {
		r.dispatch.noUpdatesFoundHint = false
	}
	r.hasUpdatesOrStop.Broadcast()
}

// Sync blocks until every UP MEMBERSHIP subscriber's acked version equals
// the current version and no RPC referencing it is in flight.
func (r *Registry) Sync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.quiescentLocked() {
		r.listUpToDate.Wait()
	}
}

func (r *Registry) quiescentLocked() bool {
	version := r.log.Version()
	for i := 1; i < r.table.Size(); i++ {
		e := r.table.slots[i].entry
		if e == nil || e.Status != StatusUp || !e.Services.Has(ServiceMembership) {
			continue
		}
		if e.AckedVersion != version || e.InFlight {
			return false
		}
	}
	return true
}
