package membership

// Entry is the coordinator's per-server record: identity, locator, the
// service kinds it advertises, its lifecycle status, replication/segment
// bookkeeping, and the dispatcher's view of how far it has been updated.
//
// Entry has no lifecycle methods of its own; it is constructed and destroyed
// by Table (see table.go) and mutated by Table, plus the dispatcher's
// AckedVersion/InFlight bookkeeping.
type Entry struct {
	ID      ServerId
	Locator string
	Services ServiceSet
	Status  Status

	// ExpectedReadBandwidth is meaningful only when Services.Has(ServiceBackup).
	ExpectedReadBandwidth uint32

	MinOpenSegmentId uint64
	ReplicationId    uint64

	// AckedVersion is the highest update-log version this subscriber has
	// confirmed receipt of. 0 means "never updated."
	AckedVersion uint64
	// InFlight is true while the dispatcher owns an outstanding RPC for
	// this entry.
	InFlight bool

	// InfoLogId and UpdateLogId are opaque handles into the external
	// append-only log (see internal/extlog), referenced but not owned here.
	InfoLogId   extLogId
	UpdateLogId extLogId
}

// extLogId is a local alias kept intentionally narrow: membership only ever
// stores the handle, never interprets it. The concrete type lives in
// internal/extlog; Table.SetInfoLogId and Table.SetUpdateLogId take the
// handle as a plain uint64, so callers convert extlog.EntryID themselves.
type extLogId = uint64

// newEntry constructs a fresh UP entry for id, as performed by Table.add.
func newEntry(id ServerId, locator string, services ServiceSet, readSpeed uint32) *Entry {
	return &Entry{
		ID:                    id,
		Locator:               locator,
		Services:              services,
		Status:                StatusUp,
		ExpectedReadBandwidth: readSpeed,
	}
}

// clone returns a copy of e, used whenever the table hands an entry out to
// a caller so external mutation can never reach internal state.
func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// toWire serializes e into its wire form. expectedReadBandwidth is written
// even when the server is not a backup, since receivers expect the field.
func (e *Entry) toWire() WireEntry {
	return WireEntry{
		Services:                 e.Services,
		ServerID:                 e.ID.Uint64(),
		ServiceLocator:           e.Locator,
		Status:                   e.Status,
		ExpectedReadMBytesPerSec: e.ExpectedReadBandwidth,
	}
}
