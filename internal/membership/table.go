package membership

// slot is a single row of the Table: an entry, if one is currently present,
// plus the generation to hand out the next time this index is reused.
// nextGeneration survives vacancies so a reused index never collides with a
// past id held by a stale observer.
type slot struct {
	entry          *Entry
	nextGeneration uint32
}

func (s *slot) vacant() bool {
	return s.entry == nil
}

// Table is the indexed, slotted server table: component C of the
// membership engine. It owns slot/generation bookkeeping, master/backup
// counters, and predicate-based iteration. Mutating methods call back into
// appendDelta and notify so that a single mutation (add/crashed/remove)
// updates the table, buffers a wire delta, and fires tracker events as one
// atomic unit under the caller's lock.
type Table struct {
	slots       []slot
	masterCount int
	backupCount int

	appendDelta func(WireEntry)
	notify      func(*Entry, EventKind)
}

func newTable(appendDelta func(WireEntry), notify func(*Entry, EventKind)) *Table {
	t := &Table{
		appendDelta: appendDelta,
		notify:      notify,
	}
	// Slot 0 is permanently vacant and reserved.
	t.slots = make([]slot, 1)
	return t
}

func (t *Table) grow(minSize int) {
	for len(t.slots) < minSize {
		t.slots = append(t.slots, slot{})
	}
}

// GenerateID reserves a fresh id at the smallest vacant index >= 1,
// growing the table if necessary. It never returns index 0, and installs a
// placeholder entry so a subsequent GenerateID call skips the slot.
func (t *Table) GenerateID() ServerId {
	idx := -1
	for i := 1; i < len(t.slots); i++ {
		if t.slots[i].vacant() {
			idx = i
			break
		}
	}
	if idx == -1 {
		idx = len(t.slots)
		t.grow(idx + 1)
	}
	s := &t.slots[idx]
	gen := s.nextGeneration
	id := NewServerId(uint32(idx), gen)
	s.nextGeneration = gen + 1
	// Placeholder entry: occupies the slot so the next scan skips it, but
	// carries no services, so it counts toward nothing and is invisible to
	// iteration predicates until Add overwrites it.
	s.entry = &Entry{ID: id, Status: StatusUp}
	return id
}

// Add installs a new UP entry at id.Index, overwriting whatever placeholder
// or prior entry occupies the slot. The precondition is that the slot is
// either vacant or holds the placeholder GenerateID produced for this exact
// id; Add does not itself verify that precondition beyond bumping
// nextGeneration to stay ahead of id.Generation.
func (t *Table) Add(id ServerId, locator string, services ServiceSet, readSpeed uint32) {
	idx := int(id.Index)
	t.grow(idx + 1)
	s := &t.slots[idx]

	e := newEntry(id, locator, services, readSpeed)
	s.entry = e
	if s.nextGeneration <= id.Generation {
		s.nextGeneration = id.Generation + 1
	}

	if services.Has(ServiceMaster) {
		t.masterCount++
	}
	if services.Has(ServiceBackup) {
		t.backupCount++
	}

	t.appendDelta(e.toWire())
	t.notify(e, EventServerAdded)
}

// live looks up the mutable entry backing id, failing with ErrUnknownServer
// if the slot is vacant or holds a different generation.
func (t *Table) live(id ServerId) (*Entry, error) {
	if id.Index == 0 || int(id.Index) >= len(t.slots) {
		return nil, ErrUnknownServer
	}
	e := t.slots[id.Index].entry
	if e == nil || e.ID != id {
		return nil, ErrUnknownServer
	}
	return e, nil
}

// Crashed transitions id's entry from UP to CRASHED. It is idempotent if
// the entry is already CRASHED, and refuses to "crash" an entry that is
// already DOWN (ErrIllegalTransition) — though in practice Remove destroys
// DOWN entries immediately, so that slot would already read as vacant.
func (t *Table) Crashed(id ServerId) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	switch e.Status {
	case StatusCrashed:
		return nil
	case StatusDown:
		return ErrIllegalTransition
	}

	if e.Services.Has(ServiceMaster) {
		t.masterCount--
	}
	if e.Services.Has(ServiceBackup) {
		t.backupCount--
	}
	e.Status = StatusCrashed

	t.appendDelta(e.toWire())
	t.notify(e, EventServerCrashed)
	return nil
}

// Remove crashes id (unless already crashed), marks it DOWN, serializes and
// notifies that final transition, then destroys the entry: the slot
// reverts to vacant while keeping its bumped nextGeneration.
func (t *Table) Remove(id ServerId) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	if e.Status != StatusCrashed {
		if err := t.Crashed(id); err != nil {
			return err
		}
	}
	e.Status = StatusDown
	t.appendDelta(e.toWire())
	t.notify(e, EventServerRemoved)

	t.slots[id.Index].entry = nil
	return nil
}

// At returns a copy of the entry named by id, or ErrUnknownServer.
func (t *Table) At(id ServerId) (*Entry, error) {
	e, err := t.live(id)
	if err != nil {
		return nil, err
	}
	return e.clone(), nil
}

// AtIndex returns a copy of the entry at index, ErrOutOfRange if index is
// beyond the table size, or ErrUnknownServer if the slot is vacant.
func (t *Table) AtIndex(index uint32) (*Entry, error) {
	if int(index) >= len(t.slots) {
		return nil, ErrOutOfRange
	}
	e := t.slots[index].entry
	if e == nil {
		return nil, ErrUnknownServer
	}
	return e.clone(), nil
}

// Size returns the current number of slots, including the reserved slot 0.
func (t *Table) Size() int {
	return len(t.slots)
}

// nextIndex scans from start (inclusive), wrapping never — start >= size or
// no match both yield -1, matching nextMasterIndex/nextBackupIndex.
func (t *Table) nextIndex(start uint32, kind ServiceSet) int {
	if int(start) >= len(t.slots) {
		return -1
	}
	for i := int(start); i < len(t.slots); i++ {
		e := t.slots[i].entry
		if e != nil && e.Status == StatusUp && e.Services.Has(kind) {
			return i
		}
	}
	return -1
}

// NextMasterIndex returns the first index >= start holding an UP entry
// advertising MASTER, or -1 if none.
func (t *Table) NextMasterIndex(start uint32) int {
	return t.nextIndex(start, ServiceMaster)
}

// NextBackupIndex returns the first index >= start holding an UP entry
// advertising BACKUP, or -1 if none.
func (t *Table) NextBackupIndex(start uint32) int {
	return t.nextIndex(start, ServiceBackup)
}

// MasterCount returns the number of UP entries advertising MASTER.
func (t *Table) MasterCount() int {
	return t.masterCount
}

// BackupCount returns the number of UP entries advertising BACKUP.
func (t *Table) BackupCount() int {
	return t.backupCount
}

// SetMinOpenSegmentId raises id's MinOpenSegmentId to max(current, s).
func (t *Table) SetMinOpenSegmentId(id ServerId, s uint64) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	if s > e.MinOpenSegmentId {
		e.MinOpenSegmentId = s
	}
	return nil
}

// SetReplicationId unconditionally assigns id's ReplicationId. Unlike
// MinOpenSegmentId this is not monotone: a later call always wins.
func (t *Table) SetReplicationId(id ServerId, r uint64) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	e.ReplicationId = r
	return nil
}

// SetInfoLogId records the external log handle for id's info-log entry.
func (t *Table) SetInfoLogId(id ServerId, logID uint64) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	e.InfoLogId = logID
	return nil
}

// SetUpdateLogId records the external log handle for id's update-log entry.
func (t *Table) SetUpdateLogId(id ServerId, logID uint64) error {
	e, err := t.live(id)
	if err != nil {
		return err
	}
	e.UpdateLogId = logID
	return nil
}
