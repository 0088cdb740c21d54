// Package extlog models the coordinator's persistent recovery log: an
// append-only store of opaque entry ids against a server record. The real
// log is an external collaborator referenced only by interface (spec.md
// §1); this package supplies the EntryID type and an in-memory fake used by
// tests and the demo command.
package extlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// EntryID is an opaque handle into the external log. Membership stores
// these against an Entry's InfoLogId/UpdateLogId fields but never
// interprets them.
type EntryID uint64

// Log is the append-only interface the coordinator uses for recovery
// bookkeeping: append an opaque record, get back a handle to it.
type Log interface {
	Append(ctx context.Context, kind string, payload []byte) (EntryID, error)
}

// record is what MemLog actually retains for a given append, kept around
// so tests can assert on what was logged.
type record struct {
	kind    string
	payload []byte
}

// MemLog is an in-memory Log used by tests and the demo command. It mints
// opaque-looking EntryIDs via github.com/google/uuid rather than a plain
// incrementing counter, so callers can't accidentally rely on handle
// ordering or density — matching the "opaque" contract in spec.md §6.
type MemLog struct {
	mu      sync.Mutex
	records map[EntryID]record
}

// NewMemLog creates an empty in-memory log.
func NewMemLog() *MemLog {
	return &MemLog{records: make(map[EntryID]record)}
}

// Append stores payload under a freshly minted EntryID and returns it.
func (m *MemLog) Append(_ context.Context, kind string, payload []byte) (EntryID, error) {
	id := EntryID(uuid.New().ID())

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if _, exists := m.records[id]; !exists {
			break
		}
		id = EntryID(uuid.New().ID())
	}
	m.records[id] = record{kind: kind, payload: append([]byte(nil), payload...)}
	return id, nil
}

// Lookup returns the kind and payload stored under id, for test assertions.
func (m *MemLog) Lookup(id EntryID) (kind string, payload []byte, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, exists := m.records[id]
	if !exists {
		return "", nil, false
	}
	return r.kind, append([]byte(nil), r.payload...), true
}

// Len reports the number of records currently stored.
func (m *MemLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
