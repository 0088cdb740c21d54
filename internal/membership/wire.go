package membership

// MessageType distinguishes a full cluster snapshot from an incremental
// delta in a WireMessage.
type MessageType int

const (
	// MessageFullList carries every present entry matching the requested
	// service set, stamped with the version it was built at.
	MessageFullList MessageType = iota
	// MessageUpdate carries only the entries that changed since the
	// previous committed version.
	MessageUpdate
)

func (t MessageType) String() string {
	if t == MessageFullList {
		return "FULL_LIST"
	}
	return "UPDATE"
}

// WireEntry is the serialized form of an Entry as sent to subscribers.
// ExpectedReadMBytesPerSec is always present, even as zero for non-backups,
// because receivers expect the field to exist regardless of role.
type WireEntry struct {
	Services                 ServiceSet
	ServerID                 uint64
	ServiceLocator           string
	Status                   Status
	ExpectedReadMBytesPerSec uint32
}

// WireMessage is the message pushed to a subscriber: either a full list or
// an incremental update, stamped with the version it represents.
type WireMessage struct {
	Entries       []WireEntry
	VersionNumber uint64
	Type          MessageType
}
