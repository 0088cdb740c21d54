package membership

import "errors"

// ErrUnknownServer is returned when an operation names a ServerId that is
// not present in the table, or whose generation no longer matches the slot.
var ErrUnknownServer = errors.New("membership: unknown server")

// ErrOutOfRange is returned by index-based lookups beyond the table size.
var ErrOutOfRange = errors.New("membership: index out of range")

// ErrIllegalTransition is returned when crashed is invoked on an entry that
// is already DOWN. It is a debug-time check: callers should not be relying
// on it for control flow in steady-state operation.
var ErrIllegalTransition = errors.New("membership: illegal status transition")

// ErrStopped reports that the dispatcher has been halted. No function in
// this package returns it: Sync has no error result and does not observe
// Stop.
var ErrStopped = errors.New("membership: dispatcher stopped")
