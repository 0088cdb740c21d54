// Package membership implements the cluster coordinator's authoritative
// server list: a slotted, generation-numbered table of cluster members, a
// buffered log of versioned membership deltas, and a background dispatcher
// that pushes those deltas (or a full snapshot) to every subscriber until
// the cluster catches up.
//
// # Overview
//
// A cluster coordinator uses Registry as the single source of truth for
// "who is in the cluster right now." Servers enlist via GenerateID + Add,
// get marked CRASHED and eventually Removed on failure, and every mutation
// is captured as a versioned delta. Any server that also plays the
// MEMBERSHIP service role is treated as a subscriber: the Dispatcher keeps
// pushing deltas to it in the background until its acknowledged version
// catches up to the registry's current version.
//
// # Architecture
//
//	                   ┌──────────────────────┐
//	                   │       Registry        │
//	                   │  ┌─────────────────┐  │
//	                   │  │  Table (C)      │  │
//	                   │  │  slots+entries  │  │
//	                   │  └─────────────────┘  │
//	                   │  ┌─────────────────┐  │
//	                   │  │  UpdateLog (D)  │  │
//	                   │  │  version+queue  │  │
//	                   │  └─────────────────┘  │
//	                   │  ┌─────────────────┐  │
//	                   │  │  Trackers (F)   │  │
//	                   │  └─────────────────┘  │
//	                   └───────────┬───────────┘
//	                               │ mutate + commit (mutex held)
//	                               ▼
//	                   ┌──────────────────────┐
//	                   │      Dispatcher (E)    │
//	                   │  bounded RPC slots,    │
//	                   │  scan cursor, timeouts │
//	                   └───────────┬───────────┘
//	                               │ Push(ctx, subscriber, msg)
//	                               ▼
//	                     Pusher (external transport)
//
// # Concurrency Model
//
// A single mutex protects the table, the in-progress delta, the update
// queue, the version counter, the scan cursor, and the tracker set. RPC
// I/O happens outside the lock: the dispatcher copies the wire message
// under the lock, releases it, then performs the push. Two condition
// variables gate on that mutex: hasUpdatesOrStop (wakes the dispatcher when
// there is new work or it should stop) and listUpToDate (broadcast when the
// cluster reaches quiescence).
//
// # Failure Handling
//
// crashed/remove never fail on RPC problems; RPC failures (ServerNotUp,
// timeout) are absorbed by the dispatcher and retried on the next scan.
// Mutators never block on the dispatcher or on RPC I/O.
//
// # See Also
//
//   - internal/transport: implementations (Fake, HTTPPusher) of the Pusher
//     interface that the dispatcher consumes (declared in pusher.go).
//   - internal/extlog: the append-only log interface referenced by Entry.
//   - internal/obs: Prometheus metrics wiring.
package membership
