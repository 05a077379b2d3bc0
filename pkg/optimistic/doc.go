// Package optimistic implements the client-side mutation and
// concurrency-control layer shared by every Relaypoint entity binding.
//
// The layer has four parts:
//
//   - [Sequencer]: wraps every list fetch in a per-channel generation token so
//     a slow response for a superseded filter can never overwrite newer state.
//   - [Degroup] / [Regroup]: split nested fetch rows into a flat parent
//     collection plus a child lookup map, and reassemble them.
//   - [Engine]: the generic optimistic create/update/delete pipeline with
//     targeted per-record rollback, plus the coarser procedure path for
//     compound server-side transactions.
//   - [Dispatcher]: fire-and-forget secondary effects (notifications, audit
//     records) whose failure never reaches the primary operation's caller.
//
// The source of truth for all business rules is the remote service; the
// validation gate here only enforces invariants the client is itself
// responsible for, so the optimistic collection never displays a record the
// UI knows to be invalid.
//
// Collections are internally synchronized. Multiple mutations may be in
// flight against one collection at a time; correctness of rollback comes from
// capturing the single affected record before mutating, never from snapshots
// of the whole collection. Overlapping updates to one record are
// last-write-wins; that is a documented best-effort property, not a
// linearizability guarantee.
package optimistic
