// Package chain is the execution environment every registry component runs in.
//
// A Chain gives the components four things:
//
//   - a single global ordering of calls: Submit takes an exclusive lock and View a
//     shared one; components themselves never lock
//   - all-or-nothing commits: Atomic opens a savepoint over an undo journal and any
//     error (or panic) unwinds every write made since
//   - journaled persistent storage: Map and Value slots registered under unique names,
//     which together form the snapshot-able state
//   - a contract directory: deterministic addresses derived from the deployer and its
//     nonce, resolved on every use so nothing caches a stale collaborator
//
// Time comes from a Clock. ManualClock lets tests move through registration
// lifecycles without sleeping.
package chain
