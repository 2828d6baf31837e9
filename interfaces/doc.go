// Package interfaces defines the contracts between the components of the
// namespace registry, separating interface definitions from implementations.
//
// # Component Interfaces
//
//   - NamespaceRegistry: node -> {owner, resolver, ttl} with owner-gated writes
//   - Registrar: time-bounded registrations of labels under one base node
//   - RecordResolver: per-node resolution data gated by registry ownership
//   - ReverseRegistrar: principal -> canonical name
//   - AssetLedger: the fungible asset ledger the controller recovers funds from
//
// Every mutating operation takes the caller principal as its first argument.
// Authorization is always decided against that principal and live state.
//
// # Storage Interfaces
//
//   - StorageBackend: content-addressed storage for state snapshots
//   - StorageBackendFactory: creates storage backends from URI strings
//
// # Error Types
//
// Sentinel errors shared by all components, matched with errors.Is:
//
//   - ErrUnauthorized: caller fails an ownership or admin check
//   - ErrAlreadyInitialized: initializer already ran
//   - ErrAlreadyActiveOrInGrace: registration conflict
//   - ErrInsufficientBalance: transfer exceeds holding
//   - ErrNotFound: the operation requires a record that does not exist
//   - ErrUnsupportedOperation: the bound implementation does not expose the operation
package interfaces
