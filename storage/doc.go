// Package storage keeps serialized registry snapshots and deployment manifests
// in content-addressed storage.
//
// Every item is identified by the SHA-256 hash of its bytes. Snapshots and
// manifests live in separate namespaces ("snapshots/" and "manifests/") of
// the same backend.
//
// # Backends
//
//   - FileBackend: local directory, used for development and tests
//   - S3Backend: S3 or any S3-compatible object store
//   - IPFSBackend: the mutable file system (MFS) of an IPFS node
//   - VaultBackend: a KV v2 mount in HashiCorp Vault, optionally with TLS client certificates
//   - MultiStorageBackend: writes to all of the above, reads from the first that has the item
//
// # Location URIs
//
//	file:///var/lib/namespace-registry
//	s3://bucket-name/prefix/?region=us-west-2&endpoint=http://localhost:9000
//	ipfs://127.0.0.1:5001/namespace-registry?timeout=30s
//	vault://vault.example.com:8200/secret/namespace-registry?token=...
//
// Locations are parsed with interfaces.NewStorageBackendLocation and turned
// into backends by the StorageBackendFactory:
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.CreateMultiBackend(locations)
//	id, err := backend.Store(ctx, encoded, interfaces.SnapshotType)
package storage
