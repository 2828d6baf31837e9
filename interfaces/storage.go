package interfaces

import (
	"context"
	"crypto/tls"
	"errors"
)

var (
	// ErrContentNotFound means no backend holds a snapshot or manifest under the id.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable means a backend could not be reached at all. For
	// a multi-backend it is returned only when every backend was down.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI rejects a --storage location that does not parse
	// or names a scheme other than file, s3, ipfs or vault.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend keeps encoded registry snapshots and deployment manifests,
// addressed by the SHA-256 of their bytes.
type StorageBackend interface {
	// Fetch returns the bytes stored under id in the contentType namespace.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store writes data and returns ComputeID(data).
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available is a reachability check the multi-backend makes before each call.
	Available(ctx context.Context) bool

	Name() string
	LocationURI() string
}

// StorageBackendFactory turns --storage locations into backends.
type StorageBackendFactory interface {
	StorageBackendFor(locationURI StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend mirrors writes to every location and reads from
	// the first one that has the item.
	CreateMultiBackend(locationURIs []StorageBackendLocation) (StorageBackend, error)

	// WithTLSAuth sets the client certificate presented to the vault backend.
	WithTLSAuth(func() (tls.Certificate, error)) StorageBackendFactory
}
