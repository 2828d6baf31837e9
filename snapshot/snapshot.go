// Package snapshot serializes the persistent state of a chain into a
// content-addressed document and moves it in and out of storage backends.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

// FormatVersion is the document layout written by Encode.
const FormatVersion uint64 = 1

var (
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
	ErrContentMismatch   = errors.New("snapshot content does not match its id")
)

// Document is one encoded snapshot.
type Document struct {
	Version uint64
	Taken   uint64
	Slots   []chain.Slot
}

// Restorer installs decoded slots, e.g. a *deploy.Deployment.
type Restorer interface {
	Restore(slots []chain.Slot) error
}

// Take captures the state of c.
func Take(c *chain.Chain) (*Document, error) {
	slots, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Document{Version: FormatVersion, Taken: c.Now(), Slots: slots}, nil
}

func Encode(doc *Document) ([]byte, error) {
	return rlp.EncodeToBytes(doc)
}

func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := rlp.DecodeBytes(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, doc.Version)
	}
	return &doc, nil
}

// ID returns the content id of the encoded document.
func ID(doc *Document) (interfaces.ContentID, error) {
	data, err := Encode(doc)
	if err != nil {
		return interfaces.ContentID{}, err
	}
	return interfaces.ComputeID(data), nil
}

// Save encodes doc and stores it in backend.
func Save(ctx context.Context, backend interfaces.StorageBackend, doc *Document, log *slog.Logger) (interfaces.ContentID, error) {
	data, err := Encode(doc)
	if err != nil {
		return interfaces.ContentID{}, err
	}
	start := time.Now()
	id, err := backend.Store(ctx, data, interfaces.SnapshotType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("storing snapshot: %w", err)
	}
	log.Info("snapshot saved",
		slog.String("id", id.String()),
		slog.String("backend", backend.Name()),
		slog.Int("slots", len(doc.Slots)),
		slog.Int("bytes", len(data)),
		slog.Duration("duration", time.Since(start)))
	return id, nil
}

// Load fetches and decodes the snapshot id, verifying its content hash.
func Load(ctx context.Context, backend interfaces.StorageBackend, id interfaces.ContentID) (*Document, error) {
	data, err := backend.Fetch(ctx, id, interfaces.SnapshotType)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot %s: %w", id, err)
	}
	if got := interfaces.ComputeID(data); !got.Equal(id) {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrContentMismatch, id, got)
	}
	return Decode(data)
}

// Apply installs doc into target.
func Apply(target Restorer, doc *Document) error {
	return target.Restore(doc.Slots)
}
