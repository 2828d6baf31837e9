package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/namespace-registry/interfaces"
)

// typeDirs maps content types to their namespace inside a backend.
var typeDirs = map[interfaces.ContentType]string{
	interfaces.SnapshotType: "snapshots",
	interfaces.ManifestType: "manifests",
}

func typeDir(contentType interfaces.ContentType) (string, error) {
	dir, ok := typeDirs[contentType]
	if !ok {
		return "", fmt.Errorf("unknown content type %d", contentType)
	}
	return dir, nil
}

// FileBackend stores content under a local directory, one subdirectory per content type.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates the base directory and its content type subdirectories if needed.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	for _, dir := range typeDirs {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: "file://" + baseDir,
	}, nil
}

// Fetch returns ErrContentNotFound if no file exists for the id.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	path, err := b.path(id, contentType)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file", "path", path, "size", len(data))
	return data, nil
}

// Store writes through a temporary file so that readers never observe a partial item.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	path, err := b.path(id, contentType)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	if _, err := os.Stat(path); err == nil {
		b.log.Debug("Content already stored", "path", path)
		return id, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return interfaces.ContentID{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	b.log.Debug("Stored content in file", "path", path, "size", len(data))
	return id, nil
}

// Available reports whether the base directory is still present.
func (b *FileBackend) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	return err == nil && info.IsDir()
}

func (b *FileBackend) Name() string {
	return "file"
}

func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) path(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	dir, err := typeDir(contentType)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.baseDir, dir, id.String()), nil
}
