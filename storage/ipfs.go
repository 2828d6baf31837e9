package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/namespace-registry/interfaces"
)

// IPFSBackend keeps content in the mutable file system of an IPFS node, at
// <root>/<type>/<id>. The node pins MFS content, so stored snapshots survive
// garbage collection.
type IPFSBackend struct {
	shell       *shell.Shell
	apiAddr     string
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend connects to the node API at apiAddr ("host:port").
func NewIPFSBackend(apiAddr, root string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	if apiAddr == "" {
		return nil, fmt.Errorf("%w: missing IPFS API address", interfaces.ErrInvalidLocationURI)
	}
	root = "/" + strings.Trim(root, "/")

	sh := shell.NewShell(apiAddr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	return &IPFSBackend{
		shell:       sh,
		apiAddr:     apiAddr,
		root:        root,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiAddr, root),
	}, nil
}

// Fetch returns ErrBackendUnavailable if the node is down and
// ErrContentNotFound if the file is absent.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	filePath, err := b.filePath(id, contentType)
	if err != nil {
		return nil, err
	}

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable", "api", b.apiAddr)
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.FilesRead(ctx, filePath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			b.log.Debug("Content not found in IPFS", "path", filePath)
			return nil, interfaces.ErrContentNotFound
		}
		b.log.Error("Failed to read from IPFS", "path", filePath, "err", err)
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	filePath, err := b.filePath(id, contentType)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	if !b.shell.IsUp() {
		return interfaces.ContentID{}, interfaces.ErrBackendUnavailable
	}

	err = b.shell.FilesWrite(ctx, filePath, bytes.NewReader(data),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to write data to IPFS: %w", err)
	}

	stat, err := b.shell.FilesStat(ctx, filePath)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to stat stored IPFS file: %w", err)
	}

	b.log.Debug("Stored content in IPFS", "path", filePath, "cid", stat.Hash, "size", len(data))
	return id, nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return "ipfs"
}

func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) filePath(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	dir, err := typeDir(contentType)
	if err != nil {
		return "", err
	}
	return path.Join(b.root, dir, id.String()), nil
}
