package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/namespace-registry/interfaces"
)

// MultiStorageBackend stores to every available backend and fetches from the
// first backend that returns the item.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns ErrBackendUnavailable if no backend is reachable. Otherwise
// the joined per-backend errors are returned, so errors.Is(err, ErrContentNotFound)
// holds when at least one reachable backend reported the item missing.
func (m *MultiStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", "backend", backend.Name(), "content_id", id.String())
			continue
		}

		data, err := backend.Fetch(ctx, id, contentType)
		if err == nil {
			m.log.Info("Fetched content",
				slog.String("backend", backend.Name()),
				slog.String("content_id", id.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend", "backend", backend.Name(), "content_id", id.String(), "err", err)
	}

	if len(errs) == 0 {
		return nil, interfaces.ErrBackendUnavailable
	}

	m.log.Error("All backends failed to fetch content", "content_id", id.String(), "failed_backends", len(errs))
	return nil, fmt.Errorf("all backends failed to fetch %s: %w", id, errors.Join(errs...))
}

// Store succeeds if at least one backend accepted the data.
func (m *MultiStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	var (
		result  interfaces.ContentID
		success bool
		errs    []error
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", "backend", backend.Name())
			continue
		}

		id, err := backend.Store(ctx, data, contentType)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend", "backend", backend.Name(), "err", err)
			continue
		}

		if !success {
			result = id
			success = true
		} else if result != id {
			m.log.Warn("Inconsistent content ids from backends",
				"backend", backend.Name(),
				"expected_id", result.String(),
				"actual_id", id.String())
		}
	}

	if !success {
		if len(errs) == 0 {
			return interfaces.ContentID{}, interfaces.ErrBackendUnavailable
		}
		return interfaces.ContentID{}, fmt.Errorf("all backends failed to store data: %w", errors.Join(errs...))
	}

	m.log.Info("Stored content", "content_id", result.String(), "failed_backends", len(errs))
	return result, nil
}

func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

func (m *MultiStorageBackend) LocationURI() string {
	locations := make([]string, 0, len(m.backends))
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
