package storage

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/namespace-registry/interfaces"
)

// VaultConfig describes a KV v2 location in Vault. ClientCert, when set, is
// presented for TLS certificate authentication; Token is used otherwise.
type VaultConfig struct {
	Address    string
	Mount      string
	DataPath   string
	Token      string
	ClientCert *tls.Certificate
}

// VaultBackend stores content base64-encoded in the "content" field of a KV v2
// secret at <mount>/<dataPath>/<type>/<id>.
type VaultBackend struct {
	client      *api.Client
	mount       string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

func NewVaultBackend(cfg VaultConfig, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address
	if cfg.ClientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{*cfg.ClientCert}},
			},
			Timeout: 30 * time.Second,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mount := strings.Trim(cfg.Mount, "/")
	if mount == "" {
		return nil, fmt.Errorf("%w: missing Vault mount", interfaces.ErrInvalidLocationURI)
	}
	dataPath := strings.Trim(cfg.DataPath, "/")

	return &VaultBackend{
		client:      client,
		mount:       mount,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s", strings.TrimPrefix(strings.TrimPrefix(cfg.Address, "https://"), "http://"), path.Join(mount, dataPath)),
	}, nil
}

func (b *VaultBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	secretPath, err := b.secretPath(id, contentType)
	if err != nil {
		return nil, err
	}

	secret, err := b.client.KVv2(b.mount).Get(ctx, secretPath)
	if errors.Is(err, api.ErrSecretNotFound) {
		b.log.Debug("Content not found in Vault", "path", secretPath)
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		b.log.Error("Failed to read from Vault", "path", secretPath, "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	encoded, ok := secret.Data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault secret %s", secretPath)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault secret %s: %w", secretPath, err)
	}

	b.log.Debug("Fetched content from Vault", "path", secretPath, "size", len(data))
	return data, nil
}

func (b *VaultBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	secretPath, err := b.secretPath(id, contentType)
	if err != nil {
		return interfaces.ContentID{}, err
	}

	_, err = b.client.KVv2(b.mount).Put(ctx, secretPath, map[string]interface{}{
		"content": base64.StdEncoding.EncodeToString(data),
		"kind":    contentType.String(),
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", "path", secretPath, "err", err)
		return interfaces.ContentID{}, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Info("Stored content in Vault", "path", secretPath, "size", len(data))
	return id, nil
}

// Available requires Vault to be initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}
	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

func (b *VaultBackend) Name() string {
	return "vault"
}

func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

func (b *VaultBackend) secretPath(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	dir, err := typeDir(contentType)
	if err != nil {
		return "", err
	}
	return path.Join(b.dataPath, dir, id.String()), nil
}
