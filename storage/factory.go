package storage

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/namespace-registry/interfaces"
)

// StorageBackendFactory creates storage backends from parsed location URIs.
type StorageBackendFactory struct {
	log     *slog.Logger
	tlsAuth func() (tls.Certificate, error)
}

func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// WithTLSAuth returns a factory whose Vault backends present the certificate
// returned by getCert.
func (sf *StorageBackendFactory) WithTLSAuth(getCert func() (tls.Certificate, error)) interfaces.StorageBackendFactory {
	return &StorageBackendFactory{log: sf.log, tlsAuth: getCert}
}

// StorageBackendFor supports the file, s3, ipfs and vault schemes.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating storage backend", "scheme", location.Scheme, "host", location.Host)

	switch {
	case location.IsFile():
		return sf.createFileBackend(location)
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsIPFS():
		return sf.createIPFSBackend(location)
	case location.IsVault():
		return sf.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend skips locations that fail to produce a backend and
// errors only if none succeed.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend", "err", err, "scheme", location.Scheme, "host", location.Host)
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// file:///absolute/path or file://./relative/path
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI", interfaces.ErrInvalidLocationURI)
	}
	return NewFileBackend(path, sf.log)
}

// s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=us-west-2&endpoint=http://localhost:9000
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	cfg := S3Config{
		Bucket:   location.Host,
		Prefix:   location.Path,
		Region:   location.GetParam("region"),
		Endpoint: location.GetParam("endpoint"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if location.Auth != "" {
		key, secret, _ := strings.Cut(location.Auth, ":")
		cfg.AccessKey, cfg.SecretKey = key, secret
	}
	return NewS3Backend(cfg, sf.log)
}

// ipfs://host:port/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	host := location.Host
	if !strings.Contains(host, ":") {
		host += ":5001"
	}

	timeout := 30 * time.Second
	if raw := location.GetParam("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout %q", interfaces.ErrInvalidLocationURI, raw)
		}
		timeout = parsed
	}

	root := location.Path
	if strings.Trim(root, "/") == "" {
		root = "/namespace-registry"
	}
	return NewIPFSBackend(host, root, timeout, sf.log)
}

// vault://host:port/mount/data/path?token=...&insecure=true
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	mount, dataPath, _ := strings.Cut(strings.Trim(location.Path, "/"), "/")

	scheme := "https"
	if location.GetParamBool("insecure") {
		scheme = "http"
	}

	cfg := VaultConfig{
		Address:  fmt.Sprintf("%s://%s", scheme, location.Host),
		Mount:    mount,
		DataPath: dataPath,
		Token:    location.GetParam("token"),
	}
	if sf.tlsAuth != nil {
		cert, err := sf.tlsAuth()
		if err != nil {
			return nil, fmt.Errorf("could not load Vault client certificate: %w", err)
		}
		cfg.ClientCert = &cert
	}
	return NewVaultBackend(cfg, sf.log)
}
