package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"
)

var ErrCertificateExpired = errors.New("certificate expired")

// TLSCert represents a TLS Certificate in PEM format.
type TLSCert []byte

// NewTLSCert creates a new certificate object from PEM-encoded data with validation.
func NewTLSCert(data []byte) (TLSCert, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return TLSCert{}, errors.New("invalid certificate: not in PEM format or not a certificate")
	}

	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return TLSCert{}, fmt.Errorf("invalid certificate structure: %w", err)
	}

	return TLSCert(data), nil
}

// GetX509Cert returns the parsed X.509 certificate.
func (cert TLSCert) GetX509Cert() (*x509.Certificate, error) {
	block, _ := pem.Decode(cert)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
}

// IsExpired reports whether the certificate is outside its validity window at now.
func (cert TLSCert) IsExpired(now time.Time) (bool, error) {
	x509Cert, err := cert.GetX509Cert()
	if err != nil {
		return false, err
	}
	return now.After(x509Cert.NotAfter) || now.Before(x509Cert.NotBefore), nil
}

// ClientCertificate returns a loader that reads the PEM pair from disk on
// every call, so rotated files are picked up without a restart.
func ClientCertificate(certFile, keyFile string) func() (tls.Certificate, error) {
	return func() (tls.Certificate, error) {
		certPEM, err := os.ReadFile(certFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("reading client certificate: %w", err)
		}
		keyPEM, err := os.ReadFile(keyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("reading client key: %w", err)
		}

		cert, err := NewTLSCert(certPEM)
		if err != nil {
			return tls.Certificate{}, err
		}
		expired, err := cert.IsExpired(time.Now())
		if err != nil {
			return tls.Certificate{}, err
		}
		if expired {
			return tls.Certificate{}, fmt.Errorf("%w: %s", ErrCertificateExpired, certFile)
		}

		return tls.X509KeyPair(certPEM, keyPEM)
	}
}

// RandomCert generates a self-signed certificate for cn valid for the given
// duration and returns the certificate and PKCS#8 key as PEM.
func RandomCert(cn string, validFor time.Duration) (certPEM, keyPEM []byte, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, err
	}

	notBefore := time.Now().Add(-time.Minute)
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(validFor),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, privateKey.Public(), privateKey)
	if err != nil {
		return nil, nil, err
	}

	privkeyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privkeyBytes})
	return certPEM, keyPEM, nil
}
