// Package cryptoutils loads the key material the binaries are configured
// with: secp256k1 signing keys for API callers and X.509 client certificates
// for storage backends that authenticate over mutual TLS.
package cryptoutils
