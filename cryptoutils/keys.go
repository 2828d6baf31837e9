package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidKey = errors.New("invalid secp256k1 key")

// LoadKey accepts either a hex-encoded secp256k1 key, with or without 0x
// prefix, or the path of a file holding one as written by SaveKey.
func LoadKey(raw string) (*ecdsa.PrivateKey, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if _, err := os.Stat(raw); err == nil {
		key, err := crypto.LoadECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidKey, raw, err)
		}
		return key, nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// SaveKey writes key hex-encoded to path with owner-only permissions.
func SaveKey(path string, key *ecdsa.PrivateKey) error {
	return crypto.SaveECDSA(path, key)
}
