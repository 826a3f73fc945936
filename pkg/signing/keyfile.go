package signing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

const hmacKeySize = 32

// keyFile is the on-disk shape of a signing key. Version 1 carries the raw
// HMAC key. Version 2 carries a passphrase and salt; the HMAC key is
// derived from them with HKDF-SHA256 rather than stored directly. Both
// the passphrase and the salt are read from the key file itself, so the
// file alone is enough to rebuild the key.
type keyFile struct {
	Version    int    `json:"version"`
	KeyHex     string `json:"key_hex,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	SaltHex    string `json:"salt_hex,omitempty"`
}

// LoadKeyFile reads and, if necessary, derives the HMAC key material at
// path. A missing file is created with a freshly generated v1 key so a
// first run never starts with an empty or predictable key.
func LoadKeyFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		key, genErr := GenerateKey()
		if genErr != nil {
			return nil, genErr
		}
		if writeErr := writeKeyFile(path, key); writeErr != nil {
			return nil, writeErr
		}
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("signing: read key file: %w", err)
	}

	var kf keyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("signing: parse key file: %w", err)
	}

	switch kf.Version {
	case 0, 1:
		return decodeHex(kf.KeyHex, "key_hex")
	case 2:
		salt, err := decodeHex(kf.SaltHex, "salt_hex")
		if err != nil {
			return nil, err
		}
		if kf.Passphrase == "" {
			return nil, fmt.Errorf("signing: v2 key file missing passphrase")
		}
		return deriveKey(kf.Passphrase, salt)
	default:
		return nil, fmt.Errorf("signing: unsupported key file version %d", kf.Version)
	}
}

// GenerateKey returns a fresh random 32-byte HMAC key (v1 material).
func GenerateKey() ([]byte, error) {
	key := make([]byte, hmacKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("signing: generate key: %w", err)
	}
	return key, nil
}

// deriveKey runs HKDF-SHA256 over a passphrase and salt to produce a
// 32-byte HMAC key. Used only for v2 key files (Open Question: key
// derivation).
func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), salt, []byte("quietcore-gateway-signing-v2"))
	key := make([]byte, hmacKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("signing: derive key: %w", err)
	}
	return key, nil
}

func writeKeyFile(path string, key []byte) error {
	kf := keyFile{Version: 1, KeyHex: hex.EncodeToString(key)}
	raw, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("signing: marshal key file: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("signing: write key file: %w", err)
	}
	return nil
}

func decodeHex(s, field string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("signing: invalid %s: %w", field, err)
	}
	return b, nil
}
