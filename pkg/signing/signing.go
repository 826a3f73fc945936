// Package signing implements the HMAC-SHA256 signing protocol Core uses
// to authenticate ActionRequests and the gateway uses to verify them.
//
// The canonical signing payload is the concatenation
// id || timestamp || action || canonicalJSON(payload), where the
// canonical JSON form (sorted keys, no insignificant whitespace) comes
// from pkg/canonical. Concatenating the envelope fields as plain strings
// rather than folding them into the canonicalized structure keeps the
// signing payload exactly reproducible by a second, independent
// implementation (Core's) without needing to agree on a shared struct
// shape for the envelope -- only on the canonicalization of the payload
// map.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/quietcore/gateway/pkg/canonical"
)

// Payload is the subset of an ActionRequest the signature is computed
// over.
type Payload struct {
	ID        string
	Timestamp time.Time
	Action    string
	Body      map[string]interface{}
}

// Signer signs and verifies Payloads with a single symmetric key.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer from raw key bytes. Callers get the bytes
// either directly (v1 key files) or via key derivation (v2 passphrase
// files, see keyfile.go).
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signing: key must not be empty")
	}
	return &Signer{key: key}, nil
}

// CanonicalPayload returns id || timestamp || action || canonicalJSON(payload).
func CanonicalPayload(p Payload) (string, error) {
	canon, err := canonical.JCSString(p.Body)
	if err != nil {
		return "", fmt.Errorf("signing: canonicalize payload: %w", err)
	}
	return p.ID + p.Timestamp.UTC().Format(time.RFC3339) + p.Action + canon, nil
}

// Sign returns the lowercase hex HMAC-SHA256 signature of p's canonical
// signing payload.
func (s *Signer) Sign(p Payload) (string, error) {
	mac, err := s.mac(p)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(mac), nil
}

// Verify reports whether sigHex is a valid signature for p, using a
// constant-time comparison so timing does not leak how many bytes of the
// signature matched.
func (s *Signer) Verify(p Payload, sigHex string) (bool, error) {
	want, err := s.mac(p)
	if err != nil {
		return false, err
	}
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, nil
	}
	return hmac.Equal(want, got), nil
}

func (s *Signer) mac(p Payload) ([]byte, error) {
	canon, err := CanonicalPayload(p)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(canon))
	return mac.Sum(nil), nil
}

// PayloadHash returns the SHA-256 hex digest of the request's canonical
// payload, used by the audit trail to bind an entry to the request's
// content without re-embedding the full body.
func PayloadHash(payload map[string]interface{}) (string, error) {
	return canonical.CanonicalHash(payload)
}
