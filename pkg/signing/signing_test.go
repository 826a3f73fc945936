package signing

import (
	"testing"
	"time"
)

func testPayload() Payload {
	return Payload{
		ID:        "req-1",
		Timestamp: time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC),
		Action:    "email.send",
		Body:      map[string]interface{}{"to": "a@example.com"},
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner([]byte("test-key-material-32-bytes-long"))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	sig, err := s.Sign(testPayload())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 64 {
		t.Fatalf("expected 64-hex-char signature, got %d chars", len(sig))
	}

	ok, err := s.Verify(testPayload(), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	s, _ := NewSigner([]byte("test-key-material-32-bytes-long"))
	sig, _ := s.Sign(testPayload())

	tampered := testPayload()
	tampered.Body["to"] = "evil@example.com"

	ok, err := s.Verify(tampered, sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected tampered payload to fail verification")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	s1, _ := NewSigner([]byte("key-one-aaaaaaaaaaaaaaaaaaaaaaaa"))
	s2, _ := NewSigner([]byte("key-two-bbbbbbbbbbbbbbbbbbbbbbbb"))

	sig, _ := s1.Sign(testPayload())
	ok, err := s2.Verify(testPayload(), sig)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected signature from a different key to fail verification")
	}
}

func TestVerifyRejectsMalformedHex(t *testing.T) {
	s, _ := NewSigner([]byte("test-key-material-32-bytes-long"))
	ok, err := s.Verify(testPayload(), "not-hex-at-all!!")
	if err != nil {
		t.Fatalf("Verify should not error on malformed hex, got: %v", err)
	}
	if ok {
		t.Fatal("expected malformed signature to fail verification")
	}
}

func TestNewSignerRejectsEmptyKey(t *testing.T) {
	if _, err := NewSigner(nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestCanonicalPayloadDeterministic(t *testing.T) {
	c1, err := CanonicalPayload(testPayload())
	if err != nil {
		t.Fatalf("CanonicalPayload: %v", err)
	}
	c2, err := CanonicalPayload(testPayload())
	if err != nil {
		t.Fatalf("CanonicalPayload: %v", err)
	}
	if c1 != c2 {
		t.Fatalf("expected deterministic canonical payload, got %q vs %q", c1, c2)
	}
}

func TestPayloadHashDeterministic(t *testing.T) {
	p := map[string]interface{}{"b": 2, "a": 1}
	h1, err := PayloadHash(p)
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	h2, err := PayloadHash(p)
	if err != nil {
		t.Fatalf("PayloadHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected deterministic hash, got %s vs %s", h1, h2)
	}
}
