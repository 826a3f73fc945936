package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/quietcore/gateway/pkg/canonical"
	"github.com/quietcore/gateway/pkg/protocol"
)

// computeChainHash implements chainHash = sha256(prev.chainHash || id ||
// timestamp || action || direction || status || payloadHash); the first
// entry's prev is the empty string, represented on disk as GenesisHash
// but hashed as "" to match the spec's invariant literally.
func computeChainHash(e *protocol.AuditEntry) string {
	prev := e.PreviousHash
	if prev == GenesisHash {
		prev = ""
	}
	var b strings.Builder
	b.WriteString(prev)
	b.WriteString(e.ID)
	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteString(e.Action)
	b.WriteString(e.Direction)
	b.WriteString(e.Status)
	b.WriteString(e.PayloadHash)
	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:])
}

// serviceOf extracts the service name from an action kind like
// "email.send" -> "email". Kinds with no '.' map to themselves.
func serviceOf(action string) string {
	if i := strings.IndexByte(action, '.'); i >= 0 {
		return action[:i]
	}
	return action
}

// verifyEntries walks entries (already in sequence order) recomputing
// each chain_hash and reports the id of the first entry, if any, whose
// previous_hash or chain_hash no longer matches.
func verifyEntries(entries []*protocol.AuditEntry) (valid bool, firstBreakID string) {
	expectedPrev := GenesisHash
	for _, e := range entries {
		if e.PreviousHash != expectedPrev || computeChainHash(e) != e.ChainHash {
			return false, e.ID
		}
		expectedPrev = e.ChainHash
	}
	return true, ""
}

func defaultPayloadHash(payload map[string]interface{}) (string, error) {
	return canonical.CanonicalHash(payload)
}

func withinRange(ts time.Time, since, until *time.Time) bool {
	if since != nil && ts.Before(*since) {
		return false
	}
	if until != nil && !ts.Before(*until) {
		return false
	}
	return true
}
