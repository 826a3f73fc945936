package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quietcore/gateway/pkg/canonical"
)

func hashBytesHex(b []byte) string {
	return canonical.HashBytes(b)
}

// ErrEmptyExport is returned when an export window matches no entries.
var ErrEmptyExport = errors.New("audit: export window contains no entries")

// EvidencePack is a self-contained, checksummed export of a slice of the
// audit trail, suitable for handing to a user who wants to inspect what
// the gateway did on their behalf without running the gateway itself.
type EvidencePack struct {
	GeneratedAt time.Time `json:"generated_at"`
	StartSeq    uint64    `json:"start_sequence"`
	EndSeq      uint64    `json:"end_sequence"`
	EntryCount  int       `json:"entry_count"`
	ChainHead   string    `json:"chain_head"`
	Checksum    string    `json:"checksum"`
}

// Export builds a zip archive (entries.json + manifest.json) covering
// [since, until) and returns the archive bytes plus its SHA-256 checksum.
func Export(ctx context.Context, store Store, since, until time.Time) ([]byte, string, error) {
	entries, err := store.Query(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		return nil, "", fmt.Errorf("audit: export query failed: %w", err)
	}
	if len(entries) == 0 {
		return nil, "", ErrEmptyExport
	}

	entriesJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal entries: %w", err)
	}

	pack := EvidencePack{
		GeneratedAt: time.Now().UTC(),
		StartSeq:    entries[0].Sequence,
		EndSeq:      entries[len(entries)-1].Sequence,
		EntryCount:  len(entries),
		ChainHead:   entries[len(entries)-1].ChainHash,
	}
	manifestJSON, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	f, err := w.Create("entries.json")
	if err != nil {
		return nil, "", err
	}
	if _, err := f.Write(entriesJSON); err != nil {
		return nil, "", err
	}

	f, err = w.Create("manifest.json")
	if err != nil {
		return nil, "", err
	}
	if _, err := f.Write(manifestJSON); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	zipBytes := buf.Bytes()
	return zipBytes, hashBytesHex(zipBytes), nil
}
