package audit_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/protocol"
)

func newTestStore(t *testing.T) *audit.SQLiteStore {
	t.Helper()
	s, err := audit.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newFileTestStore is used by tests that need to tamper with a row out of
// band, which requires a second connection to the same database.
func newFileTestStore(t *testing.T) (*audit.SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := audit.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// tamperChainHash rewrites one entry's chain_hash directly, bypassing
// Append, to simulate an attempt to edit the audit trail after the fact.
func tamperChainHash(t *testing.T, path, id string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open tamper connection: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`UPDATE audit_entries SET chain_hash = 'tampered' WHERE id = ?`, id); err != nil {
		t.Fatalf("tamper update: %v", err)
	}
}

func TestAppendChainsSequentialEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e1, err := s.Append(ctx, audit.AppendInput{
		RequestID: "req-1",
		Action:    "email.send",
		Direction: protocol.DirectionRequest,
		Status:    protocol.AuditStatusPending,
		Payload:   map[string]interface{}{"to": "a@example.com"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e1.PreviousHash != audit.GenesisHash {
		t.Fatalf("expected genesis previous hash, got %s", e1.PreviousHash)
	}

	e2, err := s.Append(ctx, audit.AppendInput{
		RequestID: "req-1",
		Action:    "email.send",
		Direction: protocol.DirectionResponse,
		Status:    protocol.AuditStatusSuccess,
		Payload:   map[string]interface{}{"status": "sent"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e2.PreviousHash != e1.ChainHash {
		t.Fatalf("expected entry 2 to chain onto entry 1, got %s vs %s", e2.PreviousHash, e1.ChainHash)
	}
	if e2.Sequence != e1.Sequence+1 {
		t.Fatalf("expected sequential sequence numbers")
	}
}

func TestVerifyChainDetectsNoTampering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, audit.AppendInput{
			RequestID: "req-1",
			Action:    "calendar.create_event",
			Direction: protocol.DirectionRequest,
			Status:    protocol.AuditStatusPending,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	result, err := s.VerifyChain(ctx)
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected chain to verify, first break at %s", result.FirstBreakID)
	}
}

func TestVerifyChainReportsFirstBreakID(t *testing.T) {
	ctx := context.Background()
	s, path := newFileTestStore(t)

	var entries []*protocol.AuditEntry
	for i := 0; i < 3; i++ {
		e, err := s.Append(ctx, audit.AppendInput{
			RequestID: "req-1",
			Action:    "calendar.create_event",
			Direction: protocol.DirectionRequest,
			Status:    protocol.AuditStatusPending,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		entries = append(entries, e)
	}

	tampered := entries[1].ID
	tamperChainHash(t, path, tampered)

	result, err := s.VerifyChain(ctx)
	if err != nil {
		t.Fatalf("VerifyChain: %v", err)
	}
	if result.Valid {
		t.Fatal("expected chain to report tampering")
	}
	if result.FirstBreakID != tampered {
		t.Fatalf("FirstBreakID = %s, want %s", result.FirstBreakID, tampered)
	}
}

func TestGetRecentReturnsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Sequence != 5 || recent[1].Sequence != 4 {
		t.Fatalf("expected newest-first order, got sequences %d, %d", recent[0].Sequence, recent[1].Sequence)
	}
}

func TestGetByRequestIDCorrelatesPendingAndResponse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-2", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionResponse, Status: protocol.AuditStatusSuccess}); err != nil {
		t.Fatal(err)
	}

	entries, err := s.GetByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("GetByRequestID: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for req-1, got %d", len(entries))
	}
	if entries[0].Direction != protocol.DirectionRequest || entries[1].Direction != protocol.DirectionResponse {
		t.Fatalf("expected request then response, got %v", entries)
	}
}

func TestCountMatchesQueryLength(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-2", Action: "calendar.create_event", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}

	count, err := s.Count(ctx, audit.QueryFilter{Action: "email.send"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("Count = %d, want 3", count)
	}
}

func TestGetTimelineBucketsByGranularity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 4; i++ {
		if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
			t.Fatal(err)
		}
	}

	since := time.Now().Add(-time.Hour)
	until := time.Now().Add(time.Hour)
	buckets, err := s.GetTimeline(ctx, since, until, time.Hour)
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets for a 2-hour window at 1-hour granularity, got %d", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total != 4 {
		t.Fatalf("expected 4 entries across buckets, got %d", total)
	}
}

func TestQueryFiltersByAction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-2", Action: "calendar.create_event", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Query(ctx, audit.QueryFilter{Action: "email.send"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].Action != "email.send" {
		t.Fatalf("expected 1 email.send entry, got %v", results)
	}
}

func TestAggregateByService(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-1", Action: "email.send", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-2", Action: "email.read", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(ctx, audit.AppendInput{RequestID: "req-3", Action: "calendar.create_event", Direction: protocol.DirectionRequest, Status: protocol.AuditStatusPending}); err != nil {
		t.Fatal(err)
	}

	counts, err := s.AggregateByService(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("AggregateByService: %v", err)
	}
	if counts["email"] != 2 {
		t.Fatalf("expected 2 email entries, got %d", counts["email"])
	}
	if counts["calendar"] != 1 {
		t.Fatalf("expected 1 calendar entry, got %d", counts["calendar"])
	}
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "does-not-exist"); err != audit.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
