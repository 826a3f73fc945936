// Package audit implements the hash-chained, append-only audit trail.
// Every entry's chain_hash commits to the previous entry's chain_hash, so
// any edit or deletion of a past entry is detectable by recomputing the
// chain from genesis and comparing.
//
// The chain algorithm is adapted from a prior in-memory audit store
// design (hash-chain over sequence/type/subject/action/payloadHash); this
// version persists to SQLite by default (or, optionally, Postgres for a
// shared/self-hosted deployment) and generalizes the chained fields to
// this module's ActionRequest/ActionResponse shape (action, direction,
// status, payload hash) instead of a generic subject/action/metadata
// triad.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/quietcore/gateway/pkg/protocol"
)

var (
	// ErrNotFound is returned when an entry ID has no match.
	ErrNotFound = errors.New("audit: entry not found")
)

// GenesisHash is the previous_hash value of the first entry in the chain.
const GenesisHash = "genesis"

// QueryFilter narrows a Query or Count call.
type QueryFilter struct {
	RequestID string
	Action    string
	Direction string
	Status    string
	Service   string
	Since     *time.Time
	Until     *time.Time
	Limit     int
}

// ChainVerification is the result of recomputing the audit chain from
// genesis. If Valid is false, FirstBreakID names the earliest entry whose
// stored chain_hash did not match recomputation.
type ChainVerification struct {
	Valid        bool
	FirstBreakID string
}

// TimelineBucket is one fixed-width window of an aggregateByService-style
// count, used to chart request volume over time.
type TimelineBucket struct {
	Start time.Time
	End   time.Time
	Count int
}

// AppendInput is everything the pipeline knows about one audit record at
// the moment it is written. PayloadHash is computed from Payload inside
// Append so every caller hashes the same way.
type AppendInput struct {
	RequestID  string
	Action     string
	Direction  string
	Status     string
	Payload    map[string]interface{}
	Signature  string
	Metadata   map[string]interface{}
	DurationMs *int64
}

// Store is the append-only audit trail contract. Implementations must
// make Append atomic with respect to concurrent callers: two concurrent
// Append calls must never observe the same previous chain head.
type Store interface {
	// Append writes a new entry chained onto the current head and
	// returns it with ID, Sequence, PayloadHash, PreviousHash and
	// ChainHash populated.
	Append(ctx context.Context, in AppendInput) (*protocol.AuditEntry, error)

	Get(ctx context.Context, id string) (*protocol.AuditEntry, error)
	Query(ctx context.Context, filter QueryFilter) ([]*protocol.AuditEntry, error)

	// GetRecent returns the n most recently appended entries, newest first.
	GetRecent(ctx context.Context, n int) ([]*protocol.AuditEntry, error)

	// GetByRequestID returns every entry sharing requestID (typically a
	// request/response pair) in sequence order.
	GetByRequestID(ctx context.Context, requestID string) ([]*protocol.AuditEntry, error)

	// Count returns the number of entries matching filter.
	Count(ctx context.Context, filter QueryFilter) (int, error)

	// VerifyChain recomputes every entry's chain_hash from genesis and
	// compares it against what is stored.
	VerifyChain(ctx context.Context) (*ChainVerification, error)

	ChainHead(ctx context.Context) (string, error)
	Sequence(ctx context.Context) (uint64, error)

	// AggregateByService buckets entry counts by service name (derived
	// from the action kind's prefix, e.g. "email" from "email.send")
	// within [since, until).
	AggregateByService(ctx context.Context, since, until time.Time) (map[string]int, error)

	// GetTimeline buckets entry counts into fixed-width windows of
	// granularity across [since, until), for charting request volume.
	GetTimeline(ctx context.Context, since, until time.Time, granularity time.Duration) ([]TimelineBucket, error)

	Close() error
}
