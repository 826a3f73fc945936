package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quietcore/gateway/pkg/protocol"
)

// sqlStore is the shared implementation behind SQLiteStore and
// PostgresStore. Both backends use the same schema and query shapes; the
// only difference is the driver name and placeholder syntax, since
// Postgres wants $1, $2... and SQLite/the rest of the ecosystem accepts
// plain ?.
//
// Append takes an in-process mutex rather than relying on a database
// transaction to serialize writers, because this module has exactly one
// writer: the gateway process itself. The Postgres backend exists for a
// self-hosted/shared deployment reading audit history from multiple
// places, not for multiple gateways writing concurrently.
type sqlStore struct {
	mu        sync.Mutex
	db        *sql.DB
	chainHead string
	sequence  uint64
	dialect   dialect
}

type dialect struct {
	placeholder func(n int) string
}

var sqliteDialect = dialect{placeholder: func(n int) string { return "?" }}
var postgresDialect = dialect{placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}

func newSQLStore(db *sql.DB, d dialect) (*sqlStore, error) {
	s := &sqlStore{db: db, dialect: d, chainHead: GenesisHash}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	if err := s.loadHead(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS audit_entries (
	id TEXT PRIMARY KEY,
	sequence BIGINT NOT NULL,
	request_id TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	action TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	payload_hash TEXT NOT NULL,
	signature TEXT NOT NULL,
	previous_hash TEXT NOT NULL,
	chain_hash TEXT NOT NULL,
	metadata TEXT NOT NULL,
	duration_ms BIGINT
)`)
	if err != nil {
		return fmt.Errorf("audit: migrate failed: %w", err)
	}
	return nil
}

func (s *sqlStore) loadHead() error {
	row := s.db.QueryRow(`SELECT chain_hash, sequence FROM audit_entries ORDER BY sequence DESC LIMIT 1`)
	var head string
	var seq uint64
	switch err := row.Scan(&head, &seq); err {
	case nil:
		s.chainHead = head
		s.sequence = seq
		return nil
	case sql.ErrNoRows:
		return nil
	default:
		return fmt.Errorf("audit: load chain head failed: %w", err)
	}
}

func (s *sqlStore) Append(ctx context.Context, in AppendInput) (*protocol.AuditEntry, error) {
	payload := in.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payloadHash, err := defaultPayloadHash(payload)
	if err != nil {
		return nil, fmt.Errorf("audit: hash payload: %w", err)
	}

	metadataJSON, err := json.Marshal(in.Metadata)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &protocol.AuditEntry{
		ID:           uuid.New().String(),
		Sequence:     s.sequence + 1,
		RequestID:    in.RequestID,
		Timestamp:    time.Now().UTC(),
		Action:       in.Action,
		Direction:    in.Direction,
		Status:       in.Status,
		PayloadHash:  payloadHash,
		Signature:    in.Signature,
		PreviousHash: s.chainHead,
		Metadata:     in.Metadata,
		DurationMs:   in.DurationMs,
	}
	entry.ChainHash = computeChainHash(entry)

	q := fmt.Sprintf(
		`INSERT INTO audit_entries (id, sequence, request_id, timestamp, action, direction, status, payload_hash, signature, previous_hash, chain_hash, metadata, duration_ms) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3), s.dialect.placeholder(4),
		s.dialect.placeholder(5), s.dialect.placeholder(6), s.dialect.placeholder(7), s.dialect.placeholder(8),
		s.dialect.placeholder(9), s.dialect.placeholder(10), s.dialect.placeholder(11), s.dialect.placeholder(12),
		s.dialect.placeholder(13),
	)
	var durationArg interface{}
	if entry.DurationMs != nil {
		durationArg = *entry.DurationMs
	}
	_, err = s.db.ExecContext(ctx, q,
		entry.ID, entry.Sequence, entry.RequestID, entry.Timestamp.Format(time.RFC3339Nano), entry.Action, entry.Direction,
		entry.Status, entry.PayloadHash, entry.Signature, entry.PreviousHash, entry.ChainHash, string(metadataJSON), durationArg,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: insert entry: %w", err)
	}

	s.sequence = entry.Sequence
	s.chainHead = entry.ChainHash
	return entry, nil
}

const selectColumns = `id, sequence, request_id, timestamp, action, direction, status, payload_hash, signature, previous_hash, chain_hash, metadata, duration_ms`

func (s *sqlStore) Get(ctx context.Context, id string) (*protocol.AuditEntry, error) {
	q := fmt.Sprintf(`SELECT %s FROM audit_entries WHERE id = %s`, selectColumns, s.dialect.placeholder(1))
	row := s.db.QueryRowContext(ctx, q, id)
	e, err := scanRows(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

func (s *sqlStore) Query(ctx context.Context, filter QueryFilter) ([]*protocol.AuditEntry, error) {
	q := fmt.Sprintf(`SELECT %s FROM audit_entries ORDER BY sequence ASC`, selectColumns)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("audit: query failed: %w", err)
	}
	defer rows.Close()

	var results []*protocol.AuditEntry
	for rows.Next() {
		e, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		if !matchesFilter(e, filter) {
			continue
		}
		results = append(results, e)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, rows.Err()
}

func matchesFilter(e *protocol.AuditEntry, f QueryFilter) bool {
	if f.RequestID != "" && e.RequestID != f.RequestID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Direction != "" && e.Direction != f.Direction {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Service != "" && serviceOf(e.Action) != f.Service {
		return false
	}
	if !withinRange(e.Timestamp, f.Since, f.Until) {
		return false
	}
	return true
}

// GetRecent returns the n most recently appended entries, newest first.
func (s *sqlStore) GetRecent(ctx context.Context, n int) ([]*protocol.AuditEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT %s FROM audit_entries ORDER BY sequence DESC LIMIT %s`, selectColumns, s.dialect.placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("audit: get recent failed: %w", err)
	}
	defer rows.Close()

	var results []*protocol.AuditEntry
	for rows.Next() {
		e, err := scanRows(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// GetByRequestID returns every entry sharing requestID in sequence order,
// typically a pending request entry and its eventual response entry.
func (s *sqlStore) GetByRequestID(ctx context.Context, requestID string) ([]*protocol.AuditEntry, error) {
	return s.Query(ctx, QueryFilter{RequestID: requestID})
}

// Count returns the number of entries matching filter; filter.Limit is
// ignored since a count is not a page of results.
func (s *sqlStore) Count(ctx context.Context, filter QueryFilter) (int, error) {
	filter.Limit = 0
	entries, err := s.Query(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *sqlStore) VerifyChain(ctx context.Context) (*ChainVerification, error) {
	entries, err := s.Query(ctx, QueryFilter{})
	if err != nil {
		return nil, err
	}
	valid, firstBreakID := verifyEntries(entries)
	return &ChainVerification{Valid: valid, FirstBreakID: firstBreakID}, nil
}

func (s *sqlStore) ChainHead(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainHead, nil
}

func (s *sqlStore) Sequence(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence, nil
}

func (s *sqlStore) AggregateByService(ctx context.Context, since, until time.Time) (map[string]int, error) {
	entries, err := s.Query(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, e := range entries {
		out[serviceOf(e.Action)]++
	}
	return out, nil
}

// GetTimeline buckets entries within [since, until) into fixed-width
// windows of granularity, for charting request volume over time.
func (s *sqlStore) GetTimeline(ctx context.Context, since, until time.Time, granularity time.Duration) ([]TimelineBucket, error) {
	if granularity <= 0 {
		return nil, fmt.Errorf("audit: granularity must be positive")
	}
	entries, err := s.Query(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		return nil, err
	}

	var buckets []TimelineBucket
	for start := since; start.Before(until); start = start.Add(granularity) {
		end := start.Add(granularity)
		if end.After(until) {
			end = until
		}
		buckets = append(buckets, TimelineBucket{Start: start, End: end})
	}
	for _, e := range entries {
		idx := int(e.Timestamp.Sub(since) / granularity)
		if idx >= 0 && idx < len(buckets) {
			buckets[idx].Count++
		}
	}
	return buckets, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRows(row rowScanner) (*protocol.AuditEntry, error) {
	var e protocol.AuditEntry
	var ts, metadataJSON string
	var duration sql.NullInt64
	if err := row.Scan(&e.ID, &e.Sequence, &e.RequestID, &ts, &e.Action, &e.Direction, &e.Status,
		&e.PayloadHash, &e.Signature, &e.PreviousHash, &e.ChainHash, &metadataJSON, &duration); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("audit: parse timestamp: %w", err)
	}
	e.Timestamp = parsed
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
			return nil, fmt.Errorf("audit: parse metadata: %w", err)
		}
	}
	if duration.Valid {
		e.DurationMs = &duration.Int64
	}
	return &e, nil
}
