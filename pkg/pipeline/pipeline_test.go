package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/quietcore/gateway/pkg/allowlist"
	"github.com/quietcore/gateway/pkg/anomaly"
	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/protocol"
	"github.com/quietcore/gateway/pkg/ratelimit"
	"github.com/quietcore/gateway/pkg/registry"
	"github.com/quietcore/gateway/pkg/schema"
	"github.com/quietcore/gateway/pkg/signing"
)

const testKey = "01234567890123456789012345678901"

var reminderSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"dueAt": {"type": "string"}
	},
	"required": ["title", "dueAt"],
	"additionalProperties": false
}`

var webFetchSchema = `{
	"type": "object",
	"properties": {
		"url": {"type": "string"}
	},
	"required": ["url"],
	"additionalProperties": false
}`

type fakeAdapter struct {
	data interface{}
	err  error
}

func (f *fakeAdapter) Execute(ctx context.Context, req protocol.ActionRequest) (interface{}, error) {
	return f.data, f.err
}

func newTestPipeline(t *testing.T) (*Pipeline, audit.Store) {
	t.Helper()

	schemas := schema.NewRegistry()
	if err := schemas.Register("reminder.create", reminderSchema); err != nil {
		t.Fatalf("register reminder schema: %v", err)
	}
	if err := schemas.Register("web.fetch", webFetchSchema); err != nil {
		t.Fatalf("register web.fetch schema: %v", err)
	}

	signer, err := signing.NewSigner([]byte(testKey))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	auditStore, err := audit.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { auditStore.Close() })

	allow := allowlist.New(allowlist.NewMemoryStore())

	limiter := ratelimit.New(ratelimit.Config{
		ActionLimits: map[string]int{},
		GlobalLimit:  0,
		WindowMs:     0, // disabled by default; tests that need it replace p.limiter
	}, ratelimit.NewMemoryStore())

	detector := anomaly.New(anomaly.Config{})

	adapters := registry.New()

	p := New(Config{ReplayWindow: 5 * time.Minute, DispatchTimeout: 2 * time.Second},
		schemas, signer, auditStore, allow, limiter, detector, adapters)

	return p, auditStore
}

func sign(t *testing.T, action, id string, ts time.Time, payload map[string]interface{}) string {
	t.Helper()
	signer, err := signing.NewSigner([]byte(testKey))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	sig, err := signer.Sign(signing.Payload{ID: id, Timestamp: ts, Action: action, Body: payload})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return sig
}

func TestProcessSucceedsForLocalOnlyAction(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("reminder.create", &fakeAdapter{data: map[string]string{"reminderId": "r1"}})

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "call mom", "dueAt": ts.Format(time.RFC3339)}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: sign(t, "reminder.create", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.AuditRef == "" {
		t.Fatal("expected an audit ref")
	}
}

func TestProcessRejectsUnknownActionKind(t *testing.T) {
	p, _ := newTestPipeline(t)

	ts := time.Now().UTC()
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "not.a.real.kind", Source: "core",
		Payload: map[string]interface{}{},
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrSchemaInvalid {
		t.Fatalf("expected SCHEMA_INVALID, got %+v", resp)
	}
}

func TestProcessRejectsPayloadViolatingSchema(t *testing.T) {
	p, _ := newTestPipeline(t)

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "call mom"} // missing dueAt
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: sign(t, "reminder.create", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrPayloadInvalid {
		t.Fatalf("expected PAYLOAD_INVALID, got %+v", resp)
	}
}

func TestProcessRejectsReplayedID(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("reminder.create", &fakeAdapter{data: nil})

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "call mom", "dueAt": ts.Format(time.RFC3339)}
	req := protocol.ActionRequest{
		ID: "dup-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: sign(t, "reminder.create", "dup-1", ts, payload),
	}

	first := p.Process(context.Background(), req)
	if first.Status != protocol.StatusSuccess {
		t.Fatalf("expected first request to succeed, got %+v", first)
	}

	second := p.Process(context.Background(), req)
	if second.Status != protocol.StatusError || second.Error == nil || second.Error.Code != protocol.ErrReplayDetected {
		t.Fatalf("expected REPLAY_DETECTED, got %+v", second)
	}
}

func TestProcessRejectsTamperedSignature(t *testing.T) {
	p, _ := newTestPipeline(t)

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "call mom", "dueAt": ts.Format(time.RFC3339)}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: "deadbeef",
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrSignatureInvalid {
		t.Fatalf("expected SIGNATURE_INVALID, got %+v", resp)
	}
}

func TestProcessRejectsDomainNotOnAllowlist(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("web.fetch", &fakeAdapter{data: "ok"})

	ts := time.Now().UTC()
	payload := map[string]interface{}{"url": "https://blocked.example.com/x"}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "web.fetch", Source: "core",
		Payload: payload, Signature: sign(t, "web.fetch", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrDomainNotAllowed {
		t.Fatalf("expected DOMAIN_NOT_ALLOWED, got %+v", resp)
	}
}

func TestProcessAllowsDomainOnAllowlist(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("web.fetch", &fakeAdapter{data: "ok"})
	if _, err := p.allowed.AddService(context.Background(), protocol.AllowedService{
		ServiceName: "example", Domain: "allowed.example.com", AddedBy: protocol.AddedByUser,
	}); err != nil {
		t.Fatalf("AddService: %v", err)
	}

	ts := time.Now().UTC()
	payload := map[string]interface{}{"url": "https://allowed.example.com/x"}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "web.fetch", Source: "core",
		Payload: payload, Signature: sign(t, "web.fetch", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusSuccess {
		t.Fatalf("expected success, got %+v", resp)
	}
}

func TestProcessReturnsRateLimitedWhenLimiterRejects(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("reminder.create", &fakeAdapter{data: nil})
	p.limiter = ratelimit.New(ratelimit.Config{
		ActionLimits: map[string]int{"reminder.create": 1},
		GlobalLimit:  100,
		WindowMs:     60000,
	}, ratelimit.NewMemoryStore())

	ts := time.Now().UTC()
	mk := func(id string) protocol.ActionRequest {
		payload := map[string]interface{}{"title": "x", "dueAt": ts.Format(time.RFC3339)}
		return protocol.ActionRequest{
			ID: id, Timestamp: ts, Action: "reminder.create", Source: "core",
			Payload: payload, Signature: sign(t, "reminder.create", id, ts, payload),
		}
	}

	first := p.Process(context.Background(), mk("req-1"))
	if first.Status != protocol.StatusSuccess {
		t.Fatalf("expected first request to succeed, got %+v", first)
	}

	second := p.Process(context.Background(), mk("req-2"))
	if second.Status != protocol.StatusRateLimited || second.Error.Code != protocol.ErrRateLimited {
		t.Fatalf("expected RATE_LIMITED, got %+v", second)
	}
}

func TestProcessReturnsRequiresApprovalOnAnomalousBurst(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("reminder.create", &fakeAdapter{data: nil})
	p.detector = anomaly.New(anomaly.Config{BurstWindowMs: 60000, BurstThreshold: 1})

	ts := time.Now().UTC()
	mk := func(id string) protocol.ActionRequest {
		payload := map[string]interface{}{"title": "x", "dueAt": ts.Format(time.RFC3339)}
		return protocol.ActionRequest{
			ID: id, Timestamp: ts, Action: "reminder.create", Source: "core",
			Payload: payload, Signature: sign(t, "reminder.create", id, ts, payload),
		}
	}

	first := p.Process(context.Background(), mk("req-1"))
	if first.Status != protocol.StatusSuccess {
		t.Fatalf("expected first request to succeed, got %+v", first)
	}

	second := p.Process(context.Background(), mk("req-2"))
	if second.Status != protocol.StatusRequiresApproval || second.Error.Code != protocol.ErrAnomalyDetected {
		t.Fatalf("expected ANOMALY_DETECTED/requires_approval, got %+v", second)
	}
}

func TestProcessReturnsAdapterErrorAsStatusError(t *testing.T) {
	p, _ := newTestPipeline(t)
	p.adapters.Register("reminder.create", &fakeAdapter{err: errBoom})

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "x", "dueAt": ts.Format(time.RFC3339)}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: sign(t, "reminder.create", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrAdapterError {
		t.Fatalf("expected ADAPTER_ERROR, got %+v", resp)
	}
}

func TestProcessReturnsNoAdapterWhenUnbound(t *testing.T) {
	p, _ := newTestPipeline(t)

	ts := time.Now().UTC()
	payload := map[string]interface{}{"title": "x", "dueAt": ts.Format(time.RFC3339)}
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "reminder.create", Source: "core",
		Payload: payload, Signature: sign(t, "reminder.create", "req-1", ts, payload),
	}

	resp := p.Process(context.Background(), req)
	if resp.Status != protocol.StatusError || resp.Error == nil || resp.Error.Code != protocol.ErrNoAdapter {
		t.Fatalf("expected NO_ADAPTER, got %+v", resp)
	}
}

func TestRejectedRequestsAreAudited(t *testing.T) {
	p, auditStore := newTestPipeline(t)

	ts := time.Now().UTC()
	req := protocol.ActionRequest{
		ID: "req-1", Timestamp: ts, Action: "not.a.real.kind", Source: "core",
		Payload: map[string]interface{}{},
	}

	resp := p.Process(context.Background(), req)
	if resp.AuditRef == "" {
		t.Fatal("expected a rejection to still be audited")
	}

	entry, err := auditStore.Get(context.Background(), resp.AuditRef)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Status != protocol.AuditStatusRejected {
		t.Fatalf("expected audit status rejected, got %q", entry.Status)
	}
	if entry.Metadata["rejectionReason"] != "unknown_action_kind" {
		t.Fatalf("expected rejectionReason metadata, got %v", entry.Metadata)
	}
}

type boomError struct{}

func (boomError) Error() string { return "adapter exploded" }

var errBoom = boomError{}
