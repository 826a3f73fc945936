// Package pipeline implements the gateway's ordered, short-circuiting
// validation and dispatch state machine: schema, payload, replay,
// signature, allowlist, rate limit, anomaly, pending audit write,
// dispatch, final audit write. Every rejection at any stage is itself
// audited; nothing fails silently.
//
// Grounded on the allow -> validate -> delegate shape used for tool-call
// governance elsewhere in this codebase, generalized from three stages
// to ten and from a single policy gate to five independent gates
// (allowlist, rate limit, anomaly, replay, signature) that each own one
// concern.
package pipeline

import (
	"context"
	"time"

	"github.com/quietcore/gateway/pkg/allowlist"
	"github.com/quietcore/gateway/pkg/anomaly"
	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/canonical"
	"github.com/quietcore/gateway/pkg/protocol"
	"github.com/quietcore/gateway/pkg/ratelimit"
	"github.com/quietcore/gateway/pkg/registry"
	"github.com/quietcore/gateway/pkg/schema"
	"github.com/quietcore/gateway/pkg/signing"
)

// Config holds the pipeline's tunables that are not owned by one of its
// collaborator packages.
type Config struct {
	// ReplayWindow is how long an id is remembered for replay detection.
	ReplayWindow time.Duration
	// DispatchTimeout bounds stage 9's adapter call.
	DispatchTimeout time.Duration
}

// Pipeline wires together every validation stage and the dispatcher.
// A single Pipeline is safe for concurrent use by multiple goroutines,
// matching the transport's one-goroutine-per-request dispatch model.
type Pipeline struct {
	cfg Config

	schemas   *schema.Registry
	signer    *signing.Signer
	auditLog  audit.Store
	allowed   *allowlist.Allowlist
	limiter   *ratelimit.Limiter
	detector  *anomaly.Detector
	adapters  *registry.Registry
	replay    *replayGuard
}

// New builds a Pipeline from its collaborators. All arguments are
// required except limiter/detector, which may be nil to disable those
// stages (e.g. in tests exercising only the schema/signature path).
func New(
	cfg Config,
	schemas *schema.Registry,
	signer *signing.Signer,
	auditLog audit.Store,
	allowed *allowlist.Allowlist,
	limiter *ratelimit.Limiter,
	detector *anomaly.Detector,
	adapters *registry.Registry,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		schemas:  schemas,
		signer:   signer,
		auditLog: auditLog,
		allowed:  allowed,
		limiter:  limiter,
		detector: detector,
		adapters: adapters,
		replay:   newReplayGuard(cfg.ReplayWindow),
	}
}

// verdict captures why a stage aborted the pipeline. status is the
// ActionResponse.status Core sees; auditStatus is the AuditEntry.status
// recorded, which distinguishes a rejection from an executed error even
// though both surface as response status "error".
type verdict struct {
	status       string
	auditStatus  string
	code         protocol.ErrorCode
	message      string
	rejectReason string
}

// Process runs req through every stage in order, writing the pending and
// final audit entries, and returns the response Core receives. Process
// never returns a Go error for a request-level failure: every failure is
// represented as an ActionResponse with status != success, because every
// request -- accepted or rejected -- gets a response.
func (p *Pipeline) Process(ctx context.Context, req protocol.ActionRequest) *protocol.ActionResponse {
	start := time.Now()

	if req.Payload == nil {
		req.Payload = map[string]interface{}{}
	}

	// Stage 1: schema (envelope conformance -- is this a kind we know).
	if !p.schemas.Has(req.Action) {
		return p.reject(ctx, req, start, verdict{
			status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrSchemaInvalid,
			message: "unknown action kind", rejectReason: "unknown_action_kind",
		})
	}
	if req.ID == "" || req.Timestamp.IsZero() || req.Source == "" {
		return p.reject(ctx, req, start, verdict{
			status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrSchemaInvalid,
			message: "envelope missing required field", rejectReason: "envelope_invalid",
		})
	}

	// Stage 2: payload (strict per-kind schema).
	if err := p.schemas.Validate(req.Action, req.Payload); err != nil {
		return p.reject(ctx, req, start, verdict{
			status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrPayloadInvalid,
			message: err.Error(), rejectReason: "payload_invalid",
		})
	}

	// Stage 3: replay.
	if p.replay.Seen(req.ID, start) {
		return p.reject(ctx, req, start, verdict{
			status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrReplayDetected,
			message: "request id already accepted within the replay window", rejectReason: "replay_detected",
		})
	}

	// Stage 4: signature.
	ok, err := p.signer.Verify(signing.Payload{
		ID: req.ID, Timestamp: req.Timestamp, Action: req.Action, Body: req.Payload,
	}, req.Signature)
	if err != nil || !ok {
		return p.reject(ctx, req, start, verdict{
			status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrSignatureInvalid,
			message: "signature verification failed", rejectReason: "signature_invalid",
		})
	}

	// Stage 5: allowlist (skipped for local-only action kinds).
	domain := targetDomain(req.Action, req.Payload)
	if domain != "" {
		allowed, err := p.allowed.IsAllowed(ctx, req.Action, domain, req.Payload)
		if err != nil {
			return p.reject(ctx, req, start, verdict{
				status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrDomainNotAllowed,
				message: err.Error(), rejectReason: "allowlist_check_failed",
			})
		}
		if !allowed {
			return p.reject(ctx, req, start, verdict{
				status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrDomainNotAllowed,
				message: "domain is not on the allowlist", rejectReason: "domain_not_allowed",
			})
		}
	}

	// Stage 6: rate limit.
	if p.limiter != nil {
		res, err := p.limiter.Check(ctx, req.Action, req.Source)
		if err != nil {
			return p.reject(ctx, req, start, verdict{
				status: protocol.StatusError, auditStatus: protocol.AuditStatusRejected, code: protocol.ErrRateLimited,
				message: err.Error(), rejectReason: "rate_limit_check_failed",
			})
		}
		if !res.Allowed {
			return p.reject(ctx, req, start, verdict{
				status: protocol.StatusRateLimited, auditStatus: protocol.AuditStatusRateLimited, code: protocol.ErrRateLimited,
				message: "rate limit exceeded", rejectReason: "rate_limited",
			})
		}
	}

	// Stage 7: anomaly.
	if p.detector != nil {
		payloadBytes, _ := canonical.JCS(req.Payload)
		res := p.detector.Check(req.Source, req.Action, domain, len(payloadBytes))
		if res.Anomalous {
			return p.reject(ctx, req, start, verdict{
				status: protocol.StatusRequiresApproval, auditStatus: protocol.AuditStatusRequiresApproval, code: protocol.ErrAnomalyDetected,
				message: "request requires approval", rejectReason: joinReasons(res.Reasons),
			})
		}
	}

	// Stage 8: pending audit write.
	pendingEntry, err := p.auditLog.Append(ctx, audit.AppendInput{
		RequestID: req.ID,
		Action:    req.Action,
		Direction: protocol.DirectionRequest,
		Status:    protocol.AuditStatusPending,
		Payload:   req.Payload,
		Signature: req.Signature,
	})
	if err != nil {
		return &protocol.ActionResponse{
			RequestID: req.ID,
			Timestamp: time.Now().UTC(),
			Status:    protocol.StatusError,
			Error:     &protocol.ErrorBody{Code: protocol.ErrAuditWriteFailed, Message: err.Error()},
		}
	}

	// Stage 9: dispatch.
	dispatchCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.DispatchTimeout > 0 {
		dispatchCtx, cancel = context.WithTimeout(ctx, p.cfg.DispatchTimeout)
		defer cancel()
	}
	data, dispatchErr := p.adapters.Dispatch(dispatchCtx, req)

	durationMs := time.Since(start).Milliseconds()
	resp := &protocol.ActionResponse{
		RequestID: req.ID,
		Timestamp: time.Now().UTC(),
	}

	var auditStatus string
	var auditMetadata map[string]interface{}
	if dispatchErr != nil {
		code, message := errorCodeAndMessage(dispatchErr)
		resp.Status = protocol.StatusError
		resp.Error = &protocol.ErrorBody{Code: code, Message: message}
		auditStatus = protocol.AuditStatusError
		auditMetadata = map[string]interface{}{"rejectionReason": string(code)}
	} else {
		if domain != "" && p.detector != nil {
			p.detector.MarkDomainSeen(domain)
		}
		resp.Status = protocol.StatusSuccess
		resp.Data = data
		auditStatus = protocol.AuditStatusSuccess
	}

	// Stage 10: final audit write.
	finalEntry, auditErr := p.auditLog.Append(ctx, audit.AppendInput{
		RequestID:  req.ID,
		Action:     req.Action,
		Direction:  protocol.DirectionResponse,
		Status:     auditStatus,
		Payload:    req.Payload,
		Signature:  req.Signature,
		Metadata:   auditMetadata,
		DurationMs: &durationMs,
	})
	if auditErr != nil {
		resp.Status = protocol.StatusError
		resp.Error = &protocol.ErrorBody{Code: protocol.ErrAuditWriteFailed, Message: auditErr.Error()}
		resp.AuditRef = pendingEntry.ID
		return resp
	}

	resp.AuditRef = finalEntry.ID
	return resp
}

// reject writes the response-direction rejection audit entry and builds
// the corresponding ActionResponse. Called by every stage 1-7 abort.
func (p *Pipeline) reject(ctx context.Context, req protocol.ActionRequest, start time.Time, v verdict) *protocol.ActionResponse {
	durationMs := time.Since(start).Milliseconds()

	entry, err := p.auditLog.Append(ctx, audit.AppendInput{
		RequestID:  req.ID,
		Action:     req.Action,
		Direction:  protocol.DirectionResponse,
		Status:     v.auditStatus,
		Payload:    req.Payload,
		Signature:  req.Signature,
		Metadata:   map[string]interface{}{"rejectionReason": v.rejectReason},
		DurationMs: &durationMs,
	})

	resp := &protocol.ActionResponse{
		RequestID: req.ID,
		Timestamp: time.Now().UTC(),
		Status:    v.status,
		Error:     &protocol.ErrorBody{Code: v.code, Message: v.message},
	}
	if err == nil {
		resp.AuditRef = entry.ID
	}
	return resp
}

func errorCodeAndMessage(err error) (protocol.ErrorCode, string) {
	if pe, ok := err.(*protocol.PipelineError); ok {
		return pe.Code, pe.Message
	}
	return protocol.ErrAdapterError, err.Error()
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "anomaly_detected"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "," + r
	}
	return out
}
