package webfetch

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"
)

// BackoffParams identifies one retry attempt for deterministic jitter
// computation: the same params always produce the same jitter, so a
// retry schedule can be computed once and replayed or inspected without
// depending on a random source.
type BackoffParams struct {
	PolicyID     string
	AdapterID    string
	EffectID     string
	AttemptIndex int
	EnvSnapHash  string
}

// BackoffPolicy is the exponential-backoff shape applied to every fetch.
type BackoffPolicy struct {
	PolicyID    string
	BaseMs      int64
	MaxMs       int64
	MaxJitterMs int64
	MaxAttempts int
}

// ComputeBackoff returns the delay before a given attempt: exponential
// base, capped at MaxMs, plus deterministic jitter.
func ComputeBackoff(params BackoffParams, policy BackoffPolicy) time.Duration {
	factor := int64(1)
	if params.AttemptIndex > 0 {
		if params.AttemptIndex > 30 {
			factor = 1 << 30
		} else {
			factor = 1 << params.AttemptIndex
		}
	}

	baseDelay := policy.BaseMs * factor
	if baseDelay > policy.MaxMs {
		baseDelay = policy.MaxMs
	}

	jitter := ComputeDeterministicJitter(params, policy)
	return time.Duration(baseDelay+jitter) * time.Millisecond
}

// ComputeDeterministicJitter derives jitter from a SHA-256 digest of the
// attempt's identifying fields rather than a random source, so a replayed
// fetch (same policy, same effect, same attempt index) backs off by the
// same amount every time.
func ComputeDeterministicJitter(params BackoffParams, policy BackoffPolicy) int64 {
	seed := fmt.Sprintf("%s:%s:%s:%d:%s",
		params.PolicyID, params.AdapterID, params.EffectID, params.AttemptIndex, params.EnvSnapHash)

	hash := sha256.Sum256([]byte(seed))
	jitterBasis := binary.BigEndian.Uint64(hash[:8])

	if policy.MaxJitterMs == 0 {
		return 0
	}
	return int64(jitterBasis % uint64(policy.MaxJitterMs))
}
