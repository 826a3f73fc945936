// Package webfetch is the reference adapter for the web.fetch action
// kind; web.screenshot and web.download_file return an error. It is a
// demonstration client, not a production browser-automation or
// download-manager integration -- those remain external collaborators.
package webfetch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var defaultBackoffPolicy = BackoffPolicy{
	PolicyID:    "webfetch-default",
	BaseMs:      100,
	MaxMs:       2000,
	MaxJitterMs: 50,
	MaxAttempts: 4,
}

// EnhancedClient wraps http.Client with the resilience patterns this
// gateway applies to every outbound fetch: deterministic backoff with
// jitter, a per-target circuit breaker, a per-host token-bucket
// throttle, and W3C trace-context injection.
type EnhancedClient struct {
	client  *http.Client
	policy  BackoffPolicy
	breaker *breakerRegistry
	hosts   *hostLimiters
}

// NewEnhancedClient builds a client with the default retry policy.
func NewEnhancedClient() *EnhancedClient {
	return &EnhancedClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		policy:  defaultBackoffPolicy,
		breaker: newBreakerRegistry(5, 10*time.Second),
		hosts:   newHostLimiters(rate.Limit(5), 5),
	}
}

// Do executes req with resiliency patterns, honoring req.Context()'s
// deadline across retries and the per-host rate limit wait.
func (c *EnhancedClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("traceparent", fmt.Sprintf("00-%s-0000000000000001-01", newTraceID()))

	host := req.URL.Host
	cb := c.breaker.get(host)
	if !cb.Allow() {
		return nil, fmt.Errorf("webfetch: circuit breaker open for %s", host)
	}

	plan := GenerateRetryPlan(BackoffParams{
		PolicyID:  c.policy.PolicyID,
		AdapterID: "webfetch",
		EffectID:  host + req.URL.Path,
	}, c.policy, time.Now())

	var resp *http.Response
	var err error

	for i, attempt := range plan.Schedule {
		if i > 0 {
			if werr := c.wait(req.Context(), time.Duration(attempt.DelayMs)*time.Millisecond); werr != nil {
				cb.Failure()
				return nil, werr
			}
		}

		if lerr := c.hosts.get(host).Wait(req.Context()); lerr != nil {
			cb.Failure()
			return nil, lerr
		}

		resp, err = c.client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			cb.Success()
			return resp, nil
		}
	}

	cb.Failure()
	return resp, err
}

func (c *EnhancedClient) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTraceID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// hostLimiters lazily creates one token-bucket limiter per host, so a
// slow or rate-limiting remote host cannot be hammered by retries
// targeting other hosts' budgets.
type hostLimiters struct {
	mu     sync.Mutex
	limit  rate.Limit
	burst  int
	byHost map[string]*rate.Limiter
}

func newHostLimiters(limit rate.Limit, burst int) *hostLimiters {
	return &hostLimiters{limit: limit, burst: burst, byHost: make(map[string]*rate.Limiter)}
}

func (h *hostLimiters) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.byHost[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.byHost[host] = l
	}
	return l
}

// breakerRegistry lazily creates one CircuitBreaker per host.
type breakerRegistry struct {
	mu        sync.Mutex
	threshold int
	timeout   time.Duration
	byHost    map[string]*CircuitBreaker
}

func newBreakerRegistry(threshold int, timeout time.Duration) *breakerRegistry {
	return &breakerRegistry{threshold: threshold, timeout: timeout, byHost: make(map[string]*CircuitBreaker)}
}

func (r *breakerRegistry) get(host string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.byHost[host]
	if !ok {
		cb = NewCircuitBreaker(host, r.threshold, r.timeout)
		r.byHost[host] = cb
	}
	return cb
}

// CircuitBreaker implements a simple closed/open/half-open state machine
// for one target host.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	failureCount int
	threshold    int
	lastFailure  time.Time
	resetTimeout time.Duration
	state        string // "CLOSED", "OPEN", "HALF_OPEN"
}

func NewCircuitBreaker(name string, threshold int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		threshold:    threshold,
		resetTimeout: timeout,
		state:        "CLOSED",
	}
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == "OPEN" {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.state = "HALF_OPEN"
			return true
		}
		return false
	}
	return true
}

func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = "CLOSED"
	cb.failureCount = 0
}

func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.threshold {
		cb.state = "OPEN"
	}
}
