// Package allowlist tracks which external domains/services Core has
// authorized the gateway to contact, and decides whether a given
// request's target domain is currently allowed.
//
// The floor behavior is a bare active/inactive domain match (spec §4.6);
// an optional per-entry CEL predicate (pkg/allowlist/cel_evaluator.go,
// grounded on the CEL policy-evaluation pattern used elsewhere in the
// corpus for governance decisions) can further restrict a domain to
// particular action-kind prefixes, protocols, or payload shapes.
package allowlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quietcore/gateway/pkg/protocol"
)

// ErrNotFound is returned when a service ID has no match.
var ErrNotFound = errors.New("allowlist: service not found")

// Store persists AllowedService rows.
type Store interface {
	Add(ctx context.Context, svc protocol.AllowedService) (*protocol.AllowedService, error)
	List(ctx context.Context) ([]*protocol.AllowedService, error)
	Deactivate(ctx context.Context, id string) error
	FindActiveByDomain(ctx context.Context, domain string) (*protocol.AllowedService, error)
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*protocol.AllowedService
	byDomain map[string][]string // domain -> ids, most recently added last
}

// NewMemoryStore builds an empty in-process allowlist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]*protocol.AllowedService),
		byDomain: make(map[string][]string),
	}
}

func (s *MemoryStore) Add(ctx context.Context, svc protocol.AllowedService) (*protocol.AllowedService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc.ID = uuid.New().String()
	svc.AddedAt = time.Now().UTC()
	svc.IsActive = true
	s.byID[svc.ID] = &svc
	s.byDomain[svc.Domain] = append(s.byDomain[svc.Domain], svc.ID)
	return &svc, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*protocol.AllowedService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*protocol.AllowedService, 0, len(s.byID))
	for _, svc := range s.byID {
		out = append(out, svc)
	}
	return out, nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	svc.IsActive = false
	return nil
}

func (s *MemoryStore) FindActiveByDomain(ctx context.Context, domain string) (*protocol.AllowedService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDomain[domain]
	for i := len(ids) - 1; i >= 0; i-- {
		if svc := s.byID[ids[i]]; svc.IsActive {
			return svc, nil
		}
	}
	return nil, nil
}

// Allowlist decides whether a (action, domain, payload) triple is
// authorized, combining the domain match with an optional CEL predicate.
type Allowlist struct {
	store Store

	evaluatorOnce sync.Once
	evaluator     *celEvaluator
	evaluatorErr  error
}

// New builds an Allowlist over store. CEL predicate support is
// initialized lazily on first use since building a cel.Env has a small
// fixed cost not every deployment needs to pay.
func New(store Store) *Allowlist {
	return &Allowlist{store: store}
}

// AddService registers a new allowlist entry, active by default.
func (a *Allowlist) AddService(ctx context.Context, svc protocol.AllowedService) (*protocol.AllowedService, error) {
	if svc.Domain == "" {
		return nil, fmt.Errorf("allowlist: domain is required")
	}
	return a.store.Add(ctx, svc)
}

// ListServices returns every registered entry, active or not.
func (a *Allowlist) ListServices(ctx context.Context) ([]*protocol.AllowedService, error) {
	return a.store.List(ctx)
}

// Deactivate marks an entry inactive; it is never deleted, preserving
// the audit trail of what was once allowed.
func (a *Allowlist) Deactivate(ctx context.Context, id string) error {
	return a.store.Deactivate(ctx, id)
}

// IsAllowed reports whether domain is currently allowed for action,
// given payload. A domain with no active entry is never allowed
// (fail closed). An entry with no Rule is allowed on the bare domain
// match alone; an entry with a Rule must also satisfy it.
func (a *Allowlist) IsAllowed(ctx context.Context, action, domain string, payload map[string]interface{}) (bool, error) {
	svc, err := a.store.FindActiveByDomain(ctx, domain)
	if err != nil {
		return false, err
	}
	if svc == nil {
		return false, nil
	}
	if svc.Rule == "" {
		return true, nil
	}

	a.evaluatorOnce.Do(func() {
		a.evaluator, a.evaluatorErr = newCELEvaluator()
	})
	if a.evaluatorErr != nil {
		return false, fmt.Errorf("allowlist: init predicate evaluator: %w", a.evaluatorErr)
	}
	return a.evaluator.Evaluate(svc.Rule, action, domain, payload)
}
