// Package schema compiles and validates the JSON Schema for each
// supported action kind. Each kind's schema is Draft 2020-12 with
// additionalProperties: false, so payloads carrying unrecognized fields
// are rejected rather than silently accepted.
//
// Grounded on the allowlist-then-schema-validate sequencing used for tool
// calls elsewhere in this codebase; generalized from a single compiled
// schema per tool name to a registry covering every action kind this
// module supports.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds one compiled schema per action kind.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry builds an empty registry. Call Load or Register to
// populate it before validating requests.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON and stores it under kind, replacing any
// previously registered schema for that kind.
func (r *Registry) Register(kind, schemaJSON string) error {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://schemas.quietcore.local/%s.schema.json", kind)
	if err := c.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("schema: load %s failed: %w", kind, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("schema: compile %s failed: %w", kind, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[kind] = compiled
	return nil
}

// LoadAll registers every kind in the kinds map (as returned by
// schema/kinds.All()).
func (r *Registry) LoadAll(kinds map[string]string) error {
	for kind, schemaJSON := range kinds {
		if err := r.Register(kind, schemaJSON); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether kind has a registered schema.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[kind]
	return ok
}

// Validate checks payload against kind's registered schema. An unknown
// kind is itself a validation failure: every recognized action must ship
// a schema, so an unregistered kind means the request names a kind the
// gateway does not support.
func (r *Registry) Validate(kind string, payload map[string]interface{}) error {
	r.mu.RLock()
	compiled, ok := r.schemas[kind]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("schema: unknown action kind %q", kind)
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if err := compiled.Validate(payload); err != nil {
		return fmt.Errorf("schema: payload invalid for %q: %w", kind, err)
	}
	return nil
}

// Kinds returns every registered action kind.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	return out
}
