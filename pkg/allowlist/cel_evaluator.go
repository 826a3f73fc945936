package allowlist

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// celEvaluator compiles and runs an AllowedService's optional predicate
// against the action kind, domain, and payload of one request. Env
// exposes three variables: action (string), domain (string), and
// payload (map[string, dyn]).
type celEvaluator struct {
	validator *celValidator
	env       *cel.Env
}

func newCELEvaluator() (*celEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("domain", cel.StringType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	validator, err := newCELValidator()
	if err != nil {
		return nil, err
	}
	return &celEvaluator{validator: validator, env: env}, nil
}

// Evaluate runs expr against the given action/domain/payload and
// returns whether it evaluated truthy. A predicate that does not
// validate or does not evaluate to a bool is treated as a rejection
// (fail closed) with the error describing why.
func (e *celEvaluator) Evaluate(expr, action, domain string, payload map[string]interface{}) (bool, error) {
	res, err := e.validator.Validate(expr)
	if err != nil {
		return false, fmt.Errorf("allowlist: predicate parse failed: %w", err)
	}
	if !res.Valid {
		msgs := make([]string, 0, len(res.Issues))
		for _, iss := range res.Issues {
			msgs = append(msgs, iss.Message)
		}
		return false, fmt.Errorf("allowlist: predicate rejected: %s", strings.Join(msgs, "; "))
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("allowlist: predicate compile failed: %w", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("allowlist: predicate program failed: %w", err)
	}

	if payload == nil {
		payload = map[string]interface{}{}
	}
	val, _, err := prg.Eval(map[string]interface{}{
		"action":  action,
		"domain":  domain,
		"payload": payload,
	})
	if err != nil {
		return false, fmt.Errorf("allowlist: predicate evaluation failed: %w", err)
	}

	boolVal, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("allowlist: predicate did not evaluate to a boolean")
	}
	return boolVal, nil
}
