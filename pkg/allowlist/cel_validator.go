package allowlist

import (
	"github.com/google/cel-go/cel"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// celIssue describes one reason a predicate expression was rejected
// before it is ever compiled against a live payload.
type celIssue struct {
	Message  string
	Severity string
}

type celValidationResult struct {
	Valid  bool
	Issues []celIssue
}

// celValidator rejects predicate expressions that would make allowlist
// evaluation non-deterministic — a dangerous property for something
// that gates network access on Core's behalf.
type celValidator struct {
	env *cel.Env
}

func newCELValidator() (*celValidator, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, err
	}
	return &celValidator{env: env}, nil
}

func (v *celValidator) Validate(exprSource string) (*celValidationResult, error) {
	parsedAST, issues := v.env.Parse(exprSource)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	result := &celValidationResult{Valid: true}
	expr := parsedAST.Expr() //nolint:staticcheck // deprecated but no alternative for AST traversal yet
	checkRecursively(expr, &result.Issues)
	if len(result.Issues) > 0 {
		result.Valid = false
	}
	return result, nil
}

func checkRecursively(e *exprpb.Expr, issues *[]celIssue) {
	if e == nil {
		return
	}

	switch k := e.ExprKind.(type) {
	case *exprpb.Expr_ConstExpr:
		c := k.ConstExpr
		if _, ok := c.ConstantKind.(*exprpb.Constant_DoubleValue); ok {
			*issues = append(*issues, celIssue{Message: "floating point literals are forbidden", Severity: "ERROR"})
		}

	case *exprpb.Expr_CallExpr:
		call := k.CallExpr
		if call.Function == "now" {
			*issues = append(*issues, celIssue{Message: "now() is forbidden", Severity: "ERROR"})
		}
		if call.Function == "keys" || call.Function == "values" {
			*issues = append(*issues, celIssue{Message: "map iteration (keys/values) is forbidden due to non-determinism", Severity: "ERROR"})
		}
		if call.Target != nil {
			checkRecursively(call.Target, issues)
		}
		for _, arg := range call.Args {
			checkRecursively(arg, issues)
		}

	case *exprpb.Expr_SelectExpr:
		checkRecursively(k.SelectExpr.Operand, issues)

	case *exprpb.Expr_ListExpr:
		for _, el := range k.ListExpr.Elements {
			checkRecursively(el, issues)
		}

	case *exprpb.Expr_StructExpr:
		for _, entry := range k.StructExpr.Entries {
			if entry.GetMapKey() != nil {
				checkRecursively(entry.GetMapKey(), issues)
			}
			checkRecursively(entry.Value, issues)
		}

	case *exprpb.Expr_ComprehensionExpr:
		comp := k.ComprehensionExpr
		checkRecursively(comp.IterRange, issues)
		checkRecursively(comp.AccuInit, issues)
		checkRecursively(comp.LoopCondition, issues)
		checkRecursively(comp.LoopStep, issues)
		checkRecursively(comp.Result, issues)
	}
}
