package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// anyCondition marks a policy line that applies unconditionally.
const anyCondition = "*"

// evaluators caches compiled expressions keyed by their source.
var evaluators = &sync.Map{}

// bexprMatch is registered on the enforcer as bexprMatch(cond, attrs).
func bexprMatch(args ...any) (any, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("bexprMatch requires 2 arguments: cond, attrs")
	}
	cond, ok := args[0].(string)
	if !ok {
		return false, fmt.Errorf("bexprMatch: first argument must be string (cond)")
	}
	attrs, ok := args[1].(map[string]any)
	if !ok {
		return false, fmt.Errorf("bexprMatch: second argument must be map[string]any (attrs)")
	}
	return evaluate(cond, attrs), nil
}

// evaluate reports whether attrs satisfy cond. Unparseable expressions and
// evaluation errors deny.
func evaluate(cond string, attrs map[string]any) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" || cond == anyCondition {
		return true
	}

	var evaluator *bexpr.Evaluator
	if cached, ok := evaluators.Load(cond); ok {
		evaluator = cached.(*bexpr.Evaluator)
	} else {
		compiled, err := bexpr.CreateEvaluator(cond)
		if err != nil {
			return false
		}
		evaluators.Store(cond, compiled)
		evaluator = compiled
	}

	matches, err := evaluator.Evaluate(attrs)
	if err != nil {
		return false
	}
	return matches
}
