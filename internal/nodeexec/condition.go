package nodeexec

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/convoflow/workflow-engine/internal/ctxdoc"
	"github.com/convoflow/workflow-engine/internal/workflow"
)

// ConditionExecutor handles workflow.NodeCondition: it resolves a context
// variable, compares it against a configured value with the configured
// operator, and returns "true"/"false" under the condition_eval key for
// edge guards to match against. Ported from workflow_engine.py's
// "condition" node_type block.
type ConditionExecutor struct{}

var numericCleaner = regexp.MustCompile(`[^\d.]`)

func (ConditionExecutor) Execute(_ context.Context, node workflow.Node, doc ctxdoc.Document) (Result, error) {
	variable, _ := node.Config["variable"].(string)
	operator, _ := node.Config["operator"].(string)
	if operator == "" {
		operator = "contains"
	}
	targetValue := node.Config["value"]

	actual, _ := ctxdoc.Resolve(doc, variable)

	result := "false"
	switch operator {
	case "exists":
		if actual != nil && actual != "" {
			result = "true"
		}
	case "equals":
		if actual != nil && strings.EqualFold(fmt.Sprint(actual), fmt.Sprint(targetValue)) {
			result = "true"
		}
	case "contains":
		if actual != nil && targetValue != nil &&
			strings.Contains(strings.ToLower(fmt.Sprint(actual)), strings.ToLower(fmt.Sprint(targetValue))) {
			result = "true"
		}
	case "greater_than":
		if actual != nil {
			a, aOK := asNumber(actual)
			b, bOK := asNumber(targetValue)
			if aOK && bOK {
				if a > b {
					result = "true"
				}
			} else if fmt.Sprint(actual) > fmt.Sprint(targetValue) {
				result = "true"
			}
		}
	}

	return Result{Output: map[string]any{"condition_eval": result}}, nil
}

// asNumber mirrors workflow_engine.py's clean_num: strips everything but
// digits and '.' before parsing, so "$1,200" and "1200" compare equal.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	cleaned := numericCleaner.ReplaceAllString(fmt.Sprint(v), "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
