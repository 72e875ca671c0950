package rules

import (
	"fmt"
	"strings"

	"github.com/lifinance/solguard/internal/ir"
)

// AllowedLowLevelCall silences the low-level-call rule when it appears in
// the source directly above the call. Matching is an exact, case-sensitive
// substring test against the preceding node's source.
const AllowedLowLevelCall = "[slither: low-level call explicitly allowed]"

// Matches a.call(...), a.call{value: v}(...) and the gas variants.
// Lexical on purpose: no bracket balancing, first hit wins.
var lowLevelCall = mustMatcher(`\.call(\{[^}]*\})?\([^)]*\)`)

func init() {
	Register(Rule{
		ID:         "low-level-call",
		Help:       "Detects low-level calls without explicit comment allowance",
		Impact:     High,
		Confidence: Medium,
		Docs: Docs{
			Wiki:            "https://github.com/lifinance/contracts",
			Title:           "Low-level call without explicit allowance",
			Description:     "Low-level calls should have explicit comments allowing them to avoid potential security issues.",
			ExploitScenario: "-",
			Recommendation:  "Add a comment " + AllowedLowLevelCall + " above the low-level call if it is intended.",
		},
		Eval: evalLowLevelCall,
	})
}

func evalLowLevelCall(run *ir.Run) ([]ir.Finding, error) {
	var out []ir.Finding
	for _, c := range run.ContractsDerived() {
		for fi := range c.Functions {
			fn := &c.Functions[fi]
			for ni := range fn.Nodes {
				n := &fn.Nodes[ni]
				if n.Kind != ir.NodeExpression {
					continue
				}
				if n.Expression == "" {
					return nil, fmt.Errorf("contract %s: function %s: node %d is an expression statement with no expression", c.Name, fn.Name, ni)
				}
				if !lowLevelCall.Match(n.Expression) {
					continue
				}
				if src, ok := fn.AnnotationBefore(ni); ok && strings.Contains(src, AllowedLowLevelCall) {
					continue
				}
				out = append(out, ir.Finding{
					RuleID:     "low-level-call",
					Contract:   c.Name,
					Function:   fn.Name,
					Impact:     High,
					Confidence: Medium,
					Message:    fmt.Sprintf("Function %s contains a low-level call: %s without explicit comment allowance", fn.Name, n.Expression),
					Evidence:   n.Expression,
					File:       n.Source.File,
					Line:       n.Source.Line,
				})
			}
		}
	}
	return out, nil
}
