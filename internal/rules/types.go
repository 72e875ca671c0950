package rules

import "github.com/lifinance/solguard/internal/ir"

// Impact/confidence scale findings are classified with.
const (
	High   = "HIGH"
	Medium = "MEDIUM"
	Low    = "LOW"
	Info   = "INFO"
)

// Docs is the free-text documentation a host surfaces for a rule.
type Docs struct {
	Wiki            string
	Title           string
	Description     string
	ExploitScenario string
	Recommendation  string
}

// Rule pairs registration metadata with its evaluator. The metadata half is
// pure data; Eval is a function from a run to findings and touches nothing
// else.
type Rule struct {
	ID         string
	Help       string
	Impact     string
	Confidence string
	Docs       Docs
	// Eval walks the run and returns findings in traversal order. It fails
	// only when the model violates its shape contract.
	Eval func(run *ir.Run) ([]ir.Finding, error)
}
