package gas

import (
	"strings"

	"github.com/lifinance/solguard/internal/ir"
)

// Per-statement weights, rough EVM orders of magnitude.
const (
	weightBase     = 200   // bookkeeping per statement
	weightStore    = 20000 // storage write
	weightCall     = 2600  // cold external call
	weightTransfer = 9000  // value transfer
)

// Estimate sums heuristic weights over a function body. The numbers are
// indicative only; reports label them as such.
func Estimate(fn *ir.Function, ctx ir.Context) ir.Gas {
	var units uint64
	for i := range fn.Nodes {
		n := &fn.Nodes[i]
		if n.Kind == ir.NodeComment {
			continue
		}
		units += weightBase
		subject := n.Expression
		if subject == "" {
			subject = n.Source.Code()
		}
		if strings.Contains(subject, ".call") || strings.Contains(subject, ".delegatecall") || strings.Contains(subject, ".staticcall") {
			units += weightCall
		}
		if strings.Contains(subject, "{value:") || strings.Contains(subject, ".transfer(") || strings.Contains(subject, ".send(") {
			units += weightTransfer
		}
		if n.Kind == ir.NodeExpression && strings.Contains(subject, " = ") {
			units += weightStore
		}
	}
	g := ir.Gas{Units: units}
	if ctx.GasPriceGwei > 0 && ctx.ETHToUSD > 0 {
		g.USD = float64(units) * ctx.GasPriceGwei / 1e9 * ctx.ETHToUSD
	}
	return g
}

// Annotate writes estimates onto every function of the run.
func Annotate(run *ir.Run) {
	for i := range run.Contracts {
		for j := range run.Contracts[i].Functions {
			fn := &run.Contracts[i].Functions[j]
			fn.Annotations.Gas = Estimate(fn, run.Context)
		}
	}
}
