package gas

import (
	"math"
	"testing"

	"github.com/lifinance/solguard/internal/ir"
)

func TestEstimate_Weights(t *testing.T) {
	fn := &ir.Function{
		Name: "sweep",
		Nodes: []ir.Node{
			{Kind: ir.NodeComment, Source: ir.SourceMapping{Text: "// drains the balance"}},
			{Kind: ir.NodeVariable, Expression: "uint256 amount = address(this).balance"},
			{Kind: ir.NodeExpression, Expression: `(bool ok, ) = to.call{value: amount}("")`},
			{Kind: ir.NodeControl, Expression: "require(ok)"},
		},
	}
	g := Estimate(fn, ir.Context{})

	// comment: 0; variable decl: base; call with value: base+call+transfer+store
	// (the tuple assignment counts as a write); require: base.
	want := uint64(weightBase + (weightBase + weightCall + weightTransfer + weightStore) + weightBase)
	if g.Units != want {
		t.Fatalf("units = %d, want %d", g.Units, want)
	}
	if g.USD != 0 {
		t.Fatalf("USD should stay zero without pricing context, got %f", g.USD)
	}
}

func TestEstimate_USDConversion(t *testing.T) {
	fn := &ir.Function{Nodes: []ir.Node{{Kind: ir.NodeReturn, Expression: "return x"}}}
	g := Estimate(fn, ir.Context{GasPriceGwei: 30, ETHToUSD: 2000})
	want := float64(weightBase) * 30 / 1e9 * 2000
	if math.Abs(g.USD-want) > 1e-9 {
		t.Fatalf("USD = %f, want %f", g.USD, want)
	}
}

func TestAnnotate(t *testing.T) {
	run := &ir.Run{
		Context: ir.Context{GasPriceGwei: 30, ETHToUSD: 2000},
		Contracts: []ir.Contract{{
			Name: "Vault",
			Functions: []ir.Function{
				{Name: "deposit", Nodes: []ir.Node{{Kind: ir.NodeExpression, Expression: "total = total + msg.value"}}},
				{Name: "noop"},
			},
		}},
	}
	Annotate(run)

	dep := run.Contracts[0].Functions[0]
	if dep.Annotations.Gas.Units != weightBase+weightStore {
		t.Fatalf("deposit units = %d", dep.Annotations.Gas.Units)
	}
	if dep.Annotations.Gas.USD == 0 {
		t.Fatal("deposit USD not filled")
	}
	if got := run.Contracts[0].Functions[1].Annotations.Gas.Units; got != 0 {
		t.Fatalf("empty function units = %d, want 0", got)
	}
}
