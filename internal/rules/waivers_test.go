package rules

import (
	"testing"

	"github.com/lifinance/solguard/internal/ir"
	"github.com/lifinance/solguard/internal/storage"
)

func TestApplyWaivers(t *testing.T) {
	findings := []ir.Finding{
		{RuleID: "low-level-call", Contract: "Vault", Function: "sweep", Evidence: "target.call(data)"},
		{RuleID: "low-level-call", Contract: "Treasury", Function: "pay", Evidence: `to.call{value: amount}("")`},
		{RuleID: "delegatecall", Contract: "Vault", Function: "exec", Evidence: "impl.delegatecall(data)"},
	}

	t.Run("no waivers keeps everything", func(t *testing.T) {
		kept, waived := ApplyWaivers(findings, nil)
		if waived != 0 || len(kept) != 3 {
			t.Fatalf("kept=%d waived=%d", len(kept), waived)
		}
	})

	t.Run("rule and contract scoped", func(t *testing.T) {
		ws := []storage.Waiver{{RuleID: "low-level-call", Contract: "Vault"}}
		kept, waived := ApplyWaivers(findings, ws)
		if waived != 1 || len(kept) != 2 {
			t.Fatalf("kept=%d waived=%d", len(kept), waived)
		}
		for _, f := range kept {
			if f.Contract == "Vault" && f.RuleID == "low-level-call" {
				t.Fatalf("waived finding survived: %+v", f)
			}
		}
	})

	t.Run("pattern substring matches evidence", func(t *testing.T) {
		ws := []storage.Waiver{{RuleID: "low-level-call", PatternSub: "{value: amount}"}}
		kept, waived := ApplyWaivers(findings, ws)
		if waived != 1 || len(kept) != 2 {
			t.Fatalf("kept=%d waived=%d", len(kept), waived)
		}
	})

	t.Run("mismatched function keeps finding", func(t *testing.T) {
		ws := []storage.Waiver{{RuleID: "low-level-call", Contract: "Vault", Function: "other"}}
		_, waived := ApplyWaivers(findings, ws)
		if waived != 0 {
			t.Fatalf("waived=%d", waived)
		}
	})
}
