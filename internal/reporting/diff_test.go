package reporting

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifinance/solguard/internal/ir"
)

func TestWriteDiffJSON(t *testing.T) {
	dir := t.TempDir()

	base := &ir.Run{Findings: []ir.Finding{
		{RuleID: "low-level-call", Contract: "Vault", Function: "sweep", Impact: "HIGH", Evidence: "target.call(data)", Line: 40},
		{RuleID: "low-level-call", Contract: "Vault", Function: "refund", Impact: "HIGH", Evidence: `to.call{value: amount}("")`, Line: 55},
	}}
	head := &ir.Run{Findings: []ir.Finding{
		// same call as in base, moved and downgraded
		{RuleID: "low-level-call", Contract: "Vault", Function: "sweep", Impact: "MEDIUM", Evidence: "target.call(data)", Line: 44},
		// new finding
		{RuleID: "delegatecall", Contract: "Proxy", Function: "exec", Impact: "HIGH", Evidence: "impl.delegatecall(data)", Line: 10},
	}}

	path, err := WriteDiffJSON("run-a", "run-b", dir, base, head)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got diffPayload
	require.NoError(t, json.Unmarshal(raw, &got))

	require.Equal(t, "run-a", got.BaseID)
	require.Equal(t, "run-b", got.HeadID)
	require.Equal(t, diffSummary{NewCount: 1, RemovedCount: 1, ChangedCount: 1}, got.Summary)

	require.Len(t, got.New, 1)
	require.Equal(t, "delegatecall", got.New[0].RuleID)

	require.Len(t, got.Removed, 1)
	require.Equal(t, "refund", got.Removed[0].Function)

	require.Len(t, got.Changed, 1)
	require.ElementsMatch(t, []string{"impact", "line"}, got.Changed[0].Changed)
	require.Equal(t, "HIGH", got.Changed[0].Base.Impact)
	require.Equal(t, "MEDIUM", got.Changed[0].Head.Impact)
}

func TestWriteDiffJSON_NoChanges(t *testing.T) {
	dir := t.TempDir()
	run := &ir.Run{Findings: []ir.Finding{
		{RuleID: "low-level-call", Contract: "Vault", Function: "sweep", Impact: "HIGH", Evidence: "target.call(data)", Line: 40},
	}}

	path, err := WriteDiffJSON("run-a", "run-a", dir, run, run)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got diffPayload
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, diffSummary{}, got.Summary)
	require.Empty(t, got.New)
	require.Empty(t, got.Removed)
	require.Empty(t, got.Changed)
}

func TestKeyOf_LineInsensitive(t *testing.T) {
	a := ir.Finding{RuleID: "r", Contract: "C", Function: "f", Evidence: "x.call(data)", Line: 1}
	b := a
	b.Line = 99
	require.Equal(t, keyOf(a), keyOf(b))
}
