package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lifinance/solguard/internal/ir"
)

type diffPayload struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary diffSummary   `json:"summary"`
	New     []diffFinding `json:"new"`
	Removed []diffFinding `json:"removed"`
	Changed []diffChanged `json:"changed"`
}

type diffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type diffFinding struct {
	RuleID   string `json:"rule_id"`
	Contract string `json:"contract"`
	Function string `json:"function,omitempty"`
	Impact   string `json:"impact,omitempty"`
	Message  string `json:"message,omitempty"`
}

type diffChanged struct {
	Key     string      `json:"key"`
	Base    diffFinding `json:"base"`
	Head    diffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

func WriteDiffJSON(baseID, headID, outDir string, base, head *ir.Run) (string, error) {
	path := filepath.Join(outDir, "diff_"+baseID+"__"+headID+".json")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}

	// index findings
	bm := map[string]ir.Finding{}
	hm := map[string]ir.Finding{}
	for _, f := range base.Findings {
		bm[keyOf(f)] = f
	}
	for _, f := range head.Findings {
		hm[keyOf(f)] = f
	}

	var added []diffFinding
	var removed []diffFinding
	var changed []diffChanged

	// additions & changes
	for k, hf := range hm {
		if bf, ok := bm[k]; !ok {
			added = append(added, asDiff(hf))
		} else {
			var fields []string
			if norm(bf.Impact) != norm(hf.Impact) {
				fields = append(fields, "impact")
			}
			if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
				fields = append(fields, "message")
			}
			if bf.Line != hf.Line {
				fields = append(fields, "line")
			}
			if len(fields) > 0 {
				changed = append(changed, diffChanged{
					Key:     k,
					Base:    asDiff(bf),
					Head:    asDiff(hf),
					Changed: fields,
				})
			}
		}
	}
	// removals
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, asDiff(bf))
		}
	}

	// stable sort
	sort.Slice(added, func(i, j int) bool { return less(added[i], added[j]) })
	sort.Slice(removed, func(i, j int) bool { return less(removed[i], removed[j]) })
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	payload := diffPayload{
		BaseID: baseID, HeadID: headID,
		Summary: diffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func keyOf(f ir.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Contract))
	sb.WriteByte('|')
	sb.WriteString(norm(f.Function))
	sb.WriteByte('|')
	// evidence drives logical identity: the same call moved a few lines is
	// still the same finding
	sb.WriteString(norm(f.Evidence))
	return sb.String()
}

func less(a, b diffFinding) bool {
	if a.RuleID != b.RuleID {
		return a.RuleID < b.RuleID
	}
	if a.Contract != b.Contract {
		return a.Contract < b.Contract
	}
	return a.Function < b.Function
}

func asDiff(f ir.Finding) diffFinding {
	return diffFinding{
		RuleID:   f.RuleID,
		Contract: f.Contract,
		Function: f.Function,
		Impact:   f.Impact,
		Message:  f.Message,
	}
}

func norm(s string) string {
	return strings.TrimSpace(s)
}
