package rules

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/lifinance/solguard/internal/ir"
)

var (
	registry  []Rule
	ruleIndex = map[string]int{} // lower(ruleID) -> index
)

func Register(r Rule) {
	registry = append(registry, r)
	ruleIndex[strings.ToLower(strings.TrimSpace(r.ID))] = len(registry) - 1
}

func List() []Rule {
	out := make([]Rule, 0, len(registry))
	for _, r := range registry {
		if rsettings.Disabled[strings.ToLower(r.ID)] {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Evaluate runs every enabled rule over the run. Findings keep the order the
// evaluators produced them in (contract order x function order x node order);
// no re-sorting happens here, so two passes over the same run give the same
// list.
func Evaluate(run *ir.Run) ([]ir.Finding, error) {
	var all []ir.Finding
	rs := List()

	seen := make(map[string]struct{}) // finding IDs seen in this run
	seq := 0

	put := func(id string) bool {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		return true
	}

	for _, rule := range rs {
		if !impactOK(rule.Impact) {
			continue
		}
		fs, err := rule.Eval(run)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		for k := range fs {
			if fs[k].RuleID == "" {
				fs[k].RuleID = rule.ID
			}
			if fs[k].Impact == "" {
				fs[k].Impact = rule.Impact
			}
			if fs[k].Confidence == "" {
				fs[k].Confidence = rule.Confidence
			}
			// Guarantee a unique ID within the run
			id := fs[k].ID
			if id == "" {
				id = makeID(rule.ID, fs[k].Contract, fs[k].Function, fs[k].Evidence, k)
			}
			if !put(id) {
				for {
					seq++
					candidate := fmt.Sprintf("%s-%06d", rule.ID, seq)
					if put(candidate) {
						id = candidate
						break
					}
				}
			}
			fs[k].ID = id
		}
		all = append(all, fs...)
	}
	return all, nil
}

func makeID(ruleID, contract, function, evidence string, idx int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d", ruleID, contract, function, evidence, idx)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}

// Get returns a rule by ID if registered (used by reports to link docs).
func Get(id string) (Rule, bool) {
	idx, ok := ruleIndex[strings.ToLower(strings.TrimSpace(id))]
	if !ok || idx < 0 || idx >= len(registry) {
		return Rule{}, false
	}
	return registry[idx], true
}
