package rulesdsl

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lifinance/solguard/internal/ir"
	"github.com/lifinance/solguard/internal/rules"
)

type dslPack struct {
	Rules []dslRule `yaml:"rules"`
}

type dslRule struct {
	ID         string `yaml:"id"`
	Help       string `yaml:"help"`
	Impact     string `yaml:"impact"`     // HIGH|MEDIUM|LOW|INFO
	Confidence string `yaml:"confidence"` // HIGH|MEDIUM|LOW
	Message    string `yaml:"message"`

	Where struct {
		ExpressionRegex string `yaml:"expression_regex"` // regex on the node's rendered expression (required)
		Contract        string `yaml:"contract"`         // regex on the contract name (optional)
		NodeKind        string `yaml:"node_kind"`        // defaults to EXPRESSION
	} `yaml:"where"`

	// Suppress.Annotation, when set, silences a hit if the node directly
	// above contains this exact substring (same mechanism as the built-in
	// low-level-call allowance).
	Suppress struct {
		Annotation string `yaml:"annotation"`
	} `yaml:"suppress"`
}

type compiled struct {
	rule       dslRule
	reExpr     *regexp.Regexp
	reContract *regexp.Regexp
	kind       ir.NodeKind
}

func LoadAndRegister(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rules pack: %w", err)
	}
	var pack dslPack
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return 0, fmt.Errorf("parse yaml: %w", err)
	}
	var n int
	for _, r := range pack.Rules {
		cr, err := compile(r)
		if err != nil {
			return n, fmt.Errorf("compile rule %q: %w", r.ID, err)
		}
		registerCompiled(*cr)
		n++
	}
	return n, nil
}

func compile(r dslRule) (*compiled, error) {
	if r.ID == "" || r.Impact == "" || r.Confidence == "" || r.Message == "" {
		return nil, fmt.Errorf("missing required fields (id/impact/confidence/message)")
	}
	if r.Where.ExpressionRegex == "" {
		return nil, fmt.Errorf("where.expression_regex is required")
	}
	c := &compiled{rule: r, kind: ir.NodeExpression}
	re, err := regexp.Compile(r.Where.ExpressionRegex)
	if err != nil {
		return nil, fmt.Errorf("expression_regex: %w", err)
	}
	c.reExpr = re
	if r.Where.Contract != "" {
		re, err := regexp.Compile(r.Where.Contract)
		if err != nil {
			return nil, fmt.Errorf("contract regex: %w", err)
		}
		c.reContract = re
	}
	if k := strings.ToUpper(strings.TrimSpace(r.Where.NodeKind)); k != "" {
		c.kind = ir.NodeKind(k)
	}
	return c, nil
}

func registerCompiled(c compiled) {
	rules.Register(rules.Rule{
		ID:         c.rule.ID,
		Help:       c.rule.Help,
		Impact:     strings.ToUpper(c.rule.Impact),
		Confidence: strings.ToUpper(c.rule.Confidence),
		Eval: func(run *ir.Run) ([]ir.Finding, error) {
			return evalCompiled(c, run)
		},
	})
}

func evalCompiled(c compiled, run *ir.Run) ([]ir.Finding, error) {
	var out []ir.Finding
	for _, contract := range run.ContractsDerived() {
		if c.reContract != nil && !c.reContract.MatchString(contract.Name) {
			continue
		}
		for fi := range contract.Functions {
			fn := &contract.Functions[fi]
			for ni := range fn.Nodes {
				n := &fn.Nodes[ni]
				if n.Kind != c.kind {
					continue
				}
				subject := n.Expression
				if c.kind != ir.NodeExpression {
					subject = n.Source.Code()
				} else if subject == "" {
					return nil, fmt.Errorf("contract %s: function %s: node %d is an expression statement with no expression", contract.Name, fn.Name, ni)
				}
				if !c.reExpr.MatchString(subject) {
					continue
				}
				if c.rule.Suppress.Annotation != "" {
					if src, ok := fn.AnnotationBefore(ni); ok && strings.Contains(src, c.rule.Suppress.Annotation) {
						continue
					}
				}
				out = append(out, ir.Finding{
					RuleID:   c.rule.ID,
					Contract: contract.Name,
					Function: fn.Name,
					Message:  c.rule.Message,
					Evidence: subject,
					File:     n.Source.File,
					Line:     n.Source.Line,
				})
			}
		}
	}
	return out, nil
}
