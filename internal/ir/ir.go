package ir

import "time"

const Version = "1.0"

// Run is one analysis pass over a set of Solidity sources.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Context   Context    `json:"context"`
	Contracts []Contract `json:"contracts"`
	Findings  []Finding  `json:"findings,omitempty"`
}

type Context struct {
	GasPriceGwei        float64  `json:"gas_price_gwei,omitempty"`
	ETHToUSD            float64  `json:"eth_to_usd,omitempty"`
	RuleImpactThreshold string   `json:"rule_impact_threshold,omitempty"`
	DisabledRules       []string `json:"disabled_rules,omitempty"`
}

type ContractKind string

const (
	KindContract  ContractKind = "contract"
	KindInterface ContractKind = "interface"
	KindLibrary   ContractKind = "library"
)

type Contract struct {
	Name     string       `json:"name"`
	Kind     ContractKind `json:"kind,omitempty"`
	Abstract bool         `json:"abstract,omitempty"`
	// Bases holds the names listed in the inheritance clause, if any.
	Bases     []string   `json:"bases,omitempty"`
	File      string     `json:"file,omitempty"`
	Functions []Function `json:"functions"`
}

// ContractsDerived returns the concrete contracts of the run: not abstract,
// not interfaces, and not inherited by another contract in the same run.
// These are the contracts rules iterate over.
func (r *Run) ContractsDerived() []*Contract {
	inherited := map[string]bool{}
	for i := range r.Contracts {
		for _, b := range r.Contracts[i].Bases {
			inherited[b] = true
		}
	}
	var out []*Contract
	for i := range r.Contracts {
		c := &r.Contracts[i]
		if c.Abstract || c.Kind == KindInterface || inherited[c.Name] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Function is a function the contract itself declares (inherited functions
// live on their declaring contract only). Nodes are the function's statements
// flattened in declaration order.
type Function struct {
	Name        string `json:"name"`
	Visibility  string `json:"visibility,omitempty"`
	Nodes       []Node `json:"nodes"`
	Annotations Anno   `json:"annotations"`
}

// AnnotationBefore returns the rendered source of the node directly above
// Nodes[i], or false when i is the first node (or out of range). Rules use
// this as the lookup for allowance comments written above a statement.
func (f *Function) AnnotationBefore(i int) (string, bool) {
	if i <= 0 || i >= len(f.Nodes) {
		return "", false
	}
	return f.Nodes[i-1].Source.Code(), true
}

type NodeKind string

const (
	NodeExpression NodeKind = "EXPRESSION"
	NodeVariable   NodeKind = "VARIABLE"
	NodeControl    NodeKind = "CONTROL"
	NodeReturn     NodeKind = "RETURN"
	NodeComment    NodeKind = "COMMENT"
	NodeOther      NodeKind = "OTHER"
)

// Node is one statement-level unit of a function body.
// Expression is set only for NodeExpression nodes.
type Node struct {
	Kind       NodeKind      `json:"kind"`
	Expression string        `json:"expression,omitempty"`
	Source     SourceMapping `json:"source"`
}

// SourceMapping ties a node back to the exact text it was built from.
type SourceMapping struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
	Text string `json:"text"`
}

func (m SourceMapping) Code() string { return m.Text }

type Anno struct {
	Gas Gas `json:"gas,omitempty"`
}

// Gas is a heuristic execution-cost estimate for a function body.
type Gas struct {
	Units uint64  `json:"units,omitempty"`
	USD   float64 `json:"usd,omitempty"`
}

type Finding struct {
	ID         string         `json:"id"`
	Contract   string         `json:"contract"`
	Function   string         `json:"function"`
	RuleID     string         `json:"rule_id"`
	Impact     string         `json:"impact"`     // HIGH|MEDIUM|LOW|INFO
	Confidence string         `json:"confidence"` // HIGH|MEDIUM|LOW
	Message    string         `json:"message"`
	Evidence   string         `json:"evidence,omitempty"`
	File       string         `json:"file,omitempty"`
	Line       int            `json:"line,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
