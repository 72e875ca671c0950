package parser

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lifinance/solguard/internal/ir"
)

type Diagnostics struct {
	Warnings []string
}

// Parse walks path for .sol files and builds the program model.
// It is a line-oriented loader, not a grammar-complete Solidity parser:
// statements are flattened into per-function node sequences the way rules
// expect to see them, and comment lines become nodes of their own so that
// "the node above" lines up with "the comment above".
func Parse(path string) (ir.Run, Diagnostics) {
	var run ir.Run
	run.IRVersion = ir.Version
	run.Source = filepath.Clean(path)
	diags := Diagnostics{}

	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".sol") {
			return nil
		}
		cs, perr := parseFile(p)
		if perr != nil {
			diags.Warnings = append(diags.Warnings, "skip "+p+": "+perr.Error())
			return nil
		}
		run.Contracts = append(run.Contracts, cs...)
		return nil
	})

	if len(run.Contracts) == 0 {
		diags.Warnings = append(diags.Warnings, "no Solidity contracts found under "+run.Source)
	}
	return run, diags
}

var (
	reContract = regexp.MustCompile(`^(abstract\s+)?(contract|interface|library)\s+([A-Za-z_$][A-Za-z0-9_$]*)(\s+is\s+([^({]+))?`)
	reFunction = regexp.MustCompile(`^function\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*\(`)
	reSpecial  = regexp.MustCompile(`^(constructor|receive|fallback)\s*\(`)
	reModifier = regexp.MustCompile(`^modifier\s+([A-Za-z_$][A-Za-z0-9_$]*)`)
	reDecl     = regexp.MustCompile(`^(uint\d*|int\d*|address|bool|bytes\d*|string|mapping\b|[A-Za-z_$][A-Za-z0-9_$]*(\[\])+)\s*(payable\s+)?(memory\s+|storage\s+|calldata\s+)?[A-Za-z_$][A-Za-z0-9_$]*\s*(=|;)`)
)

func parseFile(p string) ([]ir.Contract, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rel := filepath.Base(p)

	var (
		contracts []ir.Contract
		cur       *ir.Contract
		fn        *ir.Function
		depth     int  // brace depth across the whole file
		fnDepth   int  // depth at which the current function body opened
		inBlock   bool // inside a /* ... */ comment

		// statement accumulation for multi-line statements
		stmtBuf  strings.Builder
		stmtRaw  []string
		stmtLine int
	)

	flushStmt := func() {
		if fn == nil || stmtBuf.Len() == 0 {
			stmtBuf.Reset()
			stmtRaw = nil
			return
		}
		text := strings.TrimSpace(stmtBuf.String())
		stmtBuf.Reset()
		raw := strings.Join(stmtRaw, "\n")
		stmtRaw = nil
		if text == "" {
			return
		}
		fn.Nodes = append(fn.Nodes, classify(text, ir.SourceMapping{File: rel, Line: stmtLine, Text: raw}))
	}

	closeFunction := func() {
		flushStmt()
		if cur != nil && fn != nil {
			cur.Functions = append(cur.Functions, *fn)
		}
		fn = nil
	}

	lineNo := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		raw := strings.TrimRight(sc.Text(), "\r\n")
		trim := strings.TrimSpace(raw)
		if trim == "" {
			continue
		}

		// Block comments: each captured line becomes a comment node so
		// annotations written in them stay visible to rules.
		if inBlock {
			if fn != nil {
				fn.Nodes = append(fn.Nodes, ir.Node{Kind: ir.NodeComment, Source: ir.SourceMapping{File: rel, Line: lineNo, Text: raw}})
			}
			if strings.Contains(trim, "*/") {
				inBlock = false
			}
			continue
		}
		if strings.HasPrefix(trim, "/*") {
			if fn != nil {
				flushStmt()
				fn.Nodes = append(fn.Nodes, ir.Node{Kind: ir.NodeComment, Source: ir.SourceMapping{File: rel, Line: lineNo, Text: raw}})
			}
			if !strings.Contains(trim, "*/") {
				inBlock = true
			}
			continue
		}
		if strings.HasPrefix(trim, "//") {
			if fn != nil {
				flushStmt()
				fn.Nodes = append(fn.Nodes, ir.Node{Kind: ir.NodeComment, Source: ir.SourceMapping{File: rel, Line: lineNo, Text: raw}})
			}
			continue
		}

		// Contract header (only at top level).
		if depth == 0 {
			if m := reContract.FindStringSubmatch(trim); m != nil {
				if cur != nil {
					contracts = append(contracts, *cur)
				}
				c := ir.Contract{
					Name:     m[3],
					Kind:     ir.ContractKind(m[2]),
					Abstract: m[1] != "",
					File:     rel,
				}
				if m[5] != "" {
					for _, b := range strings.Split(m[5], ",") {
						name := strings.TrimSpace(b)
						// strip constructor args in the inheritance list
						if i := strings.IndexByte(name, '('); i >= 0 {
							name = name[:i]
						}
						if name != "" {
							c.Bases = append(c.Bases, name)
						}
					}
				}
				cur = &c
				depth += strings.Count(trim, "{") - strings.Count(trim, "}")
				continue
			}
			continue // pragma, import, file-level declarations
		}

		// Function header (directly inside a contract body).
		if depth == 1 && cur != nil && fn == nil {
			var name string
			if m := reFunction.FindStringSubmatch(trim); m != nil {
				name = m[1]
			} else if m := reSpecial.FindStringSubmatch(trim); m != nil {
				name = m[1]
			} else if m := reModifier.FindStringSubmatch(trim); m != nil {
				name = m[1]
			}
			if name != "" {
				opens := strings.Count(trim, "{")
				closes := strings.Count(trim, "}")
				if opens == 0 {
					// declaration only (interface/abstract signature ending in ';')
					if strings.HasSuffix(trim, ";") {
						continue
					}
				}
				fn = &ir.Function{Name: name, Visibility: visibilityOf(trim)}
				fnDepth = depth
				depth += opens - closes
				if opens > 0 && depth == fnDepth {
					// one-line body: function f() ... { stmt; }
					if body := braceBody(trim); body != "" {
						appendInline(fn, body, rel, lineNo)
					}
					closeFunction()
				}
				continue
			}
			depth += strings.Count(trim, "{") - strings.Count(trim, "}")
			continue
		}

		// Inside a function body.
		if fn != nil {
			opens := strings.Count(trim, "{")
			closes := strings.Count(trim, "}")
			newDepth := depth + opens - closes

			if depth == fnDepth {
				// still in the signature: body brace not seen yet
				depth = newDepth
				if depth == fnDepth && strings.HasSuffix(trim, ";") {
					fn = nil // turned out to be a declaration without a body
				}
				continue
			}

			if trim == "{" {
				depth = newDepth
				continue
			}
			if trim == "}" {
				flushStmt()
				depth = newDepth
				if depth == fnDepth {
					closeFunction()
				}
				continue
			}

			if stmtBuf.Len() == 0 {
				stmtLine = lineNo
			}
			stmtRaw = append(stmtRaw, raw)

			complete := strings.HasSuffix(trim, ";") || strings.HasSuffix(trim, "}")
			if strings.HasSuffix(trim, "{") {
				// a call-options brace (x.call{...}) continues the
				// statement; a block brace terminates it
				complete = opensBlock(stmtBuf.String() + trim)
			}
			stmtBuf.WriteString(trim)
			if complete {
				flushStmt()
			} else {
				stmtBuf.WriteByte(' ')
			}
			depth = newDepth
			if depth <= fnDepth {
				closeFunction()
			}
			continue
		}

		// Contract body outside any function (state vars, events, usings).
		depth += strings.Count(trim, "{") - strings.Count(trim, "}")
		if depth == 0 && cur != nil {
			contracts = append(contracts, *cur)
			cur = nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if fn != nil {
		closeFunction()
	}
	if cur != nil {
		contracts = append(contracts, *cur)
	}
	return contracts, nil
}

// classify buckets a flattened statement into a node kind. Only EXPRESSION
// nodes carry a rendering; everything else keeps just its source mapping.
func classify(text string, src ir.SourceMapping) ir.Node {
	first := firstWord(text)
	switch first {
	case "if", "else", "for", "while", "do", "try", "catch", "unchecked", "assembly":
		return ir.Node{Kind: ir.NodeControl, Source: src}
	case "return":
		return ir.Node{Kind: ir.NodeReturn, Source: src}
	}
	if reDecl.MatchString(text) {
		return ir.Node{Kind: ir.NodeVariable, Source: src}
	}
	if strings.HasSuffix(text, ";") {
		return ir.Node{Kind: ir.NodeExpression, Expression: renderExpr(text), Source: src}
	}
	return ir.Node{Kind: ir.NodeOther, Source: src}
}

// renderExpr turns a raw statement into the expression form rules match
// against: trailing semicolon and trailing line comment stripped.
func renderExpr(text string) string {
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	return strings.TrimSpace(text)
}

func appendInline(fn *ir.Function, body, file string, line int) {
	for _, part := range strings.Split(body, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fn.Nodes = append(fn.Nodes, classify(part+";", ir.SourceMapping{File: file, Line: line, Text: part + ";"}))
	}
}

// opensBlock reports whether a statement ending in '{' starts a block (an
// if/for/try header, a bare block) rather than a call-options brace like
// x.call{value: v}. Control headers end in ')' or start with a keyword.
func opensBlock(text string) bool {
	text = strings.TrimSpace(text)
	t := strings.TrimSpace(strings.TrimSuffix(text, "{"))
	if t == "" || strings.HasPrefix(text, "}") {
		return true
	}
	switch firstWord(strings.TrimSpace(text)) {
	case "if", "else", "for", "while", "do", "try", "catch", "unchecked", "assembly":
		return true
	}
	return strings.HasSuffix(t, ")")
}

func braceBody(line string) string {
	open := strings.IndexByte(line, '{')
	end := strings.LastIndexByte(line, '}')
	if open < 0 || end < open {
		return ""
	}
	return strings.TrimSpace(line[open+1 : end])
}

func visibilityOf(header string) string {
	for _, v := range []string{"external", "public", "internal", "private"} {
		if strings.Contains(header, " "+v) {
			return v
		}
	}
	return ""
}

func firstWord(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
			return s[:i]
		}
	}
	return s
}
