package reporting

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"

	"github.com/lifinance/solguard/internal/ir"
	"github.com/lifinance/solguard/internal/rules"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Totals
	var totalFns int
	var totalGas uint64
	var totalUSD float64
	for _, c := range run.Contracts {
		totalFns += len(c.Functions)
		for _, fn := range c.Functions {
			totalGas += fn.Annotations.Gas.Units
			totalUSD += fn.Annotations.Gas.USD
		}
	}

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(runID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>solguard report – <span class='mono'>%s</span></h1>", html.EscapeString(runID))
	fmt.Fprintf(f, "<p>Contracts: %d &nbsp; Functions: %d &nbsp; Findings: %d</p>", len(run.Contracts), totalFns, len(run.Findings))
	fmt.Fprintf(f, "<p><b>Estimated gas</b>: %d units &nbsp; USD=%.4f <span class='dim'>(heuristic)</span></p>", totalGas, totalUSD)

	if run.Context.GasPriceGwei > 0 {
		fmt.Fprintf(f, "<p class='dim'>Rate: %.1f gwei/gas, 1 ETH ≈ %.2f USD</p>", run.Context.GasPriceGwei, run.Context.ETHToUSD)
	}
	fmt.Fprintf(f, "<p class='dim'>Impact threshold: %s", html.EscapeString(run.Context.RuleImpactThreshold))
	if n := len(run.Context.DisabledRules); n > 0 {
		fmt.Fprintf(f, " &nbsp; Disabled rules: %d", n)
	}
	fmt.Fprint(f, "</p>")

	// Findings
	if len(run.Findings) > 0 {
		byImpact := map[string]int{}
		for _, fd := range run.Findings {
			byImpact[fd.Impact]++
		}
		fmt.Fprint(f, "<h2>Findings</h2>")
		fmt.Fprintf(f, "<p class='dim'>HIGH: %d &nbsp; MEDIUM: %d &nbsp; LOW: %d</p>", byImpact["HIGH"], byImpact["MEDIUM"], byImpact["LOW"])
		fmt.Fprint(f, "<table><tr><th>Impact</th><th>Confidence</th><th>Rule</th><th>Contract</th><th>Function</th><th>Location</th><th>Message</th></tr>")
		for _, fd := range run.Findings {
			doc := ""
			if r, ok := rules.Get(fd.RuleID); ok && r.Docs.Wiki != "" {
				doc = fmt.Sprintf(" <a href='%s'>docs</a>", html.EscapeString(r.Docs.Wiki))
			}
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td class='mono'>%s%s</td><td>%s</td><td class='mono'>%s</td><td class='mono'>%s:%d</td><td>%s</td></tr>",
				html.EscapeString(fd.Impact),
				html.EscapeString(fd.Confidence),
				html.EscapeString(fd.RuleID), doc,
				html.EscapeString(fd.Contract),
				html.EscapeString(fd.Function),
				html.EscapeString(fd.File), fd.Line,
				html.EscapeString(fd.Message),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Findings</h2><p>None.</p>")
	}

	// Per-contract overview
	fmt.Fprint(f, "<h2>Contracts</h2><table><tr><th>Contract</th><th>Kind</th><th>Functions</th><th>Gas (est.)</th><th>Findings</th></tr>")
	counts := map[string]int{}
	for _, fd := range run.Findings {
		counts[fd.Contract]++
	}
	sorted := make([]ir.Contract, len(run.Contracts))
	copy(sorted, run.Contracts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, c := range sorted {
		var g uint64
		for _, fn := range c.Functions {
			g += fn.Annotations.Gas.Units
		}
		fmt.Fprintf(f, "<tr><td class='mono'>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>",
			html.EscapeString(c.Name), html.EscapeString(string(c.Kind)), len(c.Functions), g, counts[c.Name])
	}
	fmt.Fprint(f, "</table>")

	fmt.Fprint(f, "</body></html>")
	return path, nil
}
