package reporting

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/lifinance/solguard/internal/ir"
	"github.com/lifinance/solguard/internal/rules"
)

// WriteSARIF renders the run's findings as SARIF 2.1.0 so CI systems and
// code hosts can ingest them.
func WriteSARIF(runID, outDir string, run *ir.Run) (string, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return "", err
	}

	sr := sarif.NewRunWithInformationURI("solguard", "https://github.com/lifinance/solguard")
	for _, f := range run.Findings {
		rule := sr.AddRule(f.RuleID).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{
				Level: toSarifLevel(f.Impact),
			})
		if meta, ok := rules.Get(f.RuleID); ok {
			rule.WithDescription(meta.Help)
			if meta.Docs.Wiki != "" {
				rule.WithHelpURI(meta.Docs.Wiki)
			}
		}

		line := f.Line
		if line <= 0 {
			line = 1
		}
		location := sarif.NewLocation().WithPhysicalLocation(
			sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.File)).
				WithRegion(sarif.NewRegion().WithStartLine(line)),
		)

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(f.Message)).
			WithLevel(toSarifLevel(f.Impact)).
			WithLocations([]*sarif.Location{location})
		sr.AddResult(result)
	}
	report.AddRun(sr)

	path := filepath.Join(outDir, runID+".sarif")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()
	if err := report.PrettyWrite(file); err != nil {
		return "", err
	}
	return path, nil
}

func toSarifLevel(impact string) string {
	switch strings.ToUpper(strings.TrimSpace(impact)) {
	case "HIGH":
		return "error"
	case "MEDIUM":
		return "warning"
	default:
		return "note"
	}
}
