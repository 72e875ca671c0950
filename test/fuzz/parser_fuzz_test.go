package fuzz

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lifinance/solguard/internal/parser"
	"github.com/lifinance/solguard/internal/rules"
)

// Fuzz the loader with arbitrary content to ensure we never panic. The data
// is wrapped in a minimal contract scaffold so it lands inside a function
// body, where the statement accumulator does its work.
func FuzzParseNoPanic(f *testing.F) {
	seeds := [][]byte{
		[]byte("uint256 x = 1;\n"),
		[]byte("target.call(data);\n"),
		[]byte("(bool ok, ) = to.call{value: amount}(\"\");\n"),
		[]byte("// [slither: low-level call explicitly allowed]\ntarget.call(data);\n"),
		[]byte("if (x > 0) {\n  x = 0;\n}\n"),
		[]byte("/* block\ncomment */\n"),
		[]byte("garbage } { ;; }}}\n"),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		dir := t.TempDir()
		content := append([]byte("contract Fz {\nfunction fz() external {\n"), data...)
		content = append(content, []byte("\n}\n}\n")...)
		if err := os.WriteFile(filepath.Join(dir, "fuzz.sol"), content, 0o644); err != nil {
			t.Skipf("write failed: %v", err)
		}
		run, _ := parser.Parse(dir)
		// rules must at worst error on mangled input, never panic
		_, _ = rules.Evaluate(&run)
	})
}
