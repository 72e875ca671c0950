package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lifinance/solguard/internal/api"
	"github.com/lifinance/solguard/internal/gas"
	"github.com/lifinance/solguard/internal/ir"
	"github.com/lifinance/solguard/internal/parser"
	"github.com/lifinance/solguard/internal/reporting"
	"github.com/lifinance/solguard/internal/rules"
	"github.com/lifinance/solguard/internal/rulesdsl"
	"github.com/lifinance/solguard/internal/security"
	"github.com/lifinance/solguard/internal/shared"
	"github.com/lifinance/solguard/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "analyze":
		analyzeCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "rules":
		rulesCmd(os.Args[2:])
	case "user-add":
		userAddCmd(os.Args[2:])
	case "version":
		fmt.Println("solguard IR:", ir.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `solguard – Solidity static analyzer

Usage:
  solguard analyze  --path <contracts-dir> --out <reports-dir> [--db ./solguard.db] [--rules-pack ./rules.yaml] [--sarif] [--config ./configs/solguard.yaml]
  solguard report   --run <run-id>         --out <reports-dir> [--db ./solguard.db] [--config ./configs/solguard.yaml]
  solguard diff     --base <run-id> --head <run-id> --out <reports-dir> [--db ./solguard.db]
  solguard serve    [--addr :8780] [--db ./solguard.db] [--config ./configs/solguard.yaml]
  solguard rules
  solguard user-add --username <name> --password <pw> [--role admin|viewer] [--db ./solguard.db]
  solguard version
`)
}

func analyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Path to Solidity sources")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	rulesPack := fs.String("rules-pack", "", "Extra YAML rules pack (optional)")
	gasGwei := fs.Float64("gas-gwei", 0, "Gas price in gwei for USD projection (optional)")
	ethUSD := fs.Float64("eth-usd", 0, "USD per ETH for USD projection (optional)")
	sarif := fs.Bool("sarif", false, "Also write a SARIF report")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	// precedence: flags > config > defaults
	if *inPath == "" && len(cfg.Analysis.Sources) > 0 {
		*inPath = cfg.Analysis.Sources[0]
	}
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *gasGwei == 0 && cfg.Analysis.GasPriceGwei > 0 {
		*gasGwei = cfg.Analysis.GasPriceGwei
	}
	if *ethUSD == 0 && cfg.Analysis.ETHToUSD > 0 {
		*ethUSD = cfg.Analysis.ETHToUSD
	}
	if !*sarif {
		*sarif = cfg.Reporting.SARIF
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "analyze: --path (or analysis.sources in config) is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "analyze: cannot create out dir:", err)
		os.Exit(1)
	}

	// Rule packs + settings
	packs := cfg.Analysis.RulePacks
	if *rulesPack != "" {
		packs = append(packs, *rulesPack)
	}
	for _, p := range packs {
		n, err := rulesdsl.LoadAndRegister(p)
		if err != nil {
			slog.Error("rules pack error", "path", p, "err", err)
			os.Exit(1)
		}
		slog.Info("rules pack loaded", "path", p, "rules", n)
	}
	disabled := map[string]bool{}
	for _, id := range cfg.Rules.Disabled {
		disabled[strings.ToLower(strings.TrimSpace(id))] = true
	}
	rules.SetSettings(rules.Settings{
		ImpactThreshold: cfg.Rules.ImpactThreshold,
		Disabled:        disabled,
	})

	// Parse
	run, diags := parser.Parse(*inPath)
	if len(diags.Warnings) > 0 {
		slog.Warn("parse warnings", "warnings", diags.Warnings)
	}
	run.ID = "run-" + uuid.NewString()[:8]
	run.StartedAt = time.Now().UTC()
	run.Context.GasPriceGwei = *gasGwei
	run.Context.ETHToUSD = *ethUSD
	run.Context.RuleImpactThreshold = cfg.Rules.ImpactThreshold
	run.Context.DisabledRules = cfg.Rules.Disabled

	// Gas annotate
	gas.Annotate(&run)

	// Rules
	findings, err := rules.Evaluate(&run)
	if err != nil {
		slog.Error("rule evaluation failed", "err", err)
		os.Exit(1)
	}

	// Persist & report
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	// Stored waivers complement in-source allowance comments
	if ws, werr := db.ListWaivers(true); werr == nil && len(ws) > 0 {
		var waived int
		findings, waived = rules.ApplyWaivers(findings, ws)
		if waived > 0 {
			slog.Info("waivers applied", "waived", waived)
		}
	}
	run.Findings = findings

	if err := db.SaveRun(&run); err != nil {
		slog.Error("db save run error", "err", err)
		os.Exit(1)
	}

	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, &run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, &run)
	sarifPath := ""
	if *sarif {
		sarifPath, _ = reporting.WriteSARIF(run.ID, *outDir, &run)
	}
	logger.Info("analyze complete",
		"run", run.ID,
		"contracts", len(run.Contracts),
		"findings", len(run.Findings),
		"json", jsonPath,
		"html", htmlPath,
		"db", filepath.Clean(*dbPath),
	)
	fmt.Printf("Analyze OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n", run.ID, jsonPath, htmlPath)
	if sarifPath != "" {
		fmt.Printf("  SARIF: %s\n", sarifPath)
	}
	fmt.Printf("  DB: %s\n", filepath.Clean(*dbPath))
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	runID := fs.String("run", "", "Run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	sarif := fs.Bool("sarif", false, "Also write a SARIF report")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *runID == "" {
		fmt.Fprintln(os.Stderr, "report: --run is required")
		os.Exit(2)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	run, err := db.LoadRun(*runID)
	if err != nil {
		slog.Error("load run error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, &run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, &run)
	fmt.Printf("Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n", run.ID, jsonPath, htmlPath)
	if *sarif || cfg.Reporting.SARIF {
		p, _ := reporting.WriteSARIF(run.ID, *outDir, &run)
		fmt.Printf("  SARIF: %s\n", p)
	}
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	br, err := db.LoadRun(*base)
	if err != nil {
		slog.Error("load base run error", "err", err)
		os.Exit(1)
	}
	hr, err := db.LoadRun(*head)
	if err != nil {
		slog.Error("load head run error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	path, _ := reporting.WriteDiffJSON(*base, *head, *outDir, &br, &hr)
	fmt.Printf("Diff OK\n  %s\n", path)
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SessionDuration: time.Duration(cfg.Server.SessionHours) * time.Hour,
	}
	logger.Info("serving", "addr", *addr, "db", filepath.Clean(*dbPath))
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func rulesCmd(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	rulesPack := fs.String("rules-pack", "", "Extra YAML rules pack (optional)")
	_ = fs.Parse(args)

	if *rulesPack != "" {
		if _, err := rulesdsl.LoadAndRegister(*rulesPack); err != nil {
			fmt.Fprintln(os.Stderr, "rules: pack error:", err)
			os.Exit(1)
		}
	}
	for _, r := range rules.List() {
		fmt.Printf("%-24s %-6s/%-6s %s\n", r.ID, r.Impact, r.Confidence, r.Help)
	}
}

func userAddCmd(args []string) {
	fs := flag.NewFlagSet("user-add", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "Role: admin|viewer")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "user-add: --username and --password are required")
		os.Exit(2)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}

	hash, err := security.HashPassword(*password)
	if err != nil {
		slog.Error("hash error", "err", err)
		os.Exit(1)
	}
	id, err := db.CreateUser(*username, hash, *role)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("User OK\n  ID: %d\n  Username: %s\n  Role: %s\n", id, *username, *role)
}
