package shared

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./solguard.db"
	} `yaml:"database"`

	Analysis struct {
		Sources      []string `yaml:"sources"`        // ["./src"]
		RulePacks    []string `yaml:"rule_packs"`     // extra YAML rule packs
		GasPriceGwei float64  `yaml:"gas_price_gwei"` // 0 (optional)
		ETHToUSD     float64  `yaml:"eth_to_usd"`     // 0 (optional)
	} `yaml:"analysis"`

	Rules struct {
		ImpactThreshold string   `yaml:"impact_threshold"` // "LOW"
		Disabled        []string `yaml:"disabled"`
	} `yaml:"rules"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
		SARIF  bool   `yaml:"sarif"`   // also write .sarif next to .json
	} `yaml:"reporting"`

	Server struct {
		Addr           string   `yaml:"addr"` // ":8780"
		AllowedOrigins []string `yaml:"allowed_origins"`
		SessionHours   int      `yaml:"session_hours"` // 12
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./solguard.db"
	c.Rules.ImpactThreshold = "LOW"
	c.Reporting.OutDir = "./reports"
	c.Server.Addr = ":8780"
	c.Server.SessionHours = 12
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("SOLGUARD_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SOLGUARD_GAS_PRICE_GWEI"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.GasPriceGwei = f
		}
	}
	if v := os.Getenv("SOLGUARD_ETH_TO_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.ETHToUSD = f
		}
	}
	if v := os.Getenv("SOLGUARD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SOLGUARD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SOLGUARD_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	return c, nil
}
