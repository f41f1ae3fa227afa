package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"range-equity/server/engine"
	"range-equity/server/equity"
)

// Config is read from an optional YAML file (EQUITY_CONFIG) and then
// overridden by environment variables.
type Config struct {
	Port        string   `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	DatabaseURL string   `yaml:"database_url"`
	AutoMigrate bool     `yaml:"auto_migrate"`
	NATSURL     string   `yaml:"nats_url"`
	Debug       bool     `yaml:"debug"`

	Equity EquityConfig `yaml:"equity"`
}

type EquityConfig struct {
	Evaluator          string `yaml:"evaluator"` // fast|pure
	ExactCutoff        int64  `yaml:"exact_cutoff"`
	Workers            int    `yaml:"workers"`
	PreflopIterations  int    `yaml:"preflop_iterations"`
	PostflopIterations int    `yaml:"postflop_iterations"`
	MaxIterations      int    `yaml:"max_iterations"`
	TimeBudgetMS       int    `yaml:"time_budget_ms"`
}

func DefaultConfig() Config {
	return Config{
		Port:        "8080",
		CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		Equity: EquityConfig{
			Evaluator:          "fast",
			ExactCutoff:        equity.DefaultExactCutoff,
			Workers:            equity.DefaultWorkers,
			PreflopIterations:  equity.DefaultPreflopIterations,
			PostflopIterations: equity.DefaultPostflopIterations,
			MaxIterations:      equity.DefaultMaxIterations,
		},
	}
}

// LoadConfig starts from the defaults, applies the YAML file at path (if
// any) and then the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getenv("PORT", c.Port)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)
	if v := os.Getenv("AUTO_MIGRATE"); v != "" {
		c.AutoMigrate = asBool(v)
	}
	c.NATSURL = getenv("NATS_URL", c.NATSURL)
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = asBool(v)
	}

	e := &c.Equity
	e.Evaluator = getenv("EQUITY_EVALUATOR", e.Evaluator)
	if v := os.Getenv("EQUITY_EXACT_CUTOFF"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			e.ExactCutoff = n
		}
	}
	e.Workers = atoiDef(os.Getenv("EQUITY_WORKERS"), e.Workers)
	e.PreflopIterations = atoiDef(os.Getenv("EQUITY_PREFLOP_ITERATIONS"), e.PreflopIterations)
	e.PostflopIterations = atoiDef(os.Getenv("EQUITY_POSTFLOP_ITERATIONS"), e.PostflopIterations)
	e.MaxIterations = atoiDef(os.Getenv("EQUITY_MAX_ITERATIONS"), e.MaxIterations)
	e.TimeBudgetMS = atoiDef(os.Getenv("EQUITY_TIME_BUDGET_MS"), e.TimeBudgetMS)
}

// Engine builds the equity engine described by the config.
func (c Config) Engine() (*equity.Engine, error) {
	ev, err := engine.NewEvaluator(c.Equity.Evaluator)
	if err != nil {
		return nil, err
	}
	return equity.New(
		equity.WithEvaluator(ev),
		equity.WithExactCutoff(c.Equity.ExactCutoff),
		equity.WithWorkers(c.Equity.Workers),
		equity.WithIterations(c.Equity.PreflopIterations, c.Equity.PostflopIterations),
		equity.WithMaxIterations(c.Equity.MaxIterations),
		equity.WithTimeBudget(time.Duration(c.Equity.TimeBudgetMS)*time.Millisecond),
	), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
