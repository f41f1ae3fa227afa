package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.Equity.ExactCutoff != 1_500_000 || cfg.Equity.Workers != 4 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Equity.PreflopIterations != 20000 || cfg.Equity.PostflopIterations != 30000 {
		t.Fatalf("unexpected iteration defaults %+v", cfg.Equity)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected the two local origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadConfigYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equity.yaml")
	yaml := `
port: "9000"
debug: true
cors_origins: ["https://a.example"]
equity:
  evaluator: pure
  workers: 2
  exact_cutoff: 1000
  time_budget_ms: 250
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EQUITY_WORKERS", "8")
	t.Setenv("CORS_ORIGINS", "https://b.example, https://c.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" || !cfg.Debug || cfg.Equity.Evaluator != "pure" || cfg.Equity.ExactCutoff != 1000 {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.Equity.Workers != 8 {
		t.Fatalf("env should override yaml, got %d workers", cfg.Equity.Workers)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://c.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.Equity.PostflopIterations != 30000 {
		t.Fatalf("unset yaml keys should keep defaults, got %d", cfg.Equity.PostflopIterations)
	}

	e, err := cfg.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if e.Evaluator().Name() != "pure" {
		t.Fatalf("expected pure evaluator, got %s", e.Evaluator().Name())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("equity: [1, 2"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
	cfg := DefaultConfig()
	cfg.Equity.Evaluator = "gpu"
	if _, err := cfg.Engine(); err == nil {
		t.Fatalf("expected unknown evaluator error")
	}
}

func TestEnvHelpers(t *testing.T) {
	if atoiDef("x", 3) != 3 || atoiDef("", 4) != 4 || atoiDef("7", 0) != 7 {
		t.Fatalf("atoiDef")
	}
	if !asBool(" Yes ") || asBool("0") {
		t.Fatalf("asBool")
	}
	if got := splitList(" a, ,b "); len(got) != 2 || got[1] != "b" {
		t.Fatalf("splitList = %v", got)
	}
}
