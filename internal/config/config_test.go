package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := Default().ACO.Opt().Iterations; got != 5000 {
		t.Fatalf("want 5000 default iterations, got %d", got)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "antroute.yaml")
	body := `
port: "9090"
maxNodes: 300
solveTimeout: 45s
aco:
  ants: 25
  beta: 3
  eliteAnts: 2
  eliteReinforcement: 15
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("RATE_BURST", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("env PORT should win, got %q", cfg.Port)
	}
	if cfg.RateBurst != 3 || cfg.MaxNodes != 300 || cfg.SolveTimeout != 45*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	oc := cfg.ACO.Opt()
	if oc.Ants != 25 || oc.Beta != 3 || oc.EliteAnts != 2 || oc.EliteReinforcement != 15 {
		t.Fatalf("unexpected aco section: %+v", oc)
	}
	if oc.Alpha != 1 || oc.Evaporation != 0.5 {
		t.Fatalf("unset aco fields should keep defaults: %+v", oc)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("aco:\n  evaporation: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "evaporation") {
		t.Fatalf("want evaporation error, got %v", err)
	}

	t.Setenv("WEBHOOK_MAX_ATTEMPTS", "many")
	if _, err := Load(""); err == nil {
		t.Fatalf("want error for non-numeric WEBHOOK_MAX_ATTEMPTS")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("want error for missing file")
	}
}

func TestApplyEnvAuth(t *testing.T) {
	env := map[string]string{
		"AUTH_MODE":        "hmac",
		"AUTH_HMAC_SECRET": "s3cret",
		"AUTH_JWKS_URL":    "",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Auth.Mode != "hmac" || cfg.Auth.HMACSecret != "s3cret" || cfg.Auth.JWKSURL != "" {
		t.Fatalf("unexpected auth section: %+v", cfg.Auth)
	}
	if Default().Auth.Mode != "off" {
		t.Fatalf("auth must be off by default")
	}
}
