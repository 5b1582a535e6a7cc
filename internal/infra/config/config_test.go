package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LAUNCH_CONFIG_FILE", "")
	t.Setenv("TOKEN_DECIMALS", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SOLANA_RPC_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Standards.Decimals != 6 || cfg.Standards.TotalSupply != 1_000_000_000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Standards.SessionTTL != 90*time.Second {
		t.Fatalf("session ttl = %s", cfg.Standards.SessionTTL)
	}
	if cfg.SolanaRPCTimeout != 15*time.Second {
		t.Fatalf("rpc timeout = %s", cfg.SolanaRPCTimeout)
	}
	lc, err := cfg.LaunchConfig()
	if err != nil {
		t.Fatalf("LaunchConfig: %v", err)
	}
	if lc.FeeLamports() != 20_000_000 {
		t.Fatalf("fee lamports = %d", lc.FeeLamports())
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launch.yaml")
	body := "standards:\n  decimals: 9\n  totalSupply: 21000000\n  feeSol: \"0.5\"\n  sessionTtl: 2m\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LAUNCH_CONFIG_FILE", path)
	t.Setenv("TOKEN_DECIMALS", "")
	t.Setenv("TOKEN_TOTAL_SUPPLY", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("LAUNCH_FEE_SOL", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := cfg.Standards
	if st.Decimals != 9 || st.TotalSupply != 21_000_000 || st.SessionTTL != 2*time.Minute {
		t.Fatalf("file overlay not applied: %+v", st)
	}
	if st.FeeSOL != "0.1" {
		t.Fatalf("env should override file fee, got %s", st.FeeSOL)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("LAUNCH_CONFIG_FILE", "")
	t.Setenv("TOKEN_DECIMALS", "12")
	if _, err := Load(); err == nil {
		t.Fatalf("decimals 12 should be rejected")
	}

	t.Setenv("TOKEN_DECIMALS", "")
	t.Setenv("SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("bad duration should be rejected")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			SolanaCluster:   "devnet",
			Standards:       defaultStandards(),
			MetadataBackend: "inline",
			LaunchStore:     "memory",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := map[string]func(c *Config){
		"negative fee":        func(c *Config) { c.Standards.FeeSOL = "-1" },
		"fee not a number":    func(c *Config) { c.Standards.FeeSOL = "abc" },
		"supply overflow":     func(c *Config) { c.Standards.TotalSupply = 1 << 62; c.Standards.Decimals = 9 },
		"zero ttl":            func(c *Config) { c.Standards.SessionTTL = 0 },
		"bad treasury":        func(c *Config) { c.Standards.FeeTreasury = "not-an-address" },
		"arweave without url": func(c *Config) { c.MetadataBackend = "arweave" },
		"gcs without bucket":  func(c *Config) { c.MetadataBackend = "gcs" },
		"unknown store":       func(c *Config) { c.LaunchStore = "redis" },
		"postgres no dsn":     func(c *Config) { c.LaunchStore = "postgres" },
		"auth no project":     func(c *Config) { c.AuthRequired = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
