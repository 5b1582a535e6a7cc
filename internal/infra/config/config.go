// internal/infra/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// Config holds every environment setting of the service.
type Config struct {
	Port    string
	LogFile string

	// Solana
	SolanaRPCURL        string
	SolanaCluster       string
	SolanaCommitment    string
	SolanaRPCPerSecond  float64
	SolanaRPCTimeout    time.Duration
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
	ExplorerBaseURL     string

	// Issuer credential. Exactly one source is used, in this order:
	// Secret Manager name, file, inline value.
	IssuerSecretName string
	IssuerSecretFile string
	IssuerSecretKey  string

	// Token standards (overlayable from LAUNCH_CONFIG_FILE)
	Standards Standards

	// Sessions
	SessionMax int

	// Metadata pinning: arweave | gcs | inline
	MetadataBackend        string
	ArweaveBaseURL         string
	ArweaveAPIKey          string
	MetadataBucket         string
	MetadataPublishTimeout time.Duration

	// Launch records: memory | firestore | postgres
	LaunchStore              string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
	DatabaseURL              string

	// Notifications
	SendGridAPIKey string
	NotifyFrom     string
	NotifyTo       string

	// HTTP
	AuthRequired       bool
	FirebaseProjectID  string
	CORSAllowedOrigins []string
	MaxRequestBytes    int64
}

// Standards is the token standard every launch follows.
type Standards struct {
	Decimals            uint8         `yaml:"decimals"`
	TotalSupply         uint64        `yaml:"totalSupply"`
	FeeSOL              string        `yaml:"feeSol"`
	FeeTreasury         string        `yaml:"feeTreasury"`
	CollectFeeOnPrepare bool          `yaml:"collectFeeOnPrepare"`
	SessionTTL          time.Duration `yaml:"sessionTtl"`
}

func defaultStandards() Standards {
	return Standards{
		Decimals:    6,
		TotalSupply: 1_000_000_000,
		FeeSOL:      "0.02",
		SessionTTL:  90 * time.Second,
	}
}

// Load reads the environment. LAUNCH_CONFIG_FILE, when set, is read before
// the token-standard variables, which override it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getenvDefault("PORT", "8080"),
		LogFile: os.Getenv("LOG_FILE"),

		SolanaRPCURL:     os.Getenv("SOLANA_RPC_URL"),
		SolanaCluster:    getenvDefault("SOLANA_CLUSTER", "devnet"),
		SolanaCommitment: getenvDefault("SOLANA_COMMITMENT", "confirmed"),
		ExplorerBaseURL:  getenvDefault("EXPLORER_BASE_URL", "https://explorer.solana.com"),

		IssuerSecretName: os.Getenv("ISSUER_SECRET_NAME"),
		IssuerSecretFile: os.Getenv("ISSUER_SECRET_KEY_FILE"),
		IssuerSecretKey:  os.Getenv("ISSUER_SECRET_KEY"),

		Standards: defaultStandards(),

		MetadataBackend: strings.ToLower(getenvDefault("METADATA_BACKEND", "inline")),
		ArweaveBaseURL:  os.Getenv("ARWEAVE_BASE_URL"),
		ArweaveAPIKey:   os.Getenv("ARWEAVE_API_KEY"),
		MetadataBucket:  os.Getenv("METADATA_BUCKET"),

		LaunchStore:              strings.ToLower(getenvDefault("LAUNCH_STORE", "memory")),
		FirestoreProjectID:       getenvDefault("FIRESTORE_PROJECT_ID", os.Getenv("GCP_PROJECT_ID")),
		FirestoreCredentialsFile: os.Getenv("FIRESTORE_CREDENTIALS_FILE"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		NotifyFrom:     os.Getenv("NOTIFY_FROM"),
		NotifyTo:       os.Getenv("NOTIFY_TO"),

		FirebaseProjectID:  getenvDefault("FIREBASE_PROJECT_ID", os.Getenv("GCP_PROJECT_ID")),
		CORSAllowedOrigins: splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
	}

	if path := strings.TrimSpace(os.Getenv("LAUNCH_CONFIG_FILE")); path != "" {
		if err := cfg.loadStandardsFile(path); err != nil {
			return nil, err
		}
	}

	var p parser
	cfg.SolanaRPCPerSecond = p.floatVar("SOLANA_RPC_RPS", 0)
	cfg.SolanaRPCTimeout = p.durationVar("SOLANA_RPC_TIMEOUT", 15*time.Second)
	cfg.ConfirmTimeout = p.durationVar("CONFIRM_TIMEOUT", 60*time.Second)
	cfg.ConfirmPollInterval = p.durationVar("CONFIRM_POLL_INTERVAL", 750*time.Millisecond)
	cfg.SessionMax = p.intVar("SESSION_MAX", 10000)
	cfg.MetadataPublishTimeout = p.durationVar("METADATA_PUBLISH_TIMEOUT", 20*time.Second)
	cfg.AuthRequired = p.boolVar("AUTH_REQUIRED", false)
	cfg.MaxRequestBytes = int64(p.intVar("MAX_REQUEST_BYTES", 8<<20))

	st := &cfg.Standards
	if d := p.intVar("TOKEN_DECIMALS", int(st.Decimals)); d < 0 || d > 9 {
		p.fail("TOKEN_DECIMALS", strconv.Itoa(d), fmt.Errorf("must be between 0 and 9"))
	} else {
		st.Decimals = uint8(d)
	}
	st.TotalSupply = p.uintVar("TOKEN_TOTAL_SUPPLY", st.TotalSupply)
	st.FeeSOL = getenvDefault("LAUNCH_FEE_SOL", st.FeeSOL)
	st.FeeTreasury = getenvDefault("FEE_TREASURY", st.FeeTreasury)
	st.CollectFeeOnPrepare = p.boolVar("COLLECT_FEE_ON_PREPARE", st.CollectFeeOnPrepare)
	st.SessionTTL = p.durationVar("SESSION_TTL", st.SessionTTL)

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

func (c *Config) loadStandardsFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read launch config file: %w", err)
	}
	var doc struct {
		Standards Standards `yaml:"standards"`
	}
	doc.Standards = c.Standards
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse launch config file %s: %w", path, err)
	}
	c.Standards = doc.Standards
	return nil
}

// Validate checks ranges once at startup.
func (c *Config) Validate() error {
	if c.Standards.Decimals > 9 {
		return fmt.Errorf("config: TOKEN_DECIMALS must be <= 9 (got %d)", c.Standards.Decimals)
	}
	if c.Standards.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be > 0")
	}
	if _, err := c.LaunchConfig(); err != nil {
		return err
	}
	switch c.MetadataBackend {
	case "inline":
	case "arweave":
		if c.ArweaveBaseURL == "" {
			return fmt.Errorf("config: METADATA_BACKEND=arweave requires ARWEAVE_BASE_URL")
		}
	case "gcs":
		if c.MetadataBucket == "" {
			return fmt.Errorf("config: METADATA_BACKEND=gcs requires METADATA_BUCKET")
		}
	default:
		return fmt.Errorf("config: unknown METADATA_BACKEND %q", c.MetadataBackend)
	}
	switch c.LaunchStore {
	case "memory":
	case "firestore":
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("config: LAUNCH_STORE=firestore requires FIRESTORE_PROJECT_ID")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: LAUNCH_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown LAUNCH_STORE %q", c.LaunchStore)
	}
	if c.AuthRequired && c.FirebaseProjectID == "" {
		return fmt.Errorf("config: AUTH_REQUIRED requires FIREBASE_PROJECT_ID")
	}
	return nil
}

// LaunchConfig converts the token standard for the usecase layer.
func (c *Config) LaunchConfig() (usecase.LaunchConfig, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.Standards.FeeSOL))
	if err != nil {
		return usecase.LaunchConfig{}, fmt.Errorf("config: LAUNCH_FEE_SOL %q: %w", c.Standards.FeeSOL, err)
	}

	var treasury common.PublicKey
	if s := strings.TrimSpace(c.Standards.FeeTreasury); s != "" {
		if treasury, err = launch.ParseAddress("FEE_TREASURY", s); err != nil {
			return usecase.LaunchConfig{}, fmt.Errorf("config: %w", err)
		}
	}

	lc := usecase.LaunchConfig{
		Decimals:            c.Standards.Decimals,
		TotalSupply:         c.Standards.TotalSupply,
		Fee:                 fee,
		FeeTreasury:         treasury,
		CollectFeeOnPrepare: c.Standards.CollectFeeOnPrepare,
		SessionTTL:          c.Standards.SessionTTL,
		Cluster:             c.SolanaCluster,
		ExplorerBaseURL:     c.ExplorerBaseURL,
	}
	if err := lc.Validate(); err != nil {
		return usecase.LaunchConfig{}, err
	}
	return lc, nil
}

// HasIssuerSecret reports whether any issuer credential source is set.
func (c *Config) HasIssuerSecret() bool {
	return c.IssuerSecretName != "" || c.IssuerSecretFile != "" || c.IssuerSecretKey != ""
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
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

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: %s=%q: %w", key, v, err)
	}
}

func (p *parser) intVar(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) uintVar(key string, def uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) floatVar(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) boolVar(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) durationVar(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
