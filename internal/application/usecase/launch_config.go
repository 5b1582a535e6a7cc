// internal/application/usecase/launch_config.go
package usecase

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

const (
	lamportsPerSOLExp = 9
	maxDecimals       = 9

	// A prepared transaction pins a blockhash that expires after roughly
	// 150 slots (60-90s), so a session cannot usefully outlive it.
	defaultSessionTTL      = 90 * time.Second
	defaultExplorerBaseURL = "https://explorer.solana.com"
)

// LaunchConfig is the token standard every launch follows. It is passed in
// explicitly; nothing here is read from the environment.
type LaunchConfig struct {
	Decimals uint8
	// TotalSupply is in whole tokens; the raw amount is TotalSupply * 10^Decimals.
	TotalSupply uint64
	// Fee is in SOL.
	Fee decimal.Decimal
	// FeeTreasury receives the fee in two-phase mode. Zero means the issuer.
	FeeTreasury common.PublicKey
	// CollectFeeOnPrepare appends a fee transfer from the recipient to the
	// creation transaction built by Prepare.
	CollectFeeOnPrepare bool

	SessionTTL      time.Duration
	Cluster         string
	ExplorerBaseURL string
}

// Validate checks ranges once at startup.
func (c LaunchConfig) Validate() error {
	if c.Decimals > maxDecimals {
		return fmt.Errorf("launch config: decimals must be <= %d (got %d)", maxDecimals, c.Decimals)
	}
	if c.TotalSupply == 0 {
		return fmt.Errorf("launch config: total supply must be > 0")
	}
	if _, err := c.RawSupply(); err != nil {
		return err
	}
	if c.Fee.IsNegative() {
		return fmt.Errorf("launch config: fee must be >= 0 (got %s)", c.Fee.String())
	}
	return nil
}

// RawSupply returns the supply in base units.
func (c LaunchConfig) RawSupply() (uint64, error) {
	raw := decimal.NewFromBigInt(new(big.Int).SetUint64(c.TotalSupply), 0).
		Shift(int32(c.Decimals)).
		BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("launch config: total supply %d with %d decimals overflows u64", c.TotalSupply, c.Decimals)
	}
	return raw.Uint64(), nil
}

// FeeLamports converts Fee to lamports, rounding down.
func (c LaunchConfig) FeeLamports() uint64 {
	if !c.Fee.IsPositive() {
		return 0
	}
	l := c.Fee.Shift(lamportsPerSOLExp).Floor().BigInt()
	if !l.IsUint64() {
		return 0
	}
	return l.Uint64()
}

func (c LaunchConfig) sessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return defaultSessionTTL
	}
	return c.SessionTTL
}

func (c LaunchConfig) cluster() string {
	s := strings.ToLower(strings.TrimSpace(c.Cluster))
	if s == "" {
		return "devnet"
	}
	return s
}

// ExplorerTxURL is a human-followable link to a transaction on the configured cluster.
func (c LaunchConfig) ExplorerTxURL(signature string) string {
	return c.explorerURL("tx", signature)
}

// ExplorerAddressURL links to an account (mint, token account) on the configured cluster.
func (c LaunchConfig) ExplorerAddressURL(address string) string {
	return c.explorerURL("address", address)
}

func (c LaunchConfig) explorerURL(kind, id string) string {
	base := strings.TrimRight(strings.TrimSpace(c.ExplorerBaseURL), "/")
	if base == "" {
		base = defaultExplorerBaseURL
	}
	u := fmt.Sprintf("%s/%s/%s", base, kind, id)
	switch cl := c.cluster(); cl {
	case "mainnet", "mainnet-beta":
		return u
	default:
		return u + "?cluster=" + cl
	}
}
