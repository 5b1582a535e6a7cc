// internal/infra/solana/ledger_client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"golang.org/x/time/rate"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

var (
	ErrConfirmTimeout = errors.New("solana ledger: confirmation timed out")
	ErrTxFailed       = errors.New("solana ledger: transaction failed on chain")
	ErrRPCTimeout     = errors.New("solana ledger: rpc call timed out")
)

const (
	defaultConfirmTimeout = 60 * time.Second
	defaultPollInterval   = 750 * time.Millisecond
	defaultRPCTimeout     = 15 * time.Second
)

// LedgerConfig configures LedgerClient. Zero values fall back to defaults.
type LedgerConfig struct {
	RPCURL         string
	Commitment     string // processed | confirmed | finalized
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	// RPCTimeout bounds every single RPC call, including each status poll.
	RPCTimeout time.Duration
	// RPCPerSecond throttles outgoing RPC calls; <= 0 disables throttling.
	RPCPerSecond float64
}

// LedgerClient implements launch.LedgerGateway on top of the blocto RPC client.
type LedgerClient struct {
	RPC *client.Client

	Commitment     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	RPCTimeout     time.Duration

	limiter *rate.Limiter
}

var _ launch.LedgerGateway = (*LedgerClient)(nil)

// NewLedgerClient constructs the gateway. The RPC URL defaults to devnet.
func NewLedgerClient(cfg LedgerConfig) *LedgerClient {
	u := strings.TrimSpace(cfg.RPCURL)
	if u == "" {
		u = rpc.DevnetRPCEndpoint
	}
	c := &LedgerClient{
		RPC:            client.NewClient(u),
		Commitment:     normalizeCommitment(cfg.Commitment),
		ConfirmTimeout: cfg.ConfirmTimeout,
		PollInterval:   cfg.PollInterval,
		RPCTimeout:     cfg.RPCTimeout,
	}
	if c.RPCTimeout <= 0 {
		c.RPCTimeout = defaultRPCTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if cfg.RPCPerSecond > 0 {
		burst := int(cfg.RPCPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPCPerSecond), burst)
	}
	return c
}

// call bounds one RPC call by RPCTimeout and waits for the rate limiter
// inside that bound. The caller must call cancel.
func (c *LedgerClient) call(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	cctx, cancel := context.WithTimeout(ctx, c.RPCTimeout)
	if c.limiter != nil {
		if err := c.limiter.Wait(cctx); err != nil {
			cancel()
			return nil, nil, launch.NewLedgerError("", op, rpcErr(ctx, err))
		}
	}
	return cctx, cancel, nil
}

// rpcErr tags errors caused by the per-call deadline, as opposed to the
// caller's own context.
func rpcErr(parent context.Context, err error) error {
	if parent.Err() != nil {
		return err
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "would exceed context deadline") {
		return fmt.Errorf("%w: %v", ErrRPCTimeout, err)
	}
	return err
}

func (c *LedgerClient) LatestBlockhash(ctx context.Context) (string, error) {
	cctx, cancel, err := c.call(ctx, "latest_blockhash")
	if err != nil {
		return "", err
	}
	defer cancel()
	latest, err := c.RPC.GetLatestBlockhash(cctx)
	if err != nil {
		return "", launch.NewLedgerError("", "latest_blockhash", rpcErr(ctx, err))
	}
	return latest.Blockhash, nil
}

func (c *LedgerClient) MinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	cctx, cancel, err := c.call(ctx, "rent_exemption")
	if err != nil {
		return 0, err
	}
	defer cancel()
	lamports, err := c.RPC.GetMinimumBalanceForRentExemption(cctx, size)
	if err != nil {
		return 0, launch.NewLedgerError("", "rent_exemption", rpcErr(ctx, err))
	}
	return lamports, nil
}

func (c *LedgerClient) Submit(ctx context.Context, tx types.Transaction) (string, error) {
	cctx, cancel, err := c.call(ctx, "submit")
	if err != nil {
		return "", err
	}
	defer cancel()
	sig, err := c.RPC.SendTransaction(cctx, tx)
	if err != nil {
		return "", launch.NewLedgerError("", "submit", rpcErr(ctx, err))
	}
	log.Printf("[solana.ledger] submitted tx=%s", maskShort(sig))
	return sig, nil
}

// Confirm polls the signature status until it reaches the configured
// commitment. Exceeding ConfirmTimeout is a failure, not "unknown".
func (c *LedgerClient) Confirm(ctx context.Context, signature string) error {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return launch.NewLedgerError("", "confirm", errors.New("signature is empty"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		pctx, pcancel, err := c.call(ctx, "confirm")
		if err != nil {
			return launch.NewLedgerError("", "confirm", fmt.Errorf("%w: %s", ErrConfirmTimeout, maskShort(sig)))
		}
		st, err := c.RPC.GetSignatureStatus(pctx, sig)
		pcancel()
		if err != nil && ctx.Err() == nil {
			// transient RPC errors are retried until the deadline
			log.Printf("[solana.ledger] status poll error tx=%s err=%v", maskShort(sig), err)
		}
		if err == nil && st != nil {
			if st.Err != nil {
				return launch.NewLedgerError("", "confirm", fmt.Errorf("%w: %v", ErrTxFailed, st.Err))
			}
			if st.ConfirmationStatus != nil && commitmentReached(string(*st.ConfirmationStatus), c.Commitment) {
				log.Printf("[solana.ledger] confirmed tx=%s status=%s", maskShort(sig), string(*st.ConfirmationStatus))
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return launch.NewLedgerError("", "confirm", fmt.Errorf("%w: %s", ErrConfirmTimeout, maskShort(sig)))
		case <-ticker.C:
		}
	}
}

// GetAccount returns nil, nil when the account does not exist.
func (c *LedgerClient) GetAccount(ctx context.Context, address common.PublicKey) (*launch.AccountInfo, error) {
	cctx, cancel, err := c.call(ctx, "get_account")
	if err != nil {
		return nil, err
	}
	defer cancel()
	info, err := c.RPC.GetAccountInfo(cctx, address.ToBase58())
	if err != nil {
		if isAccountNotFound(err) {
			return nil, nil
		}
		return nil, launch.NewLedgerError("", "get_account", rpcErr(ctx, err))
	}
	if info.Lamports == 0 && info.Owner == (common.PublicKey{}) {
		return nil, nil
	}
	return &launch.AccountInfo{
		Lamports:   info.Lamports,
		Owner:      info.Owner,
		Executable: info.Executable,
		Data:       info.Data,
	}, nil
}

func (c *LedgerClient) DeriveAssociatedAccount(owner, mint common.PublicKey) (common.PublicKey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, launch.NewLedgerError("", "derive_associated_account", err)
	}
	return ata, nil
}

// ----------------------------------------------------------------------
// helpers
// ----------------------------------------------------------------------

var commitmentRank = map[string]int{
	"processed": 1,
	"confirmed": 2,
	"finalized": 3,
}

func normalizeCommitment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := commitmentRank[s]; ok {
		return s
	}
	return "confirmed"
}

func commitmentReached(got, want string) bool {
	return commitmentRank[strings.ToLower(got)] >= commitmentRank[normalizeCommitment(want)]
}

func isAccountNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "could not find account") ||
		strings.Contains(msg, "account does not exist")
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}
