package launch

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// ========================================
// Ledger
// ========================================

// AccountInfo is the subset of an on-chain account the pipeline reads.
type AccountInfo struct {
	Lamports   uint64
	Owner      common.PublicKey
	Executable bool
	Data       []byte
}

// LedgerGateway is the narrow capability surface over the ledger client.
// Every failure is a *LedgerError.
type LedgerGateway interface {
	LatestBlockhash(ctx context.Context) (string, error)
	MinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error)

	Submit(ctx context.Context, tx types.Transaction) (string, error)
	// Confirm blocks until the signature reaches the configured commitment
	// or the confirmation timeout elapses.
	Confirm(ctx context.Context, signature string) error

	// GetAccount returns nil, nil when the account does not exist.
	GetAccount(ctx context.Context, address common.PublicKey) (*AccountInfo, error)
	DeriveAssociatedAccount(owner, mint common.PublicKey) (common.PublicKey, error)
}

// ========================================
// Keys
// ========================================

// Signer signs ledger messages without exposing key material.
type Signer interface {
	PublicKey() common.PublicKey
	Sign(message []byte) []byte
}

// KeyCustodian holds the issuer credential for the life of the service.
type KeyCustodian interface {
	SigningIdentity() Signer
}

// ========================================
// Metadata
// ========================================

// MetadataInput is what the publisher needs to build and pin the document.
type MetadataInput struct {
	Name        string
	Symbol      string
	Description string
	Image       ImageInput
	Socials     Socials
}

// MetadataPublisher never fails: on any backend problem it returns an inline record.
type MetadataPublisher interface {
	Publish(ctx context.Context, in MetadataInput) MetadataRecord
}

// ========================================
// Sessions
// ========================================

type SessionStore interface {
	// Create stores s under a fresh identifier and returns it.
	Create(ctx context.Context, s Session) (string, error)
	// Consume atomically reads and invalidates a session.
	Consume(ctx context.Context, id string) (Session, bool)
	Len() int
}

// ========================================
// Records / notifications
// ========================================

type RecordRepository interface {
	Save(ctx context.Context, r Record) error
	GetByMint(ctx context.Context, mintAddress string) (Record, error)
	Stats(ctx context.Context) (Stats, error)
}

type Notifier interface {
	LaunchCompleted(ctx context.Context, req Request, res Result) error
}
