// internal/domain/launch/entity.go
package launch

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// Policy
const (
	// Name and symbol are capped in bytes, as Metaplex DataV2 stores them.
	MaxNameLen        = 32
	MaxSymbolLen      = 10
	MaxDescriptionLen = 200
	MaxSocialLen      = 200
	MaxImageBytes     = 5 << 20

	// Metaplex DataV2.uri is capped on chain.
	MaxURILen = 200

	addressLen = 32
)

// Mode is the tagged choice between the two orchestration variants.
type Mode string

const (
	// ModeIssuerSigns is the legacy single-shot path: the issuer signs every transaction.
	ModeIssuerSigns Mode = "issuer_signs"
	// ModeUserSigns is the two-phase prepare/execute path: the recipient co-signs creation.
	ModeUserSigns Mode = "user_signs"
)

// Step names one stage of the launch pipeline. Errors and records carry it
// so callers can tell which stage failed.
type Step string

const (
	StepValidate               Step = "validate"
	StepGenerateIdentity       Step = "generate_identity"
	StepPublishMetadata        Step = "publish_metadata"
	StepCreateToken            Step = "create_token"
	StepEnsureRecipientAccount Step = "ensure_recipient_account"
	StepMint                   Step = "mint"
	StepRevokeMintAuthority    Step = "revoke_mint_authority"
	StepRevokeFreezeAuthority  Step = "revoke_freeze_authority"
	StepAssemble               Step = "assemble"
)

// ============================================================
// Request
// ============================================================

// ImageInput is either inline bytes or an already external locator.
// Data wins when both are set.
type ImageInput struct {
	Data        []byte
	ContentType string
	URL         string
}

func (i ImageInput) HasData() bool { return len(i.Data) > 0 }

type Socials struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Discord  string `json:"discord,omitempty"`
}

func (s Socials) IsZero() bool {
	return s.Website == "" && s.Twitter == "" && s.Telegram == "" && s.Discord == ""
}

// Request is the user-supplied launch intent. It is never mutated once accepted;
// Normalized returns a trimmed copy.
type Request struct {
	Recipient   string
	Name        string
	Symbol      string
	Description string
	Image       ImageInput
	Socials     Socials

	// RequestedBy is the authenticated caller, when auth is enabled.
	RequestedBy string
}

// Normalized returns a copy with surrounding whitespace removed.
func (r Request) Normalized() Request {
	out := Request{
		Recipient:   strings.TrimSpace(r.Recipient),
		Name:        strings.TrimSpace(r.Name),
		Symbol:      strings.TrimSpace(r.Symbol),
		Description: strings.TrimSpace(r.Description),
		Image: ImageInput{
			Data:        r.Image.Data,
			ContentType: strings.TrimSpace(r.Image.ContentType),
			URL:         strings.TrimSpace(r.Image.URL),
		},
		Socials: Socials{
			Website:  strings.TrimSpace(r.Socials.Website),
			Twitter:  strings.TrimSpace(r.Socials.Twitter),
			Telegram: strings.TrimSpace(r.Socials.Telegram),
			Discord:  strings.TrimSpace(r.Socials.Discord),
		},
		RequestedBy: strings.TrimSpace(r.RequestedBy),
	}
	return out
}

// Validate checks shape, lengths and the recipient address. It touches no
// network and never mutates r.
func (r Request) Validate() error {
	n := r.Normalized()

	if n.Recipient == "" {
		return NewValidationError("recipient", "is required")
	}
	if !IsValidAddress(n.Recipient) {
		return NewValidationError("recipient", "is not a valid address")
	}

	if n.Name == "" {
		return NewValidationError("name", "is required")
	}
	if len(n.Name) > MaxNameLen {
		return NewValidationError("name", "must be at most 32 bytes")
	}
	if hasControl(n.Name) {
		return NewValidationError("name", "must not contain control characters")
	}

	if n.Symbol == "" {
		return NewValidationError("symbol", "is required")
	}
	if len(n.Symbol) > MaxSymbolLen {
		return NewValidationError("symbol", "must be at most 10 bytes")
	}
	if hasControl(n.Symbol) {
		return NewValidationError("symbol", "must not contain control characters")
	}

	if utf8.RuneCountInString(n.Description) > MaxDescriptionLen {
		return NewValidationError("description", "must be at most 200 characters")
	}

	if len(n.Image.Data) > MaxImageBytes {
		return NewValidationError("image", "is too large")
	}
	if !n.Image.HasData() && n.Image.URL != "" && !isExternalLocator(n.Image.URL) {
		return NewValidationError("imageUrl", "must be an http(s), ipfs or ar locator")
	}

	for field, v := range map[string]string{
		"website":  n.Socials.Website,
		"twitter":  n.Socials.Twitter,
		"telegram": n.Socials.Telegram,
		"discord":  n.Socials.Discord,
	} {
		if utf8.RuneCountInString(v) > MaxSocialLen {
			return NewValidationError(field, "is too long")
		}
	}

	return nil
}

// IsValidAddress reports whether s decodes to a 32-byte ed25519 public key.
func IsValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(b) == addressLen
}

// ParseAddress converts a validated base58 string to a public key.
func ParseAddress(field, s string) (common.PublicKey, error) {
	s = strings.TrimSpace(s)
	if !IsValidAddress(s) {
		return common.PublicKey{}, NewValidationError(field, "is not a valid address")
	}
	return common.PublicKeyFromString(s), nil
}

func hasControl(s string) bool {
	for _, c := range s {
		if unicode.IsControl(c) {
			return true
		}
	}
	return false
}

func isExternalLocator(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "http":
		return u.Host != ""
	case "ipfs", "ar":
		return true
	}
	return false
}

// ============================================================
// MintIdentity
// ============================================================

// MintIdentity is the keypair that becomes the new token's address.
// The private half never leaves this type.
type MintIdentity struct {
	account types.Account
}

func NewMintIdentity() *MintIdentity {
	return &MintIdentity{account: types.NewAccount()}
}

func (m *MintIdentity) PublicKey() common.PublicKey { return m.account.PublicKey }

func (m *MintIdentity) Address() string { return m.account.PublicKey.ToBase58() }

func (m *MintIdentity) Sign(message []byte) []byte { return m.account.Sign(message) }

func (m *MintIdentity) String() string { return m.Address() }

func (m *MintIdentity) MarshalJSON() ([]byte, error) { return json.Marshal(m.Address()) }

// ============================================================
// Metadata
// ============================================================

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// MetadataRecord is the published descriptive document and the URI it lives under.
type MetadataRecord struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Extensions  *Socials    `json:"extensions,omitempty"`

	URI    string `json:"-"`
	Inline bool   `json:"-"`

	// DescriptionTruncated is set when the inline locator had to shorten
	// the description to fit MaxURILen.
	DescriptionTruncated bool `json:"-"`
}

// ============================================================
// Session (two-phase only)
// ============================================================

// Session ties an opaque identifier to the prepared creation transaction.
// It holds only the public half of the mint identity.
type Session struct {
	ID         string
	Mint       common.PublicKey
	Recipient  common.PublicKey
	UnsignedTx []byte
	Message    []byte
	Metadata   MetadataRecord
	Request    Request
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ============================================================
// Result
// ============================================================

type FeePayer string

const (
	FeePayerIssuer    FeePayer = "issuer"
	FeePayerRecipient FeePayer = "recipient"
)

// Result is produced once per successful run.
type Result struct {
	Mode            Mode            `json:"mode"`
	MintAddress     string          `json:"mintAddress"`
	MetadataAddress string          `json:"metadataAddress"`
	TokenAccount    string          `json:"tokenAccount"`
	TotalSupply     uint64          `json:"totalSupply,string"`
	Decimals        uint8           `json:"decimals"`
	FeeCharged      decimal.Decimal `json:"feeCharged"`
	FeePayer        FeePayer        `json:"feePayer"`
	Signature       string          `json:"signature"`
	Signatures      map[Step]string `json:"signatures"`
	MetadataURI     string          `json:"metadataUri"`
	ExplorerURL     string          `json:"explorerUrl"`
}

// ============================================================
// Record (audit of one run)
// ============================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusCreated   Status = "created"
	StatusMinted    Status = "minted"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired" // prepared, session lapsed before execute
)

// Record is the persisted trace of a launch. It never carries key material.
type Record struct {
	MintAddress string          `json:"mintAddress"`
	Recipient   string          `json:"recipient"`
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	MetadataURI string          `json:"metadataUri"`
	Mode        Mode            `json:"mode"`
	Status      Status          `json:"status"`
	FailedStep  Step            `json:"failedStep,omitempty"`
	Error       string          `json:"error,omitempty"`
	Signatures  map[Step]string `json:"signatures,omitempty"`
	FeeCharged  decimal.Decimal `json:"feeCharged"`
	RequestedBy string          `json:"requestedBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Stats aggregates launch records.
type Stats struct {
	TotalLaunches int             `json:"totalLaunches"`
	Completed     int             `json:"completed"`
	Failed        int             `json:"failed"`
	Expired       int             `json:"expired"`
	InProgress    int             `json:"inProgress"`
	ByMode        map[Mode]int    `json:"byMode"`
	FeesCharged   decimal.Decimal `json:"feesCharged"`
}

// MintState is the decoded on-chain state of a mint, used by status reporting.
type MintState struct {
	Address                string `json:"address"`
	MetadataAddress        string `json:"metadataAddress"`
	Supply                 uint64 `json:"supply,string"`
	Decimals               uint8  `json:"decimals"`
	Initialized            bool   `json:"initialized"`
	MintAuthority          string `json:"mintAuthority,omitempty"`
	FreezeAuthority        string `json:"freezeAuthority,omitempty"`
	MintAuthorityRevoked   bool   `json:"mintAuthorityRevoked"`
	FreezeAuthorityRevoked bool   `json:"freezeAuthorityRevoked"`
}

// Add folds r into s. Fees count only for completed launches.
func (s *Stats) Add(r Record) {
	s.AddGroup(r.Mode, r.Status, 1, r.FeeCharged)
}

// AddGroup folds n records sharing mode and status. fees is their summed
// fee and is counted only for completed launches.
func (s *Stats) AddGroup(mode Mode, status Status, n int, fees decimal.Decimal) {
	if s.ByMode == nil {
		s.ByMode = map[Mode]int{}
	}
	s.TotalLaunches += n
	s.ByMode[mode] += n
	switch status {
	case StatusCompleted:
		s.Completed += n
		s.FeesCharged = s.FeesCharged.Add(fees)
	case StatusFailed:
		s.Failed += n
	case StatusExpired:
		s.Expired += n
	default:
		s.InProgress += n
	}
}
