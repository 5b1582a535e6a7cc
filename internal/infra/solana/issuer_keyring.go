// internal/infra/solana/issuer_keyring.go
package solana

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// IssuerKeyring holds the issuer wallet (fee payer, mint/freeze/update authority).
// It signs on behalf of callers and never hands out the private key.
type IssuerKeyring struct {
	account types.Account
}

var (
	_ launch.KeyCustodian = (*IssuerKeyring)(nil)
	_ launch.Signer       = (*IssuerKeyring)(nil)
)

// NewIssuerKeyring decodes raw (JSON byte array or base-58) into a keyring.
func NewIssuerKeyring(raw []byte) (*IssuerKeyring, error) {
	acc, err := DecodeSecretKey(raw)
	if err != nil {
		return nil, err
	}
	return &IssuerKeyring{account: acc}, nil
}

func (k *IssuerKeyring) SigningIdentity() launch.Signer { return k }

func (k *IssuerKeyring) PublicKey() common.PublicKey { return k.account.PublicKey }

func (k *IssuerKeyring) Address() string { return k.account.PublicKey.ToBase58() }

func (k *IssuerKeyring) Sign(message []byte) []byte { return k.account.Sign(message) }

func (k *IssuerKeyring) String() string { return "issuer(" + k.Address() + ")" }

// ----------------------------------------------------------------------
// Decoding
// ----------------------------------------------------------------------

// DecodeSecretKey accepts either a solana-keygen JSON array ("[12,34,...]")
// or a base-58 string. Arrays are recognised by their bracket delimiters;
// everything else is treated as base-58. Both 64-byte secret keys and
// 32-byte seeds are accepted.
func DecodeSecretKey(raw []byte) (types.Account, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return types.Account{}, &launch.CredentialDecodeError{Reason: "secret is empty"}
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		b, err := decodeKeypairJSON([]byte(s))
		if err != nil {
			return types.Account{}, &launch.CredentialDecodeError{Format: "json", Reason: err.Error()}
		}
		return accountFromKeyBytes("json", b)
	}

	b, err := base58.Decode(s)
	if err != nil {
		return types.Account{}, &launch.CredentialDecodeError{Format: "base58", Reason: "malformed base58 string"}
	}
	return accountFromKeyBytes("base58", b)
}

// decodeKeypairJSON restores the byte form of a solana-keygen keypair file.
func decodeKeypairJSON(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("unmarshal keypair json: %w", err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("byte out of range at %d: %d", i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

func accountFromKeyBytes(format string, b []byte) (types.Account, error) {
	var priv ed25519.PrivateKey
	switch len(b) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(b)
	case ed25519.PrivateKeySize:
		priv = ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		// the trailing half must be the public key of the seed
		if !bytes.Equal(priv[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
			return types.Account{}, &launch.CredentialDecodeError{Format: format, Reason: "public half does not match secret seed"}
		}
	default:
		return types.Account{}, &launch.CredentialDecodeError{
			Format: format,
			Reason: fmt.Sprintf("unexpected secret key length: got %d, want %d", len(b), ed25519.PrivateKeySize),
		}
	}

	pub := priv.Public().(ed25519.PublicKey)
	return types.Account{
		PublicKey:  common.PublicKeyFromBytes(pub),
		PrivateKey: priv,
	}, nil
}

// ----------------------------------------------------------------------
// Secret sources
// ----------------------------------------------------------------------

// SecretSource yields the raw issuer secret.
type SecretSource interface {
	Load(ctx context.Context) ([]byte, error)
	Describe() string
}

// InlineSecret is a secret passed directly through configuration (ISSUER_SECRET_KEY).
type InlineSecret string

func (s InlineSecret) Load(context.Context) ([]byte, error) { return []byte(s), nil }
func (s InlineSecret) Describe() string                     { return "inline" }

// FileSecret reads a solana-keygen keypair file.
type FileSecret string

func (f FileSecret) Load(context.Context) ([]byte, error) {
	b, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}
	return b, nil
}

func (f FileSecret) Describe() string { return "file:" + string(f) }

// SecretManagerSecret reads a Secret Manager version such as
// "projects/<PROJECT_ID>/secrets/<SECRET_ID>/versions/latest".
type SecretManagerSecret struct {
	Client *secretmanager.Client
	Name   string
}

func (s SecretManagerSecret) Load(ctx context.Context) ([]byte, error) {
	if s.Client == nil || strings.TrimSpace(s.Name) == "" {
		return nil, fmt.Errorf("secret manager source: %w", launch.ErrNotConfigured)
	}
	resp, err := s.Client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{
		Name: s.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("AccessSecretVersion: %w", err)
	}
	if resp == nil || resp.Payload == nil {
		return nil, fmt.Errorf("AccessSecretVersion: empty payload")
	}
	return resp.Payload.Data, nil
}

func (s SecretManagerSecret) Describe() string { return "secretmanager:" + s.Name }

// LoadIssuerKeyring reads the secret from src and decodes it. Only the
// public key is logged.
func LoadIssuerKeyring(ctx context.Context, src SecretSource) (*IssuerKeyring, error) {
	if src == nil {
		return nil, fmt.Errorf("issuer secret source: %w", launch.ErrNotConfigured)
	}
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	k, err := NewIssuerKeyring(raw)
	if err != nil {
		return nil, err
	}

	log.Printf("[solana.keyring] loaded issuer wallet source=%s pubkey=%s", src.Describe(), k.Address())
	return k, nil
}
