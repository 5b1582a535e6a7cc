package launch

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	ErrNotASigner       = errors.New("launch: key is not a required signer of the transaction")
	ErrMissingSignature = errors.New("launch: transaction is missing a required signature")
	ErrBadSignature     = errors.New("launch: transaction carries an invalid signature")
)

// NewUnsignedTransaction wraps msg with one zeroed signature slot per required signer.
func NewUnsignedTransaction(msg types.Message) types.Transaction {
	n := int(msg.Header.NumRequireSignatures)
	sigs := make([]types.Signature, n)
	for i := range sigs {
		sigs[i] = make([]byte, ed25519.SignatureSize)
	}
	return types.Transaction{Signatures: sigs, Message: msg}
}

// RequiredSigners lists the accounts whose signatures the message requires,
// fee payer first.
func RequiredSigners(tx types.Transaction) []common.PublicKey {
	n := int(tx.Message.Header.NumRequireSignatures)
	if n > len(tx.Message.Accounts) {
		n = len(tx.Message.Accounts)
	}
	out := make([]common.PublicKey, n)
	copy(out, tx.Message.Accounts[:n])
	return out
}

func signerIndex(tx types.Transaction, pub common.PublicKey) int {
	for i, a := range RequiredSigners(tx) {
		if a == pub {
			return i
		}
	}
	return -1
}

// HasSigner reports whether pub is a required signer of tx.
func HasSigner(tx types.Transaction, pub common.PublicKey) bool {
	return signerIndex(tx, pub) >= 0
}

// SignTransaction places each signer's signature in its slot. Slots of
// signers not given are left untouched, so partial signing is allowed.
func SignTransaction(tx *types.Transaction, signers ...Signer) error {
	data, err := tx.Message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	for _, s := range signers {
		idx := signerIndex(*tx, s.PublicKey())
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotASigner, s.PublicKey().ToBase58())
		}
		for len(tx.Signatures) <= idx {
			tx.Signatures = append(tx.Signatures, make([]byte, ed25519.SignatureSize))
		}
		tx.Signatures[idx] = s.Sign(data)
	}
	return nil
}

// VerifySignatures checks that every required signature is present and valid.
func VerifySignatures(tx types.Transaction) error {
	data, err := tx.Message.Serialize()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	signers := RequiredSigners(tx)
	if len(tx.Signatures) < len(signers) {
		return ErrMissingSignature
	}
	for i, pub := range signers {
		sig := tx.Signatures[i]
		if len(sig) != ed25519.SignatureSize || isZero(sig) {
			return fmt.Errorf("%w: %s", ErrMissingSignature, pub.ToBase58())
		}
		if !ed25519.Verify(ed25519.PublicKey(pub.Bytes()), data, sig) {
			return fmt.Errorf("%w: %s", ErrBadSignature, pub.ToBase58())
		}
	}
	return nil
}

// EncodeTransaction serializes tx to base64 wire form for transport to a wallet.
func EncodeTransaction(tx types.Transaction) (string, error) {
	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransaction parses a base64 wire transaction returned by a wallet.
func DecodeTransaction(blob string) (types.Transaction, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return types.Transaction{}, NewValidationError("signedTransaction", "is required")
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return types.Transaction{}, NewValidationError("signedTransaction", "is not valid base64")
	}
	tx, err := types.TransactionDeserialize(raw)
	if err != nil {
		return types.Transaction{}, NewValidationError("signedTransaction", "is not a valid transaction")
	}
	return tx, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
