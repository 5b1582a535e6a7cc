package launch

import (
	"errors"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"
)

// acct adapts a types.Account to the Signer port.
type acct struct{ a types.Account }

func (s acct) PublicKey() common.PublicKey { return s.a.PublicKey }
func (s acct) Sign(msg []byte) []byte      { return s.a.Sign(msg) }

// twoSignerTx needs signatures from payer and newAcct.
func twoSignerTx(payer, newAcct types.Account) types.Transaction {
	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer.PublicKey,
		RecentBlockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
		Instructions: []types.Instruction{
			system.CreateAccount(system.CreateAccountParam{
				From:     payer.PublicKey,
				New:      newAcct.PublicKey,
				Owner:    common.TokenProgramID,
				Lamports: 1_461_600,
				Space:    82,
			}),
		},
	})
	return NewUnsignedTransaction(msg)
}

func TestPartialSigningThenVerify(t *testing.T) {
	payer, mint := types.NewAccount(), types.NewAccount()
	tx := twoSignerTx(payer, mint)

	if !HasSigner(tx, mint.PublicKey) || !HasSigner(tx, payer.PublicKey) {
		t.Fatalf("both accounts should be required signers")
	}
	if HasSigner(tx, types.NewAccount().PublicKey) {
		t.Fatalf("stranger reported as signer")
	}

	if err := SignTransaction(&tx, acct{mint}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := VerifySignatures(tx); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("want missing signature, got %v", err)
	}

	if err := SignTransaction(&tx, acct{payer}); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := VerifySignatures(tx); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// a signature over a different message must not verify
	tx.Signatures[0], tx.Signatures[1] = tx.Signatures[1], tx.Signatures[0]
	if err := VerifySignatures(tx); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("want bad signature, got %v", err)
	}
}

func TestSignRejectsNonSigner(t *testing.T) {
	tx := twoSignerTx(types.NewAccount(), types.NewAccount())
	if err := SignTransaction(&tx, acct{types.NewAccount()}); !errors.Is(err, ErrNotASigner) {
		t.Fatalf("want ErrNotASigner, got %v", err)
	}
}

func TestEncodeDecodeKeepsSignatures(t *testing.T) {
	payer, mint := types.NewAccount(), types.NewAccount()
	tx := twoSignerTx(payer, mint)
	if err := SignTransaction(&tx, acct{payer}, acct{mint}); err != nil {
		t.Fatal(err)
	}
	blob, err := EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeTransaction(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := VerifySignatures(back); err != nil {
		t.Fatalf("decoded tx does not verify: %v", err)
	}
}

func TestDecodeTransactionRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "!!!", "AQ=="} {
		_, err := DecodeTransaction(in)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "signedTransaction" {
			t.Fatalf("%q: want validation error, got %v", in, err)
		}
	}
}
