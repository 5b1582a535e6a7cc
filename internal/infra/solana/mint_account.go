// internal/infra/solana/mint_account.go
package solana

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/token"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// MintReader reads and decodes SPL mint accounts through the ledger gateway.
type MintReader struct {
	Ledger launch.LedgerGateway
}

func NewMintReader(ledger launch.LedgerGateway) *MintReader {
	return &MintReader{Ledger: ledger}
}

// ReadMint returns launch.ErrMintNotFound when the account does not exist.
func (r *MintReader) ReadMint(ctx context.Context, mint common.PublicKey) (launch.MintState, error) {
	if r == nil || r.Ledger == nil {
		return launch.MintState{}, fmt.Errorf("mint reader: %w", launch.ErrNotConfigured)
	}
	info, err := r.Ledger.GetAccount(ctx, mint)
	if err != nil {
		return launch.MintState{}, err
	}
	if info == nil {
		return launch.MintState{}, launch.ErrMintNotFound
	}

	st, err := DecodeMintState(info.Owner, info.Data)
	if err != nil {
		return launch.MintState{}, err
	}
	st.Address = mint.ToBase58()

	if pda, err := token_metadata.GetTokenMetaPubkey(mint); err == nil {
		st.MetadataAddress = pda.ToBase58()
	}
	return st, nil
}

// DecodeMintState parses raw mint account data owned by the token program.
func DecodeMintState(owner common.PublicKey, data []byte) (launch.MintState, error) {
	if owner != common.TokenProgramID {
		return launch.MintState{}, fmt.Errorf("account is not owned by the token program (owner=%s)", owner.ToBase58())
	}
	acc, err := token.MintAccountFromData(data)
	if err != nil {
		return launch.MintState{}, fmt.Errorf("MintAccountFromData: %w", err)
	}

	st := launch.MintState{
		Supply:                 acc.Supply,
		Decimals:               acc.Decimals,
		Initialized:            acc.IsInitialized,
		MintAuthorityRevoked:   acc.MintAuthority == nil,
		FreezeAuthorityRevoked: acc.FreezeAuthority == nil,
	}
	if acc.MintAuthority != nil {
		st.MintAuthority = acc.MintAuthority.ToBase58()
	}
	if acc.FreezeAuthority != nil {
		st.FreezeAuthority = acc.FreezeAuthority.ToBase58()
	}
	return st, nil
}
