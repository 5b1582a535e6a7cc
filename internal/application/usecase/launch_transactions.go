// internal/application/usecase/launch_transactions.go
package usecase

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
)

// feeTransfer is the optional launch-fee instruction appended to the
// creation transaction in two-phase mode.
type feeTransfer struct {
	From     common.PublicKey
	To       common.PublicKey
	Lamports uint64
}

// createTokenParams carries everything needed for the creation transaction:
// mint account, mint initialisation and the immutable metadata account.
type createTokenParams struct {
	FeePayer     common.PublicKey
	Mint         common.PublicKey
	Issuer       common.PublicKey
	Blockhash    string
	RentLamports uint64

	Decimals uint8
	Name     string
	Symbol   string
	URI      string

	Fee *feeTransfer
}

func buildCreateTokenMessage(p createTokenParams) (types.Message, error) {
	metadataPubkey, err := token_metadata.GetTokenMetaPubkey(p.Mint)
	if err != nil {
		return types.Message{}, fmt.Errorf("GetTokenMetaPubkey: %w", err)
	}

	freezeAuth := p.Issuer
	instructions := []types.Instruction{
		// 1) mint account, paid by the fee payer
		system.CreateAccount(system.CreateAccountParam{
			From:     p.FeePayer,
			New:      p.Mint,
			Owner:    common.TokenProgramID,
			Lamports: p.RentLamports,
			Space:    token.MintAccountSize,
		}),
		// 2) initialise with the issuer as mint and freeze authority
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   p.Decimals,
			Mint:       p.Mint,
			MintAuth:   p.Issuer,
			FreezeAuth: &freezeAuth,
		}),
		// 3) metadata account, immutable from creation
		token_metadata.CreateMetadataAccountV3(
			token_metadata.CreateMetadataAccountV3Param{
				Metadata:                metadataPubkey,
				Mint:                    p.Mint,
				MintAuthority:           p.Issuer,
				UpdateAuthority:         p.Issuer,
				Payer:                   p.FeePayer,
				UpdateAuthorityIsSigner: true,
				IsMutable:               false,
				Data: token_metadata.DataV2{
					Name:                 p.Name,
					Symbol:               p.Symbol,
					Uri:                  p.URI,
					SellerFeeBasisPoints: 0,
					Creators: &[]token_metadata.Creator{
						{
							Address:  p.Issuer,
							Verified: true,
							Share:    100,
						},
					},
				},
				CollectionDetails: nil,
			},
		),
	}

	if p.Fee != nil && p.Fee.Lamports > 0 {
		instructions = append(instructions, system.Transfer(system.TransferParam{
			From:   p.Fee.From,
			To:     p.Fee.To,
			Amount: p.Fee.Lamports,
		}))
	}

	return types.NewMessage(types.NewMessageParam{
		FeePayer:        p.FeePayer,
		RecentBlockhash: p.Blockhash,
		Instructions:    instructions,
	}), nil
}

func buildCreateRecipientAccountMessage(issuer, owner, mint, ata common.PublicKey, blockhash string) types.Message {
	return types.NewMessage(types.NewMessageParam{
		FeePayer:        issuer,
		RecentBlockhash: blockhash,
		Instructions: []types.Instruction{
			associated_token_account.CreateAssociatedTokenAccount(
				associated_token_account.CreateAssociatedTokenAccountParam{
					Funder:                 issuer,
					Owner:                  owner,
					Mint:                   mint,
					AssociatedTokenAccount: ata,
				},
			),
		},
	})
}

func buildMintToMessage(issuer, mint, ata common.PublicKey, amount uint64, blockhash string) types.Message {
	return types.NewMessage(types.NewMessageParam{
		FeePayer:        issuer,
		RecentBlockhash: blockhash,
		Instructions: []types.Instruction{
			token.MintTo(token.MintToParam{
				Mint:   mint,
				To:     ata,
				Auth:   issuer,
				Amount: amount,
			}),
		},
	})
}

// buildRevokeMessage clears one authority of the mint. A nil NewAuth is
// irreversible on chain.
func buildRevokeMessage(issuer, mint common.PublicKey, authType token.AuthorityType, blockhash string) types.Message {
	return types.NewMessage(types.NewMessageParam{
		FeePayer:        issuer,
		RecentBlockhash: blockhash,
		Instructions: []types.Instruction{
			token.SetAuthority(token.SetAuthorityParam{
				Account:  mint,
				NewAuth:  nil,
				AuthType: authType,
				Auth:     issuer,
			}),
		},
	})
}
