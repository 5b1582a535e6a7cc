// internal/application/usecase/launch_query_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// MintStateReader decodes an on-chain mint account.
type MintStateReader interface {
	ReadMint(ctx context.Context, mint common.PublicKey) (launch.MintState, error)
}

// TokenStatus combines the on-chain view of a mint with the local launch record.
type TokenStatus struct {
	Mint        launch.MintState `json:"mint"`
	Record      *launch.Record   `json:"record,omitempty"`
	Immutable   bool             `json:"immutable"`
	ExplorerURL string           `json:"explorerUrl"`
}

type Limits struct {
	NameMaxLength        int `json:"nameMaxLength"`
	SymbolMaxLength      int `json:"symbolMaxLength"`
	DescriptionMaxLength int `json:"descriptionMaxLength"`
	ImageMaxBytes        int `json:"imageMaxBytes"`
}

// Standards describes what every launch produces.
type Standards struct {
	Decimals               uint8           `json:"decimals"`
	TotalSupply            uint64          `json:"totalSupply,string"`
	RawSupply              uint64          `json:"rawSupply,string"`
	Fee                    decimal.Decimal `json:"feeSol"`
	FeeCollectedOnPrepare  bool            `json:"feeCollectedOnPrepare"`
	MetadataMutable        bool            `json:"metadataMutable"`
	MintAuthorityRevoked   bool            `json:"mintAuthorityRevoked"`
	FreezeAuthorityRevoked bool            `json:"freezeAuthorityRevoked"`
	Modes                  []launch.Mode   `json:"modes"`
	Cluster                string          `json:"cluster"`
	SessionTTLSeconds      int64           `json:"sessionTtlSeconds"`
	Limits                 Limits          `json:"limits"`
}

type Statistics struct {
	launch.Stats
	LiveSessions int `json:"liveSessions"`
}

// LaunchQueryUsecase serves read-only projections. None of them touch the
// launch pipeline.
type LaunchQueryUsecase struct {
	cfg      LaunchConfig
	mints    MintStateReader
	records  launch.RecordRepository
	sessions launch.SessionStore
}

func NewLaunchQueryUsecase(
	cfg LaunchConfig,
	mints MintStateReader,
	records launch.RecordRepository,
	sessions launch.SessionStore,
) *LaunchQueryUsecase {
	return &LaunchQueryUsecase{
		cfg:      cfg,
		mints:    mints,
		records:  records,
		sessions: sessions,
	}
}

func (q *LaunchQueryUsecase) Status(ctx context.Context, mintAddress string) (*TokenStatus, error) {
	if q == nil || q.mints == nil {
		return nil, fmt.Errorf("mint reader: %w", launch.ErrNotConfigured)
	}
	mint, err := launch.ParseAddress("mint", mintAddress)
	if err != nil {
		return nil, err
	}

	st, err := q.mints.ReadMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	out := &TokenStatus{
		Mint:        st,
		Immutable:   st.MintAuthorityRevoked && st.FreezeAuthorityRevoked,
		ExplorerURL: q.cfg.ExplorerAddressURL(st.Address),
	}

	if q.records != nil {
		rec, err := q.records.GetByMint(ctx, st.Address)
		switch {
		case err == nil:
			out.Record = &rec
		case errors.Is(err, launch.ErrRecordNotFound):
		default:
			return nil, fmt.Errorf("get launch record: %w", err)
		}
	}
	return out, nil
}

func (q *LaunchQueryUsecase) Standards() Standards {
	raw, _ := q.cfg.RawSupply()
	return Standards{
		Decimals:               q.cfg.Decimals,
		TotalSupply:            q.cfg.TotalSupply,
		RawSupply:              raw,
		Fee:                    q.cfg.Fee,
		FeeCollectedOnPrepare:  q.cfg.CollectFeeOnPrepare,
		MetadataMutable:        false,
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: true,
		Modes:                  []launch.Mode{launch.ModeIssuerSigns, launch.ModeUserSigns},
		Cluster:                q.cfg.cluster(),
		SessionTTLSeconds:      int64(q.cfg.sessionTTL().Seconds()),
		Limits: Limits{
			NameMaxLength:        launch.MaxNameLen,
			SymbolMaxLength:      launch.MaxSymbolLen,
			DescriptionMaxLength: launch.MaxDescriptionLen,
			ImageMaxBytes:        launch.MaxImageBytes,
		},
	}
}

func (q *LaunchQueryUsecase) Statistics(ctx context.Context) (*Statistics, error) {
	out := &Statistics{Stats: launch.Stats{ByMode: map[launch.Mode]int{}, FeesCharged: decimal.Zero}}
	if q.records != nil {
		st, err := q.records.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("launch stats: %w", err)
		}
		out.Stats = st
	}
	if q.sessions != nil {
		out.LiveSessions = q.sessions.Len()
	}
	return out, nil
}
