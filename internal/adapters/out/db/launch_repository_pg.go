// internal/adapters/out/db/launch_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// LaunchSchema creates the token_launches table.
const LaunchSchema = `
CREATE TABLE IF NOT EXISTS token_launches (
  mint_address  TEXT PRIMARY KEY,
  recipient     TEXT NOT NULL,
  name          TEXT NOT NULL,
  symbol        TEXT NOT NULL,
  metadata_uri  TEXT NOT NULL DEFAULT '',
  mode          TEXT NOT NULL,
  status        TEXT NOT NULL,
  failed_step   TEXT NOT NULL DEFAULT '',
  error         TEXT NOT NULL DEFAULT '',
  signatures    JSONB NOT NULL DEFAULT '{}'::jsonb,
  fee_charged   NUMERIC(20, 9) NOT NULL DEFAULT 0,
  requested_by  TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);
ALTER TABLE token_launches ADD COLUMN IF NOT EXISTS requested_by TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS token_launches_status_idx ON token_launches (status);
`

type LaunchRepositoryPG struct {
	DB *sql.DB
}

var _ launch.RecordRepository = (*LaunchRepositoryPG)(nil)

func NewLaunchRepositoryPG(db *sql.DB) *LaunchRepositoryPG {
	return &LaunchRepositoryPG{DB: db}
}

// Migrate applies LaunchSchema.
func (r *LaunchRepositoryPG) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, LaunchSchema); err != nil {
		return fmt.Errorf("migrate token_launches: %w", err)
	}
	return nil
}

// Save upserts by mint address. created_at keeps its first value.
func (r *LaunchRepositoryPG) Save(ctx context.Context, rec launch.Record) error {
	mint := strings.TrimSpace(rec.MintAddress)
	if mint == "" {
		return launch.NewValidationError("mintAddress", "is required")
	}
	sigs, err := json.Marshal(nonNilSignatures(rec.Signatures))
	if err != nil {
		return fmt.Errorf("marshal signatures: %w", err)
	}

	now := time.Now().UTC()
	createdAt := rec.CreatedAt.UTC()
	if rec.CreatedAt.IsZero() {
		createdAt = now
	}
	updatedAt := rec.UpdatedAt.UTC()
	if rec.UpdatedAt.IsZero() {
		updatedAt = now
	}

	const q = `
INSERT INTO token_launches (
  mint_address, recipient, name, symbol, metadata_uri, mode, status,
  failed_step, error, signatures, fee_charged, requested_by, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
ON CONFLICT (mint_address) DO UPDATE SET
  metadata_uri = EXCLUDED.metadata_uri,
  status       = EXCLUDED.status,
  failed_step  = EXCLUDED.failed_step,
  error        = EXCLUDED.error,
  signatures   = EXCLUDED.signatures,
  fee_charged  = EXCLUDED.fee_charged,
  updated_at   = EXCLUDED.updated_at`

	_, err = r.DB.ExecContext(ctx, q,
		mint,
		rec.Recipient,
		rec.Name,
		rec.Symbol,
		rec.MetadataURI,
		string(rec.Mode),
		string(rec.Status),
		string(rec.FailedStep),
		rec.Error,
		string(sigs),
		rec.FeeCharged,
		rec.RequestedBy,
		createdAt,
		updatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("save launch record (%s): %w", pqErr.Code.Name(), err)
		}
		return fmt.Errorf("save launch record: %w", err)
	}
	return nil
}

func (r *LaunchRepositoryPG) GetByMint(ctx context.Context, mint string) (launch.Record, error) {
	const q = `
SELECT
  mint_address, recipient, name, symbol, metadata_uri, mode, status,
  failed_step, error, signatures, fee_charged, requested_by, created_at, updated_at
FROM token_launches
WHERE mint_address = $1
LIMIT 1`
	rec, err := scanLaunch(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(mint)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return launch.Record{}, launch.ErrRecordNotFound
		}
		return launch.Record{}, err
	}
	return rec, nil
}

func (r *LaunchRepositoryPG) Stats(ctx context.Context) (launch.Stats, error) {
	const q = `
SELECT mode, status, COUNT(*),
       COALESCE(SUM(fee_charged) FILTER (WHERE status = 'completed'), 0)
FROM token_launches
GROUP BY mode, status`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return launch.Stats{}, err
	}
	defer rows.Close()

	st := launch.Stats{ByMode: map[launch.Mode]int{}, FeesCharged: decimal.Zero}
	for rows.Next() {
		var (
			mode, status string
			n            int
			fees         decimal.Decimal
		)
		if err := rows.Scan(&mode, &status, &n, &fees); err != nil {
			return launch.Stats{}, err
		}
		st.AddGroup(launch.Mode(mode), launch.Status(status), n, fees)
	}
	return st, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLaunch(s rowScanner) (launch.Record, error) {
	var (
		rec                               launch.Record
		mode, status, failedStep, sigsRaw string
		createdAt, updatedAt              time.Time
	)
	if err := s.Scan(
		&rec.MintAddress, &rec.Recipient, &rec.Name, &rec.Symbol, &rec.MetadataURI,
		&mode, &status, &failedStep, &rec.Error, &sigsRaw, &rec.FeeCharged,
		&rec.RequestedBy, &createdAt, &updatedAt,
	); err != nil {
		return launch.Record{}, err
	}
	rec.Mode = launch.Mode(mode)
	rec.Status = launch.Status(status)
	rec.FailedStep = launch.Step(failedStep)
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()

	if sigsRaw != "" {
		if err := json.Unmarshal([]byte(sigsRaw), &rec.Signatures); err != nil {
			return launch.Record{}, fmt.Errorf("decode signatures: %w", err)
		}
	}
	return rec, nil
}

func nonNilSignatures(m map[launch.Step]string) map[launch.Step]string {
	if m == nil {
		return map[launch.Step]string{}
	}
	return m
}
