// internal/adapters/out/firestore/launch_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

const launchCollection = "token_launches"

// ========================================
// Firestore launch record repository
// ========================================

var _ launch.RecordRepository = (*LaunchRepositoryFS)(nil)

// LaunchRepositoryFS stores one document per mint in token_launches/{mintAddress}.
type LaunchRepositoryFS struct {
	Client *firestore.Client
}

func NewLaunchRepositoryFS(client *firestore.Client) *LaunchRepositoryFS {
	return &LaunchRepositoryFS{Client: client}
}

func (r *LaunchRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(launchCollection)
}

func (r *LaunchRepositoryFS) Save(ctx context.Context, rec launch.Record) error {
	if r.Client == nil {
		return errors.New("firestore client is nil")
	}
	id := strings.TrimSpace(rec.MintAddress)
	if id == "" {
		return launch.NewValidationError("mintAddress", "is required")
	}

	if _, err := r.col().Doc(id).Set(ctx, recordToDoc(rec), firestore.MergeAll); err != nil {
		return fmt.Errorf("save launch record: %w", err)
	}
	return nil
}

func (r *LaunchRepositoryFS) GetByMint(ctx context.Context, mint string) (launch.Record, error) {
	if r.Client == nil {
		return launch.Record{}, errors.New("firestore client is nil")
	}
	id := strings.TrimSpace(mint)
	if id == "" {
		return launch.Record{}, launch.ErrRecordNotFound
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return launch.Record{}, launch.ErrRecordNotFound
	}
	if err != nil {
		return launch.Record{}, err
	}
	return docToRecord(id, snap.Data()), nil
}

func (r *LaunchRepositoryFS) Stats(ctx context.Context) (launch.Stats, error) {
	if r.Client == nil {
		return launch.Stats{}, errors.New("firestore client is nil")
	}

	st := launch.Stats{ByMode: map[launch.Mode]int{}, FeesCharged: decimal.Zero}
	it := r.col().Select("mode", "status", "feeCharged").Documents(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return launch.Stats{}, fmt.Errorf("iterate launch records: %w", err)
		}
		st.Add(docToRecord(snap.Ref.ID, snap.Data()))
	}
	return st, nil
}

// ========================================
// Mapping
// ========================================

func recordToDoc(rec launch.Record) map[string]any {
	sigs := make(map[string]any, len(rec.Signatures))
	for k, v := range rec.Signatures {
		sigs[string(k)] = v
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return map[string]any{
		"mintAddress": strings.TrimSpace(rec.MintAddress),
		"recipient":   rec.Recipient,
		"name":        rec.Name,
		"symbol":      rec.Symbol,
		"metadataUri": rec.MetadataURI,
		"mode":        string(rec.Mode),
		"status":      string(rec.Status),
		"failedStep":  string(rec.FailedStep),
		"error":       rec.Error,
		"signatures":  sigs,
		"feeCharged":  rec.FeeCharged.String(),
		"requestedBy": rec.RequestedBy,
		"createdAt":   rec.CreatedAt.UTC(),
		"updatedAt":   updated.UTC(),
	}
}

func docToRecord(id string, data map[string]any) launch.Record {
	rec := launch.Record{
		MintAddress: id,
		Recipient:   asString(data["recipient"]),
		Name:        asString(data["name"]),
		Symbol:      asString(data["symbol"]),
		MetadataURI: asString(data["metadataUri"]),
		Mode:        launch.Mode(asString(data["mode"])),
		Status:      launch.Status(asString(data["status"])),
		FailedStep:  launch.Step(asString(data["failedStep"])),
		Error:       asString(data["error"]),
		RequestedBy: asString(data["requestedBy"]),
		CreatedAt:   asTime(data["createdAt"]),
		UpdatedAt:   asTime(data["updatedAt"]),
	}
	if v := asString(data["mintAddress"]); v != "" {
		rec.MintAddress = v
	}
	if fee, err := decimal.NewFromString(asString(data["feeCharged"])); err == nil {
		rec.FeeCharged = fee
	}
	if m, ok := data["signatures"].(map[string]any); ok && len(m) > 0 {
		rec.Signatures = make(map[launch.Step]string, len(m))
		for k, v := range m {
			rec.Signatures[launch.Step(k)] = asString(v)
		}
	}
	return rec
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return time.Time{}
}
