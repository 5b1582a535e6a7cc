package firestore

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

func TestRecordDocMapping(t *testing.T) {
	created := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	in := launch.Record{
		MintAddress: "Mint111",
		Recipient:   "Owner111",
		Name:        "Launchium",
		Symbol:      "LNCH",
		MetadataURI: "https://gateway.irys.xyz/m",
		Mode:        launch.ModeUserSigns,
		Status:      launch.StatusFailed,
		FailedStep:  launch.StepMint,
		Error:       "boom",
		Signatures:  map[launch.Step]string{launch.StepCreateToken: "sig1"},
		FeeCharged:  decimal.RequireFromString("0.02"),
		RequestedBy: "uid-7",
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Minute),
	}

	out := docToRecord("Mint111", recordToDoc(in))

	if out.Mode != in.Mode || out.Status != in.Status || out.FailedStep != in.FailedStep {
		t.Fatalf("enum fields lost: %+v", out)
	}
	if out.RequestedBy != "uid-7" {
		t.Fatalf("requestedBy lost: %q", out.RequestedBy)
	}
	if !out.FeeCharged.Equal(in.FeeCharged) {
		t.Fatalf("fee lost: %s", out.FeeCharged)
	}
	if out.Signatures[launch.StepCreateToken] != "sig1" {
		t.Fatalf("signatures lost: %v", out.Signatures)
	}
	if !out.CreatedAt.Equal(created) || !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("timestamps lost: %v %v", out.CreatedAt, out.UpdatedAt)
	}
}

func TestDocToRecordToleratesMissingFields(t *testing.T) {
	out := docToRecord("Mint222", map[string]any{"status": "completed", "feeCharged": 12})
	if out.MintAddress != "Mint222" || out.Status != launch.StatusCompleted {
		t.Fatalf("unexpected record: %+v", out)
	}
	if !out.FeeCharged.IsZero() || out.Signatures != nil {
		t.Fatalf("malformed fields should be left empty: %+v", out)
	}
}
