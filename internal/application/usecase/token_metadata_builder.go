// internal/application/usecase/token_metadata_builder.go
package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// MinimalDocument is the inline fallback: name, symbol and description only.
// Image is always empty so the locator stays small.
type MinimalDocument struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// TokenMetadataBuilder builds the off-chain metadata JSON for a launch.
type TokenMetadataBuilder struct{}

func NewTokenMetadataBuilder() *TokenMetadataBuilder {
	return &TokenMetadataBuilder{}
}

// Build returns the full document referencing imageURI (may be empty).
func (b *TokenMetadataBuilder) Build(in launch.MetadataInput, imageURI string) (launch.MetadataRecord, error) {
	name := strings.TrimSpace(in.Name)
	symbol := strings.TrimSpace(in.Symbol)
	if name == "" || symbol == "" {
		return launch.MetadataRecord{}, fmt.Errorf("metadata name or symbol is empty")
	}

	rec := launch.MetadataRecord{
		Name:        name,
		Symbol:      symbol,
		Description: strings.TrimSpace(in.Description),
		Image:       strings.TrimSpace(imageURI),
	}

	// social links become attributes and the extensions block
	socials := in.Socials
	if !socials.IsZero() {
		rec.ExternalURL = socials.Website
		rec.Extensions = &socials
		for _, a := range []launch.Attribute{
			{TraitType: "website", Value: socials.Website},
			{TraitType: "twitter", Value: socials.Twitter},
			{TraitType: "telegram", Value: socials.Telegram},
			{TraitType: "discord", Value: socials.Discord},
		} {
			if a.Value != "" {
				rec.Attributes = append(rec.Attributes, a)
			}
		}
	}
	return rec, nil
}

// Marshal encodes rec as the JSON uploaded to the pinning backend.
func (b *TokenMetadataBuilder) Marshal(rec launch.MetadataRecord) ([]byte, error) {
	return json.Marshal(rec)
}

// Minimal projects in to the fallback document.
func (b *TokenMetadataBuilder) Minimal(in launch.MetadataInput) MinimalDocument {
	return MinimalDocument{
		Name:        strings.TrimSpace(in.Name),
		Symbol:      strings.TrimSpace(in.Symbol),
		Description: strings.TrimSpace(in.Description),
	}
}
