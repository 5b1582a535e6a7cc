// internal/infra/metadata/publisher.go
package metadata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// InlinePrefix marks a self-contained metadata locator.
const InlinePrefix = "data:application/json;base64,"

const defaultPublishTimeout = 20 * time.Second

// Backend is a pinning service able to store an image and a JSON document.
type Backend interface {
	Name() string
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
	UploadJSON(ctx context.Context, doc []byte) (string, error)
}

// Publisher tries each backend in order and falls back to an inline locator.
// Publish never fails.
type Publisher struct {
	backends []Backend
	builder  *usecase.TokenMetadataBuilder
	timeout  time.Duration
}

var _ launch.MetadataPublisher = (*Publisher)(nil)

// NewPublisher bounds every upload by timeout (20s when zero). Nil backends are ignored.
func NewPublisher(timeout time.Duration, backends ...Backend) *Publisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	p := &Publisher{
		builder: usecase.NewTokenMetadataBuilder(),
		timeout: timeout,
	}
	for _, b := range backends {
		if b != nil {
			p.backends = append(p.backends, b)
		}
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, in launch.MetadataInput) launch.MetadataRecord {
	for _, b := range p.backends {
		rec, err := p.publishTo(ctx, b, in)
		if err == nil {
			return rec
		}
		log.Printf("[metadata] WARN: %v", err)
	}

	rec := p.inline(in)
	log.Printf("[metadata] using inline locator symbol=%s len=%d", rec.Symbol, len(rec.URI))
	return rec
}

func (p *Publisher) publishTo(ctx context.Context, b Backend, in launch.MetadataInput) (launch.MetadataRecord, error) {
	imageURI := strings.TrimSpace(in.Image.URL)
	if in.Image.HasData() {
		cctx, cancel := context.WithTimeout(ctx, p.timeout)
		uri, err := b.UploadImage(cctx, in.Image.Data, in.Image.ContentType)
		cancel()
		if err != nil {
			return launch.MetadataRecord{}, &launch.MetadataPublishError{Backend: b.Name(), Op: "upload_image", Err: err}
		}
		imageURI = uri
	}

	rec, err := p.builder.Build(in, imageURI)
	if err != nil {
		return launch.MetadataRecord{}, &launch.MetadataPublishError{Backend: b.Name(), Op: "build", Err: err}
	}
	doc, err := p.builder.Marshal(rec)
	if err != nil {
		return launch.MetadataRecord{}, &launch.MetadataPublishError{Backend: b.Name(), Op: "build", Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	uri, err := b.UploadJSON(cctx, doc)
	cancel()
	if err != nil {
		return launch.MetadataRecord{}, &launch.MetadataPublishError{Backend: b.Name(), Op: "upload_json", Err: err}
	}
	if len(uri) > launch.MaxURILen {
		return launch.MetadataRecord{}, &launch.MetadataPublishError{
			Backend: b.Name(),
			Op:      "upload_json",
			Err:     fmt.Errorf("uri is %d bytes, limit is %d", len(uri), launch.MaxURILen),
		}
	}

	rec.URI = uri
	return rec, nil
}

// inline builds the fallback record. The description is shortened until the
// locator fits the on-chain uri limit. If name and symbol alone are still too
// long, the empty image key is dropped as well.
func (p *Publisher) inline(in launch.MetadataInput) launch.MetadataRecord {
	doc := p.builder.Minimal(in)
	full := doc.Description
	uri := EncodeInline(doc)
	for len(uri) > launch.MaxURILen && doc.Description != "" {
		r := []rune(doc.Description)
		doc.Description = strings.TrimSpace(string(r[:len(r)-1]))
		uri = EncodeInline(doc)
	}
	if len(uri) > launch.MaxURILen {
		uri = encodeInlineCompact(doc)
	}
	if len(uri) > launch.MaxURILen {
		log.Printf("[metadata] WARN: inline locator is %d bytes, limit %d symbol=%s", len(uri), launch.MaxURILen, doc.Symbol)
	}

	truncated := doc.Description != full
	if truncated {
		log.Printf("[metadata] inline description truncated symbol=%s from=%d to=%d bytes",
			doc.Symbol, len(full), len(doc.Description))
	}

	return launch.MetadataRecord{
		Name:                 doc.Name,
		Symbol:               doc.Symbol,
		Description:          doc.Description,
		URI:                  uri,
		Inline:               true,
		DescriptionTruncated: truncated,
	}
}

// EncodeInline renders doc as a data: locator.
func EncodeInline(doc usecase.MinimalDocument) string {
	doc.Image = ""
	return InlinePrefix + base64.StdEncoding.EncodeToString(marshalCompact(doc))
}

// encodeInlineCompact omits the always-empty image key.
func encodeInlineCompact(doc usecase.MinimalDocument) string {
	return InlinePrefix + base64.StdEncoding.EncodeToString(marshalCompact(struct {
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
	}{doc.Name, doc.Symbol, doc.Description}))
}

// marshalCompact encodes v without HTML escaping, so <, > and & stay one byte.
func marshalCompact(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// DecodeInline reverses EncodeInline.
func DecodeInline(uri string) (usecase.MinimalDocument, error) {
	if !strings.HasPrefix(uri, InlinePrefix) {
		return usecase.MinimalDocument{}, fmt.Errorf("not an inline metadata locator")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, InlinePrefix))
	if err != nil {
		return usecase.MinimalDocument{}, fmt.Errorf("decode inline locator: %w", err)
	}
	var doc usecase.MinimalDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return usecase.MinimalDocument{}, fmt.Errorf("unmarshal inline document: %w", err)
	}
	return doc, nil
}

// IsInline reports whether uri is a self-contained locator.
func IsInline(uri string) bool { return strings.HasPrefix(uri, InlinePrefix) }
