// internal/adapters/out/gcs/metadata_store_gcs.go
package gcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

const (
	imagePrefix    = "launch/images"
	metadataPrefix = "launch/metadata"
	cacheControl   = "public, max-age=31536000, immutable"
)

// MetadataStoreGCS pins launch images and metadata documents in a public
// bucket. Objects are content-addressed so re-uploads are no-ops.
type MetadataStoreGCS struct {
	Client *storage.Client
	Bucket string
}

func NewMetadataStoreGCS(client *storage.Client, bucket string) *MetadataStoreGCS {
	return &MetadataStoreGCS{Client: client, Bucket: strings.TrimSpace(bucket)}
}

func (s *MetadataStoreGCS) Name() string { return "gcs" }

func (s *MetadataStoreGCS) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data is empty")
	}
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	obj := fmt.Sprintf("%s/%s%s", imagePrefix, contentHash(data), extensionFor(ct))
	return s.put(ctx, obj, ct, data)
}

func (s *MetadataStoreGCS) UploadJSON(ctx context.Context, doc []byte) (string, error) {
	if len(doc) == 0 {
		return "", fmt.Errorf("metadata document is empty")
	}
	obj := fmt.Sprintf("%s/%s.json", metadataPrefix, contentHash(doc))
	return s.put(ctx, obj, "application/json", doc)
}

func (s *MetadataStoreGCS) put(ctx context.Context, object, contentType string, data []byte) (string, error) {
	if s == nil || s.Client == nil || s.Bucket == "" {
		return "", fmt.Errorf("gcs metadata store is not configured")
	}

	w := s.Client.Bucket(s.Bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = cacheControl

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		// 412: same content already stored
		var gerr *googleapi.Error
		if !(errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed) {
			return "", fmt.Errorf("gcs close %s: %w", object, err)
		}
	}

	u := PublicURL(s.Bucket, object)
	log.Printf("[gcs] stored object=%s len=%d", object, len(data))
	return u, nil
}

// PublicURL builds the https URL of an object in a public bucket.
func PublicURL(bucket, objectPath string) string {
	b := strings.TrimSpace(bucket)
	obj := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b, obj)
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
