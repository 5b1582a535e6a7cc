// internal/infra/arweave/uploader.go
package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 512

// HTTPUploader talks to an Irys uploader service that pins content on Arweave.
//
//	POST {baseURL}/upload/image  (raw bytes, Content-Type of the image)
//	POST {baseURL}/upload/json   (metadata document)
//
// Both answer {"uri": "https://gateway.irys.xyz/<id>"}.
type HTTPUploader struct {
	client  *http.Client
	baseURL string
	apiKey  string // optional Bearer token
}

// NewHTTPUploader returns an uploader for baseURL. A zero timeout means 30s.
func NewHTTPUploader(baseURL, apiKey string, timeout time.Duration) *HTTPUploader {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPUploader{
		client: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
	}
}

func (u *HTTPUploader) Name() string { return "arweave" }

// UploadImage pins raw image bytes and returns their URI.
func (u *HTTPUploader) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data is empty")
	}
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	log.Printf("[arweave] UploadImage start len=%d contentType=%s", len(data), ct)
	return u.post(ctx, "/upload/image", ct, data)
}

// UploadJSON pins an encoded metadata document and returns its URI.
func (u *HTTPUploader) UploadJSON(ctx context.Context, metadataJSON []byte) (string, error) {
	if len(metadataJSON) == 0 {
		return "", fmt.Errorf("metadataJSON is empty")
	}
	log.Printf("[arweave] UploadJSON start len=%d", len(metadataJSON))
	return u.post(ctx, "/upload/json", "application/json", metadataJSON)
}

func (u *HTTPUploader) post(ctx context.Context, path, contentType string, body []byte) (string, error) {
	if u.baseURL == "" {
		return "", fmt.Errorf("baseURL is empty; arweave endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		log.Printf("[arweave] http request FAILED path=%s err=%v", path, err)
		return "", fmt.Errorf("upload to arweave: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(bodyBytes)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		log.Printf("[arweave] upload FAILED path=%s status=%d body=%s", path, resp.StatusCode, snippet)
		return "", fmt.Errorf("upload failed: status=%d body=%s", resp.StatusCode, snippet)
	}

	var res struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(res.URI) == "" {
		return "", fmt.Errorf("upload response has empty uri")
	}

	log.Printf("[arweave] upload OK path=%s uri=%s", path, res.URI)
	return res.URI, nil
}
