// internal/adapters/in/http/handlers/launch_handler.go
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gigagfun/launchium-token-creator/internal/adapters/in/http/middleware"
	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// LaunchService is the part of usecase.LaunchUsecase the handler calls.
type LaunchService interface {
	Launch(ctx context.Context, req launch.Request) (*launch.Result, error)
	Prepare(ctx context.Context, req launch.Request) (*usecase.PrepareResult, error)
	Execute(ctx context.Context, in usecase.ExecuteRequest) (*launch.Result, error)
}

var _ LaunchService = (*usecase.LaunchUsecase)(nil)

const defaultMaxRequestBytes = 8 << 20

type LaunchHandler struct {
	uc       LaunchService
	maxBytes int64
}

func NewLaunchHandler(uc LaunchService, maxRequestBytes int64) *LaunchHandler {
	if maxRequestBytes <= 0 {
		maxRequestBytes = defaultMaxRequestBytes
	}
	return &LaunchHandler{uc: uc, maxBytes: maxRequestBytes}
}

// launchRequestDTO is the JSON body of /api/launch and /api/launch/prepare.
type launchRequestDTO struct {
	Recipient   string `json:"recipient"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`

	// ImageBase64 may carry a "data:<type>;base64," prefix.
	ImageBase64      string `json:"imageBase64"`
	ImageContentType string `json:"imageContentType"`
	ImageURL         string `json:"imageUrl"`

	Socials launch.Socials `json:"socials"`
}

// Launch handles POST /api/launch.
func (h *LaunchHandler) Launch(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLaunchRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.uc.Launch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Prepare handles POST /api/launch/prepare.
func (h *LaunchHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeLaunchRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.uc.Prepare(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Execute handles POST /api/launch/execute.
func (h *LaunchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var in usecase.ExecuteRequest
	if err := h.decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(in.SessionID) == "" {
		writeError(w, launch.NewValidationError("sessionId", "is required"))
		return
	}
	if strings.TrimSpace(in.SignedTransaction) == "" {
		writeError(w, launch.NewValidationError("signedTransaction", "is required"))
		return
	}
	res, err := h.uc.Execute(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *LaunchHandler) decodeLaunchRequest(w http.ResponseWriter, r *http.Request) (launch.Request, error) {
	var dto launchRequestDTO
	if err := h.decodeJSON(w, r, &dto); err != nil {
		return launch.Request{}, err
	}
	img, err := decodeImage(dto.ImageBase64, dto.ImageContentType, dto.ImageURL)
	if err != nil {
		return launch.Request{}, err
	}
	uid, _ := middleware.CurrentUID(r)
	return launch.Request{
		Recipient:   dto.Recipient,
		Name:        dto.Name,
		Symbol:      dto.Symbol,
		Description: dto.Description,
		Image:       img,
		Socials:     dto.Socials,
		RequestedBy: uid,
	}, nil
}

func (h *LaunchHandler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return launch.NewValidationError("body", "is empty")
		}
		return launch.NewValidationError("body", fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

// decodeImage accepts raw base64 or a data URI. The data URI media type wins
// over contentType.
func decodeImage(b64, contentType, url string) (launch.ImageInput, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return launch.ImageInput{URL: url}, nil
	}

	if strings.HasPrefix(b64, "data:") {
		comma := strings.IndexByte(b64, ',')
		if comma < 0 {
			return launch.ImageInput{}, launch.NewValidationError("imageBase64", "malformed data uri")
		}
		meta := b64[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return launch.ImageInput{}, launch.NewValidationError("imageBase64", "data uri must be base64 encoded")
		}
		if mt := strings.TrimSuffix(meta, ";base64"); mt != "" {
			contentType = mt
		}
		b64 = b64[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return launch.ImageInput{}, launch.NewValidationError("imageBase64", "is not valid base64")
	}
	return launch.ImageInput{Data: data, ContentType: strings.TrimSpace(contentType), URL: url}, nil
}
