package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

type fakeLaunchService struct {
	gotReq     launch.Request
	gotExecute usecase.ExecuteRequest
	err        error
}

func (f *fakeLaunchService) Launch(_ context.Context, req launch.Request) (*launch.Result, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &launch.Result{Mode: launch.ModeIssuerSigns, MintAddress: "Mint1"}, nil
}

func (f *fakeLaunchService) Prepare(_ context.Context, req launch.Request) (*usecase.PrepareResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.PrepareResult{SessionID: "s-1", MintAddress: "Mint1", Transaction: "AQ=="}, nil
}

func (f *fakeLaunchService) Execute(_ context.Context, in usecase.ExecuteRequest) (*launch.Result, error) {
	f.gotExecute = in
	if f.err != nil {
		return nil, f.err
	}
	return &launch.Result{Mode: launch.ModeUserSigns, MintAddress: "Mint1"}, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestLaunchDecodesDataURIImage(t *testing.T) {
	svc := &fakeLaunchService{}
	h := NewLaunchHandler(svc, 0)

	rec := post(h.Launch, `{"recipient":"R","name":"N","symbol":"S","imageBase64":"data:image/png;base64,iVBORw0K","socials":{"website":"https://x.io"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	img := svc.gotReq.Image
	if img.ContentType != "image/png" || len(img.Data) != 6 {
		t.Fatalf("unexpected image: type=%q len=%d", img.ContentType, len(img.Data))
	}
	if svc.gotReq.Socials.Website != "https://x.io" {
		t.Fatalf("socials not passed through: %+v", svc.gotReq.Socials)
	}
}

func TestLaunchRejectsBadBase64(t *testing.T) {
	svc := &fakeLaunchService{}
	rec := post(NewLaunchHandler(svc, 0).Launch, `{"imageBase64":"***"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Field != "imageBase64" {
		t.Fatalf("field = %q", body.Field)
	}
	if svc.gotReq.Name != "" {
		t.Fatalf("usecase must not be called")
	}
}

func TestRequestBodyLimit(t *testing.T) {
	svc := &fakeLaunchService{}
	rec := post(NewLaunchHandler(svc, 16).Prepare, `{"name":"`+strings.Repeat("a", 64)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPrepareReturnsCreated(t *testing.T) {
	rec := post(NewLaunchHandler(&fakeLaunchService{}, 0).Prepare, `{"recipient":"R","name":"N","symbol":"S"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var out usecase.PrepareResult
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil || out.SessionID != "s-1" {
		t.Fatalf("unexpected body: %+v err=%v", out, err)
	}
}

func TestExecuteRequiresFields(t *testing.T) {
	svc := &fakeLaunchService{}
	h := NewLaunchHandler(svc, 0)
	if rec := post(h.Execute, `{"signedTransaction":"AQ=="}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing session id: status = %d", rec.Code)
	}
	if rec := post(h.Execute, `{"sessionId":"s-1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tx: status = %d", rec.Code)
	}
	if rec := post(h.Execute, `{"sessionId":"s-1","signedTransaction":"AQ=="}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.gotExecute.SessionID != "s-1" {
		t.Fatalf("execute request not passed: %+v", svc.gotExecute)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		step   string
	}{
		{"validation", launch.NewValidationError("name", "is required"), http.StatusBadRequest, "invalid_request", ""},
		{"session not found", launch.ErrSessionNotFound, http.StatusNotFound, "session_not_found", ""},
		{"mismatch", launch.ErrSessionMismatch, http.StatusConflict, "session_mismatch", ""},
		{"ledger", launch.NewLedgerError(launch.StepMint, "submit", errors.New("rpc down")), http.StatusBadGateway, "ledger_error", "mint"},
		{"mint not found", launch.ErrMintNotFound, http.StatusNotFound, "mint_not_found", ""},
		{"not configured", launch.ErrNotConfigured, http.StatusServiceUnavailable, "not_configured", ""},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(NewLaunchHandler(&fakeLaunchService{err: tc.err}, 0).Execute, `{"sessionId":"s","signedTransaction":"AQ=="}`)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			body := decodeError(t, rec)
			if body.Error != tc.code || body.Step != tc.step {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}

type fakeQueryService struct{}

func (fakeQueryService) Status(_ context.Context, mint string) (*usecase.TokenStatus, error) {
	if mint == "missing" {
		return nil, launch.ErrMintNotFound
	}
	return &usecase.TokenStatus{Mint: launch.MintState{Address: mint}, Immutable: true}, nil
}

func (fakeQueryService) Standards() usecase.Standards { return usecase.Standards{Decimals: 6} }

func (fakeQueryService) Statistics(context.Context) (*usecase.Statistics, error) {
	return &usecase.Statistics{LiveSessions: 2}, nil
}

func TestQueryStatusUsesURLParam(t *testing.T) {
	h := NewQueryHandler(fakeQueryService{})
	r := chi.NewRouter()
	r.Get("/tokens/{mint}/status", h.Status)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tokens/Mint1/status", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"address":"Mint1"`) {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tokens/missing/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
