package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/glimpse/models"
)

type fakeExtractor struct {
	resp *models.ExtractContentResponse
	err  error
	got  *models.ExtractContentRequest
}

func (f *fakeExtractor) Run(ctx context.Context, req *models.ExtractContentRequest) (*models.ExtractContentResponse, error) {
	f.got = req
	return f.resp, f.err
}

func doExtract(t *testing.T, f *fakeExtractor, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/extract-content", ExtractContent(f))

	req := httptest.NewRequest(http.MethodPost, "/extract-content", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtractContentOK(t *testing.T) {
	f := &fakeExtractor{resp: &models.ExtractContentResponse{
		ImageURLs:     []string{"https://example.com/a.jpg"},
		Metadata:      map[string]string{"og:title": "Item"},
		ExtractedWith: models.ExtractedWithManual,
	}}

	w := doExtract(t, f, `{"url": "https://example.com/item", "use_ai": false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.ExtractContentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExtractedWith != models.ExtractedWithManual {
		t.Errorf("extracted_with = %s", resp.ExtractedWith)
	}
	if f.got == nil || f.got.URL != "https://example.com/item" {
		t.Errorf("pipeline got %+v", f.got)
	}
	if f.got.WantsAI() {
		t.Error("use_ai false not propagated")
	}
}

func TestExtractContentMissingURL(t *testing.T) {
	for _, body := range []string{`{}`, `{"url": ""}`, `{"url": "   "}`, ``, `not json`} {
		w := doExtract(t, &fakeExtractor{}, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
		var resp models.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body %q: decode: %v", body, err)
		}
		if resp.Error != models.MsgURLRequired {
			t.Errorf("body %q: error = %q, want %q", body, resp.Error, models.MsgURLRequired)
		}
	}
}

func TestExtractContentInvalidFormat(t *testing.T) {
	f := &fakeExtractor{err: models.NewExtractError(models.ErrCodeInvalidInput, models.MsgInvalidURLFormat, nil)}

	w := doExtract(t, f, `{"url": "ftp://example.com/file"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != models.MsgInvalidURLFormat {
		t.Errorf("error = %q, want %q", resp.Error, models.MsgInvalidURLFormat)
	}
}

func TestExtractContentPipelineFailure(t *testing.T) {
	f := &fakeExtractor{err: models.NewExtractError(models.ErrCodeTimeout, "page took too long to become ready", nil)}

	w := doExtract(t, f, `{"url": "https://example.com/item"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "page took too long to become ready" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestExtractContentRequestOptions(t *testing.T) {
	f := &fakeExtractor{resp: &models.ExtractContentResponse{ExtractedWith: models.ExtractedWithManual}}

	w := doExtract(t, f, `{"url": "https://example.com/item", "use_ai": false, "block_profile": "aggressive", "settle_ms": 500, "stealth": true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if f.got.BlockProfile != "aggressive" || f.got.SettleMs != 500 || !f.got.Stealth {
		t.Errorf("options not propagated: %+v", f.got)
	}
}
