package ai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/glimpse/config"
	"github.com/use-agent/glimpse/models"
)

func testConfig(baseURL string) config.AIConfig {
	return config.AIConfig{
		APIKey:            "test-key",
		Model:             "gpt-4o-mini",
		BaseURL:           baseURL,
		PromptFormat:      config.PromptFormatHTML,
		RequestsPerSecond: 100,
		Burst:             10,
	}
}

// chatHandler serves a canned chat completion response.
func chatHandler(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Temperature != 0 {
			t.Errorf("temperature = %v, want 0", req.Temperature)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestExtractProduct(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{
		"choices": [{"message": {"content": "{\"product_name\":\"Desk Lamp\",\"price\":34.5,\"currency_code\":\"EUR\",\"images\":[\"https://cdn.example.com/lamp.jpg\"]}"}}],
		"usage": {"prompt_tokens": 1000, "completion_tokens": 50, "total_tokens": 1050}
	}`))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))
	res, err := c.ExtractProduct(context.Background(), "<div>Desk Lamp EUR 34.50</div>")
	if err != nil {
		t.Fatalf("ExtractProduct: %v", err)
	}

	if res.Product.ProductName != "Desk Lamp" {
		t.Errorf("product_name = %q", res.Product.ProductName)
	}
	if res.Product.Price == nil || *res.Product.Price != 34.5 {
		t.Errorf("price = %v, want 34.5", res.Product.Price)
	}
	if res.Product.CurrencyCode != "EUR" {
		t.Errorf("currency_code = %q", res.Product.CurrencyCode)
	}
	if len(res.Product.Images) != 1 || res.Product.Images[0] != "https://cdn.example.com/lamp.jpg" {
		t.Errorf("images = %v", res.Product.Images)
	}
	if res.Usage == nil {
		t.Fatal("usage missing")
	}
	if res.Usage.TotalTokens != 1050 {
		t.Errorf("total_tokens = %d", res.Usage.TotalTokens)
	}
	// 1000 in + 50 out at gpt-4o-mini rates.
	wantCost := 1000.0/1e6*0.15 + 50.0/1e6*0.60
	if math.Abs(res.Usage.EstimatedCostUSD-wantCost) > 1e-12 {
		t.Errorf("cost = %v, want %v", res.Usage.EstimatedCostUSD, wantCost)
	}
}

func TestExtractProductNoUsage(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{
		"choices": [{"message": {"content": "{\"product_name\":\"Chair\"}"}}]
	}`))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))
	res, err := c.ExtractProduct(context.Background(), "<div>Chair</div>")
	if err != nil {
		t.Fatalf("ExtractProduct: %v", err)
	}
	if res.Usage != nil {
		t.Errorf("usage = %+v, want nil when provider omits counters", res.Usage)
	}
}

func TestExtractProductMissingName(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{
		"choices": [{"message": {"content": "{\"product_name\":\"  \",\"price\":1}"}}]
	}`))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))
	_, err := c.ExtractProduct(context.Background(), "<div>nothing</div>")
	assertAICode(t, err, models.ErrCodeAIExtraction)
}

func TestExtractProductInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{
		"choices": [{"message": {"content": "Sure! Here is the product: lamp"}}]
	}`))
	defer srv.Close()

	c := NewClient(srv.Client(), testConfig(srv.URL))
	_, err := c.ExtractProduct(context.Background(), "<div>lamp</div>")
	assertAICode(t, err, models.ErrCodeAIExtraction)
}

func TestExtractProductErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, models.ErrCodeAIAuthFailure},
		{"forbidden", http.StatusForbidden, models.ErrCodeAIAuthFailure},
		{"rate limited", http.StatusTooManyRequests, models.ErrCodeAIRateLimited},
		{"server error", http.StatusInternalServerError, models.ErrCodeAIExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer srv.Close()

			c := NewClient(srv.Client(), testConfig(srv.URL))
			_, err := c.ExtractProduct(context.Background(), "<div>x</div>")
			assertAICode(t, err, tt.wantCode)
		})
	}
}

func TestExtractProductNoAPIKey(t *testing.T) {
	cfg := testConfig("https://api.openai.com/v1")
	cfg.APIKey = ""
	c := NewClient(nil, cfg)
	_, err := c.ExtractProduct(context.Background(), "<div>x</div>")
	assertAICode(t, err, models.ErrCodeAIExtraction)
}

func TestExtractProductMarkdownPrompt(t *testing.T) {
	var gotContent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotContent = req.Messages[len(req.Messages)-1].Content
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"product_name\":\"Mug\"}"}}]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.PromptFormat = config.PromptFormatMarkdown
	c := NewClient(srv.Client(), cfg)
	if _, err := c.ExtractProduct(context.Background(), "<h1>Mug</h1><p>A sturdy mug.</p>"); err != nil {
		t.Fatalf("ExtractProduct: %v", err)
	}
	if gotContent == "" {
		t.Fatal("no user content sent")
	}
	if gotContent[0] == '<' {
		t.Errorf("prompt still HTML: %q", gotContent)
	}
}

func assertAICode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ee *models.ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("error %v is not an ExtractError", err)
	}
	if ee.Code != code {
		t.Errorf("code = %s, want %s", ee.Code, code)
	}
	if !ee.IsAIFailure() {
		t.Errorf("IsAIFailure() = false for %s", ee.Code)
	}
}
