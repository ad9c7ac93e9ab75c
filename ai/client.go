// Package ai extracts structured product data from sanitized page
// snapshots through an OpenAI-compatible chat completion API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/time/rate"

	"github.com/use-agent/glimpse/config"
	"github.com/use-agent/glimpse/models"
)

// gpt-4o-mini pricing, USD per million tokens.
const (
	inputCostPerMTok  = 0.15
	outputCostPerMTok = 0.60
)

// productSchema constrains the model output. product_name is the only
// required field.
const productSchema = `{
  "type": "object",
  "properties": {
    "product_name": {"type": "string", "description": "The product's display name"},
    "price": {"type": "number", "description": "Numeric price without currency symbol"},
    "currency_code": {"type": "string", "description": "ISO 4217 code, e.g. USD"},
    "images": {"type": "array", "items": {"type": "string"}, "description": "Product image URLs"}
  },
  "required": ["product_name"]
}`

// Client talks to an OpenAI-compatible chat completion endpoint. A
// shared rate limiter throttles outbound calls across all requests.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	cfg         config.AIConfig
	mdConverter *converter.Converter
}

// NewClient creates an AI extraction client. Pass nil to use a default
// http.Client.
func NewClient(httpClient *http.Client, cfg config.AIConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:        cfg,
	}
	if cfg.PromptFormat == config.PromptFormatMarkdown {
		c.mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		)
	}
	return c
}

// Result holds a successful extraction with its token accounting.
// Usage is nil when the provider omits token counters.
type Result struct {
	Product models.ProductInfo
	Usage   *models.TokenUsage
}

// chatRequest is the chat completion request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the minimal chat completion response we need.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatErrorResponse captures an API error from the provider.
type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ExtractProduct sends the sanitized snapshot to the model and returns
// the structured product data. Every failure returns a typed error so
// the caller can fall back to heuristic extraction.
func (c *Client) ExtractProduct(ctx context.Context, content string) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI extraction requested but no API key configured", nil)
	}

	if c.mdConverter != nil {
		if md, err := c.mdConverter.ConvertString(content); err == nil && strings.TrimSpace(md) != "" {
			content = md
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI request canceled while rate limited", err)
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt()},
			{Role: "user", Content: content},
		},
		Temperature:    0,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "failed to read AI response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "failed to parse AI response", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI returned no choices", nil)
	}

	raw := chatResp.Choices[0].Message.Content

	var product models.ProductInfo
	if err := json.Unmarshal([]byte(raw), &product); err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI returned invalid JSON", err)
	}
	if strings.TrimSpace(product.ProductName) == "" {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "AI response missing product_name", nil)
	}

	result := &Result{Product: product}
	if u := chatResp.Usage; u != nil {
		result.Usage = &models.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
			EstimatedCostUSD: estimateCost(u.PromptTokens, u.CompletionTokens),
		}
	}
	return result, nil
}

// buildSystemPrompt creates the system prompt for product extraction.
func buildSystemPrompt() string {
	return fmt.Sprintf(`You are a product data extraction assistant. Extract product information from the provided page content and return it as JSON matching the following schema.

Schema:
%s

Rules:
- Return ONLY valid JSON, no markdown fences or explanation.
- product_name is required. If no product is present, return {"product_name": ""}.
- Omit fields you cannot find rather than guessing.
- price must be a plain number, currency_code the ISO 4217 code.`, productSchema)
}

// estimateCost prices a request at gpt-4o-mini rates.
func estimateCost(promptTokens, completionTokens int) float64 {
	return float64(promptTokens)/1e6*inputCostPerMTok +
		float64(completionTokens)/1e6*outputCostPerMTok
}

// classifyAPIError maps provider HTTP status codes to typed errors.
func classifyAPIError(statusCode int, body []byte) *models.ExtractError {
	var errResp chatErrorResponse
	msg := "AI API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewExtractError(models.ErrCodeAIAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewExtractError(models.ErrCodeAIRateLimited, msg, nil)
	default:
		return models.NewExtractError(models.ErrCodeAIExtraction, fmt.Sprintf("AI API returned %d: %s", statusCode, msg), nil)
	}
}
