package models

// ExtractedWith tags recording which extraction path produced the response.
const (
	ExtractedWithAI             = "ai"
	ExtractedWithManual         = "manual"
	ExtractedWithManualFallback = "manual_fallback"
)

// ExtractContentResponse is the response for POST /extract-content.
//
// A cached response is returned exactly as stored, so repeated requests
// within the TTL window are byte-for-byte identical.
type ExtractContentResponse struct {
	// ImageURLs is the de-duplicated set of absolute image URLs.
	ImageURLs []string `json:"image_urls"`

	// Metadata maps meta-tag keys (property or name attribute) to their
	// content, last occurrence wins.
	Metadata map[string]string `json:"metadata"`

	// ProductName, Price and Currency are present only when the AI path
	// succeeded.
	ProductName string   `json:"product_name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`

	// TokenUsage reports AI token consumption when the provider supplied
	// usage counters.
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`

	// ExtractedWith records the path that produced the facts:
	// "ai", "manual", or "manual_fallback".
	ExtractedWith string `json:"extracted_with"`

	// Timing provides duration breakdowns for the extraction run. On a
	// cache hit it reflects the run that populated the cache.
	Timing TimingInfo `json:"timing"`
}

// ProductInfo is the structured reply of the AI extractor.
// ProductName is required; its absence is an extraction failure.
type ProductInfo struct {
	ProductName  string   `json:"product_name"`
	Price        *float64 `json:"price,omitempty"`
	CurrencyCode string   `json:"currency_code,omitempty"`
	Images       []string `json:"images,omitempty"`
}

// TokenUsage reports token consumption and estimated dollar cost of the
// AI call. Absent when the provider omits usage counters.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// RenderMs is the time spent navigating, waiting for readiness and
	// settling the page.
	RenderMs int64 `json:"render_ms"`

	// ExtractionMs is the time spent in DOM probes, sanitization and the
	// AI call.
	ExtractionMs int64 `json:"extraction_ms"`
}

// ErrorResponse is the JSON body for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
