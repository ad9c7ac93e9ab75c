package models

// ExtractContentRequest is the payload for POST /extract-content.
type ExtractContentRequest struct {
	// URL is the target page. Required; must start with http:// or https://.
	// Validated by the handler so the error messages match the API contract.
	URL string `json:"url"`

	// UseAI selects the AI extraction path. Default: true.
	// When the AI call fails the pipeline falls back to the heuristic
	// DOM extractor within the same request.
	UseAI *bool `json:"use_ai,omitempty"`

	// BlockProfile overrides the resource-block profile applied during
	// rendering. Allowed: "light" (default, preserves images) or
	// "aggressive" (also blocks images and scripts, metadata-only pages).
	BlockProfile string `json:"block_profile,omitempty"`

	// SettleMs overrides the post-ready settle delay in milliseconds,
	// for pages with slow lazy-loaded content. 0 uses the server default.
	SettleMs int `json:"settle_ms,omitempty"`

	// Stealth enables anti-bot-detection evasions (navigator.webdriver
	// masking etc.). Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// Headers are extra HTTP headers sent with every request the page
	// makes during the render, e.g. Accept-Language.
	Headers map[string]string `json:"headers,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractContentRequest) Defaults() {
	if r.UseAI == nil {
		t := true
		r.UseAI = &t
	}
	if r.BlockProfile == "" {
		r.BlockProfile = "light"
	}
}

// WantsAI reports the effective value of UseAI after defaulting.
func (r *ExtractContentRequest) WantsAI() bool {
	return r.UseAI == nil || *r.UseAI
}
