package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRenderFailed = "RENDER_FAILED"
	ErrCodeTimeout      = "RENDER_TIMEOUT"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInternal     = "INTERNAL_ERROR"

	// AI-extraction error codes. All of them trigger the heuristic
	// fallback inside the pipeline; they reach the client only when the
	// fallback itself fails.
	ErrCodeAIExtraction  = "AI_EXTRACTION_FAILED"
	ErrCodeAIAuthFailure = "AI_AUTH_FAILURE"
	ErrCodeAIRateLimited = "AI_RATE_LIMITED"
)

// Messages the API contract fixes verbatim for invalid input.
const (
	MsgURLRequired      = "URL is required"
	MsgInvalidURLFormat = "Invalid URL format. URL must start with http:// or https://"
)

// ExtractError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ExtractError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ExtractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError creates a new ExtractError.
func NewExtractError(code, message string, err error) *ExtractError {
	return &ExtractError{Code: code, Message: message, Err: err}
}

// IsAIFailure reports whether the error is one of the AI-extraction codes
// that the pipeline recovers from via the heuristic fallback.
func (e *ExtractError) IsAIFailure() bool {
	switch e.Code {
	case ErrCodeAIExtraction, ErrCodeAIAuthFailure, ErrCodeAIRateLimited:
		return true
	}
	return false
}
