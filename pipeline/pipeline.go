// Package pipeline orchestrates one extraction request end to end:
// cache lookup, browser render, heuristic and AI extraction, fallback,
// response assembly and cache fill.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/glimpse/ai"
	"github.com/use-agent/glimpse/cache"
	"github.com/use-agent/glimpse/config"
	"github.com/use-agent/glimpse/dom"
	"github.com/use-agent/glimpse/models"
	"github.com/use-agent/glimpse/render"
	"github.com/use-agent/glimpse/urlx"
)

// Session is the per-request browser page the pipeline extracts from.
type Session interface {
	dom.Evaluator
	HTML() (string, error)
	FinalURL() string
	Release()
}

// Renderer produces sessions. *render.Renderer implements it.
type Renderer interface {
	Render(ctx context.Context, url string, opts render.SessionOptions) (*render.Session, error)
}

// ProductExtractor is the AI extraction collaborator. *ai.Client
// implements it.
type ProductExtractor interface {
	ExtractProduct(ctx context.Context, content string) (*ai.Result, error)
}

// Sanitizer bounds raw HTML for the AI prompt. *sanitize.Sanitizer
// implements it.
type Sanitizer interface {
	Sanitize(rawHTML, pageURL string) string
}

// Pipeline runs extraction requests. Safe for concurrent use.
type Pipeline struct {
	renderer  Renderer
	extractor ProductExtractor
	sanitizer Sanitizer
	cache     *cache.Cache
	renderCfg config.RenderConfig

	// HTTPSOnly drops non-https image URLs from heuristic results.
	HTTPSOnly bool

	// renderFn indirection lets tests run without a browser.
	renderFn func(ctx context.Context, url string, opts render.SessionOptions) (Session, error)
}

// New wires a Pipeline from its collaborators.
func New(renderer Renderer, extractor ProductExtractor, sanitizer Sanitizer, c *cache.Cache, renderCfg config.RenderConfig) *Pipeline {
	p := &Pipeline{
		renderer:  renderer,
		extractor: extractor,
		sanitizer: sanitizer,
		cache:     c,
		renderCfg: renderCfg,
		HTTPSOnly: true,
	}
	p.renderFn = func(ctx context.Context, url string, opts render.SessionOptions) (Session, error) {
		sess, err := renderer.Render(ctx, url, opts)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
	return p
}

// Run executes one extraction request. The request URL must already be
// present; all other fields are defaulted here. Errors carry an
// ExtractError code the handler maps to an HTTP status.
func (p *Pipeline) Run(ctx context.Context, req *models.ExtractContentRequest) (*models.ExtractContentResponse, error) {
	req.Defaults()

	normalized, err := urlx.Normalize(req.URL)
	if err != nil {
		return nil, err
	}

	// Custom headers can change what the page serves, so those requests
	// never touch the shared cache.
	cacheable := len(req.Headers) == 0

	key := cache.Key(normalized, req.WantsAI())
	if cacheable {
		if resp, ok := p.cache.Get(key); ok {
			slog.Info("cache hit", "url", normalized, "use_ai", req.WantsAI())
			return resp, nil
		}
		slog.Debug("cache miss", "url", normalized, "use_ai", req.WantsAI())
	}

	start := time.Now()

	opts := render.SessionOptions{
		BlockPatterns: render.ProfileByName(req.BlockProfile),
		SettleDelay:   p.settleDelay(req.SettleMs),
		Stealth:       req.Stealth,
		Headers:       req.Headers,
	}
	sess, err := p.renderFn(ctx, normalized, opts)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	renderMs := time.Since(start).Milliseconds()
	extractionStart := time.Now()

	resp, err := p.extract(ctx, sess, req.WantsAI())
	if err != nil {
		return nil, err
	}

	resp.Timing = models.TimingInfo{
		RenderMs:     renderMs,
		ExtractionMs: time.Since(extractionStart).Milliseconds(),
		TotalMs:      time.Since(start).Milliseconds(),
	}

	if cacheable {
		p.cache.Set(key, resp)
	}
	return resp, nil
}

// extract runs the AI path when requested, falling back to the
// heuristic extractor on any AI failure within the same session.
func (p *Pipeline) extract(ctx context.Context, sess Session, useAI bool) (*models.ExtractContentResponse, error) {
	// Metadata comes from the live DOM on both paths.
	metadata, err := dom.ExtractMetadata(sess)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeRenderFailed, "metadata probe failed", err)
	}

	if useAI {
		resp, aiErr := p.extractAI(ctx, sess, metadata)
		if aiErr == nil {
			return resp, nil
		}

		var ee *models.ExtractError
		if !errors.As(aiErr, &ee) || !ee.IsAIFailure() {
			return nil, aiErr
		}
		slog.Warn("AI extraction failed, falling back to heuristics",
			"code", ee.Code, "error", aiErr)

		resp, err := p.extractHeuristic(sess, metadata)
		if err != nil {
			return nil, err
		}
		resp.ExtractedWith = models.ExtractedWithManualFallback
		return resp, nil
	}

	return p.extractHeuristic(sess, metadata)
}

// extractAI sanitizes the rendered HTML, asks the model for product
// data and resolves the returned image URLs against the final page URL.
func (p *Pipeline) extractAI(ctx context.Context, sess Session, metadata map[string]string) (*models.ExtractContentResponse, error) {
	rawHTML, err := sess.HTML()
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeAIExtraction, "failed to read rendered HTML", err)
	}

	pageURL := sess.FinalURL()
	snapshot := p.sanitizer.Sanitize(rawHTML, pageURL)

	result, err := p.extractor.ExtractProduct(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(result.Product.Images))
	for _, raw := range result.Product.Images {
		if u := urlx.ResolveImageURL(raw, pageURL); u != "" {
			resolved = append(resolved, u)
		}
	}

	return &models.ExtractContentResponse{
		ImageURLs:     urlx.CleanImageURLs(resolved, p.HTTPSOnly),
		Metadata:      metadata,
		ProductName:   result.Product.ProductName,
		Price:         result.Product.Price,
		Currency:      result.Product.CurrencyCode,
		TokenUsage:    result.Usage,
		ExtractedWith: models.ExtractedWithAI,
	}, nil
}

// extractHeuristic probes the live DOM for visible images.
func (p *Pipeline) extractHeuristic(sess Session, metadata map[string]string) (*models.ExtractContentResponse, error) {
	candidates, err := dom.ExtractImages(sess)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeRenderFailed, "image probe failed", err)
	}

	base := sess.FinalURL()
	resolved := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if u := urlx.ResolveImageURL(c.RawURL, base); u != "" {
			resolved = append(resolved, u)
		}
	}

	return &models.ExtractContentResponse{
		ImageURLs:     urlx.CleanImageURLs(resolved, p.HTTPSOnly),
		Metadata:      metadata,
		ExtractedWith: models.ExtractedWithManual,
	}, nil
}

// settleDelay converts the client override to a duration, capped by the
// configured maximum. Zero means the server default.
func (p *Pipeline) settleDelay(settleMs int) time.Duration {
	if settleMs <= 0 {
		return 0
	}
	d := time.Duration(settleMs) * time.Millisecond
	if max := p.renderCfg.MaxSettleDelay; max > 0 && d > max {
		return max
	}
	return d
}
