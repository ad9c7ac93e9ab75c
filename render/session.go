package render

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/glimpse/models"
	"github.com/ysmood/gson"
)

// SessionOptions configures a single render.
type SessionOptions struct {
	// BlockPatterns lists URL glob patterns to suppress during the
	// navigation, e.g. a profile from profile.go.
	BlockPatterns []string

	// ReadyTimeout bounds the navigation plus ready wait. Zero uses the
	// renderer's configured default.
	ReadyTimeout time.Duration

	// SettleDelay is the fixed wait after the ready signal. Zero uses
	// the renderer's configured default.
	SettleDelay time.Duration

	// Stealth injects navigator.webdriver masking before navigation.
	Stealth bool

	// Headers are extra HTTP headers sent with every request the page
	// makes, e.g. Accept-Language or a custom User-Agent.
	Headers map[string]string
}

// Session is one exclusive browser page rendered for one request. It is
// not shared across requests; Release must be called on every exit path.
//
// page is the raw pooled page used only for cleanup; p is the same page
// bound to the request context so every post-navigation operation stays
// cancelable.
type Session struct {
	page     *rod.Page
	p        *rod.Page
	ctx      context.Context
	router   *rod.HijackRouter
	renderer *Renderer
	finalURL string
	released bool
}

// Render navigates a pooled page to the URL with the resource-block
// patterns mounted before the first network request, waits for the ready
// signal bounded by the ready timeout, then applies the settle delay for
// lazy-loaded content.
//
// Ordering matters: stealth injection and the hijack router only take
// effect for navigations that happen after they are installed.
func (r *Renderer) Render(ctx context.Context, url string, opts SessionOptions) (*Session, error) {
	readyTimeout := opts.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = r.renderCfg.ReadyTimeout
	}
	settleDelay := opts.SettleDelay
	if settleDelay <= 0 {
		settleDelay = r.renderCfg.SettleDelay
	}
	if settleDelay > r.renderCfg.MaxSettleDelay {
		settleDelay = r.renderCfg.MaxSettleDelay
	}

	// ── 1. Acquire page from pool ─────────────────────────────────────
	r.activePages.Add(1)

	page, acquireErr := r.pagePool.Get(func() (*rod.Page, error) {
		return r.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		r.activePages.Add(-1)
		return nil, models.NewExtractError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// Extraction outlives the navigation timeout, so the session's working
	// page is bound to the request context rather than navCtx.
	sess := &Session{
		page:     page,
		p:        page.Context(ctx),
		ctx:      ctx,
		renderer: r,
		finalURL: url,
	}

	// ── 2. Stealth injection (before navigation) ─────────────────────
	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 2b. Extra HTTP headers (before navigation) ───────────────────
	if len(opts.Headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(opts.Headers),
		}.Call(page)
	}

	// ── 3. Mount hijack router (before navigation) ───────────────────
	if len(opts.BlockPatterns) > 0 {
		sess.router = mountBlocking(page, opts.BlockPatterns)
	}

	// ── 4. Bind ready timeout and navigate ───────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	p := page.Context(navCtx)

	if navErr := p.Navigate(url); navErr != nil {
		sess.Release()
		return nil, categorizeError(navErr, "navigation to target URL failed")
	}

	// ── 5. Ready signal ──────────────────────────────────────────────
	if loadErr := p.WaitLoad(); loadErr != nil {
		sess.Release()
		return nil, categorizeError(loadErr, "page never reached ready state")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	// ── 6. Settle delay for lazy-loaded content ──────────────────────
	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		sess.Release()
		return nil, categorizeError(ctx.Err(), "request canceled during settle delay")
	}

	// ── 7. Final URL after redirects (best-effort) ──────────────────
	if final := evalStringOrEmpty(sess.p, `() => window.location.href`); final != "" {
		sess.finalURL = final
	}

	return sess, nil
}

// Eval runs a JS function against the live document and decodes its JSON
// result into out. Implements dom.Evaluator. Runs on the request-bound
// page so a client disconnect cancels the probe instead of holding the
// pooled page.
func (s *Session) Eval(js string, out any) error {
	if err := s.ctx.Err(); err != nil {
		return categorizeError(err, "script probe aborted")
	}
	res, err := s.p.Eval(js)
	if err != nil {
		return categorizeError(err, "script probe failed")
	}
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), out); err != nil {
		return models.NewExtractError(models.ErrCodeRenderFailed, "failed to decode probe result", err)
	}
	return nil
}

// HTML returns the rendered page's outer HTML, bounded by the request
// context like every other post-navigation operation.
func (s *Session) HTML() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", categorizeError(err, "HTML read aborted")
	}
	html, err := s.p.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to extract page HTML")
	}
	return html, nil
}

// FinalURL is the page URL after redirects.
func (s *Session) FinalURL() string {
	return s.finalURL
}

// Release stops the hijack router and returns the page to the pool. It
// is idempotent and must run on every exit path, including failures —
// the about:blank navigation uses the original page reference (without
// request context) so cleanup succeeds even after the context expired.
func (s *Session) Release() {
	if s.released {
		return
	}
	s.released = true

	if s.router != nil {
		_ = s.router.Stop()
	}
	if navErr := s.page.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
	}
	s.renderer.pagePool.Put(s.page)
	s.renderer.activePages.Add(-1)
}

// mountBlocking installs a request interceptor failing every request
// whose URL matches one of the glob patterns. Returns the running router
// so the session can stop it on release.
func mountBlocking(page *rod.Page, patterns []string) *rod.HijackRouter {
	router := page.HijackRequests()

	for _, pattern := range patterns {
		_ = router.Add(pattern, "", func(ctx *rod.Hijack) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError wraps raw errors into typed ExtractErrors so the API
// layer can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ExtractError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewExtractError(models.ErrCodeRenderFailed, msg, err)
	}
}
