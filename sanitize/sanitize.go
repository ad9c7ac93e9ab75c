// Package sanitize compresses a rendered page into a compact HTML
// snapshot for AI consumption: scripts, styles, tracking and navigation
// chrome removed, attributes stripped, output bounded in size.
package sanitize

import (
	"bytes"
	"log/slog"
	nurl "net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// DefaultMaxChars bounds the sanitized snapshot so the downstream AI
// request stays within prompt-size and cost limits.
const DefaultMaxChars = 50000

// truncationMarker terminates hard-truncated output.
const truncationMarker = "…"

// removalSelectors are removed unconditionally: invisible to users and
// pure noise for extraction.
var removalSelectors = []string{
	"script",
	"style",
	"noscript",
	"template",
	"svg",
	"iframe",
	"link[rel='stylesheet']",
}

// blockRule removes non-content chrome, with an optional negated
// selector that keeps product-related elements alive.
type blockRule struct {
	selector string
	keepIf   string
}

var blockRules = []blockRule{
	{"nav", "[class*='product'], [id*='product']"},
	{"header", "[class*='product'], [id*='product']"},
	{"footer", ""},
	{"aside", "[class*='product'], [id*='product']"},
	{"[class*='cookie'], [id*='cookie']", "[class*='product']"},
	{"[class*='gdpr'], [id*='gdpr']", ""},
	{"[class*='consent'], [id*='consent']", ""},
	{"[class*='advert'], [id*='advert'], [class*='sponsored']", ""},
	{"[class*='banner'], [id*='banner']", "[class*='product']"},
	{"[class*='social'], [class*='share-']", "[class*='product']"},
	{"[class*='chat'], [id*='chat']", ""},
	{"[class*='newsletter'], [id*='newsletter']", ""},
	{"[class*='sidebar'], [id*='sidebar']", "[class*='product']"},
	{"[class*='modal'], [class*='overlay'], [class*='popup']", "[class*='product']"},
}

// mainContentSelectors is the prioritized re-rooting list used when the
// cleaned document still exceeds the bound.
var mainContentSelectors = []string{
	"[class*='product-detail']",
	"[class*='product-page']",
	"[itemtype*='Product']",
	"[id*='product']",
	"[class*='product']",
	"main",
	"article",
	"#content",
	".content",
}

// data-* attributes whose name contains one of these survive stripping.
var keepDataAttrHints = []string{"product", "price", "image", "name", "sku", "currency"}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	interTagGap   = regexp.MustCompile(`>\s+<`)
)

// Sanitizer produces bounded HTML snapshots. Safe for concurrent use.
type Sanitizer struct {
	maxChars int
}

// New creates a Sanitizer with the given output bound in characters.
// Non-positive bounds use DefaultMaxChars.
func New(maxChars int) *Sanitizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Sanitizer{maxChars: maxChars}
}

// Sanitize cleans rawHTML into a snapshot no longer than the configured
// bound. It operates on a detached parse of the snapshot, never on the
// live page. All failures degrade to truncation rather than errors.
func (s *Sanitizer) Sanitize(rawHTML, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Warn("sanitize: HTML parse failed, truncating raw input", "error", err)
		return s.truncate(collapseWhitespace(rawHTML))
	}

	for _, sel := range removalSelectors {
		doc.Find(sel).Remove()
	}
	for _, rule := range blockRules {
		matches := doc.Find(rule.selector)
		if rule.keepIf != "" {
			matches = matches.Not(rule.keepIf)
		}
		matches.Remove()
	}

	for _, root := range doc.Selection.Nodes {
		removeComments(root)
	}

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			n.Attr = filterAttrs(n.Attr)
		}
	})

	body := doc.Find("body")
	serialized, err := body.Html()
	if err != nil || strings.TrimSpace(serialized) == "" {
		serialized, _ = doc.Html()
	}
	collapsed := collapseWhitespace(serialized)
	if utf8.RuneCountInString(collapsed) <= s.maxChars {
		return collapsed
	}

	// Too large: re-root at the first main-content selector that fits.
	if rerooted, ok := s.reroot(body); ok {
		return rerooted
	}

	// Readability as a last structured resort before hard truncation.
	if extracted, ok := s.readabilityFallback(collapsed, pageURL); ok {
		return extracted
	}

	return s.truncate(collapsed)
}

// MaxChars reports the configured output bound.
func (s *Sanitizer) MaxChars() int {
	return s.maxChars
}

// reroot serializes the first match of each prioritized main-content
// selector, returning the first result that fits the bound.
func (s *Sanitizer) reroot(body *goquery.Selection) (string, bool) {
	if len(body.Nodes) == 0 {
		return "", false
	}
	root := body.Nodes[0]

	for _, selector := range mainContentSelectors {
		sel, err := cascadia.Parse(selector)
		if err != nil {
			continue
		}
		node := cascadia.Query(root, sel)
		if node == nil {
			continue
		}

		var buf bytes.Buffer
		if err := html.Render(&buf, node); err != nil {
			continue
		}
		candidate := collapseWhitespace(buf.String())
		if utf8.RuneCountInString(candidate) <= s.maxChars {
			return candidate, true
		}
	}
	return "", false
}

// readabilityFallback extracts the main content block when no selector
// narrowed the document enough.
func (s *Sanitizer) readabilityFallback(cleanedHTML, pageURL string) (string, bool) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return "", false
	}
	article, err := readability.FromReader(strings.NewReader(cleanedHTML), parsed)
	if err != nil {
		return "", false
	}
	content := collapseWhitespace(article.Content)
	if content == "" || utf8.RuneCountInString(content) > s.maxChars {
		return "", false
	}
	return content, true
}

// truncate hard-cuts the snapshot at the bound, on a rune boundary, with
// a trailing ellipsis marker.
func (s *Sanitizer) truncate(content string) string {
	if utf8.RuneCountInString(content) <= s.maxChars {
		return content
	}
	budget := s.maxChars - utf8.RuneCountInString(truncationMarker)
	runes := 0
	for i := range content {
		if runes == budget {
			return content[:i] + truncationMarker
		}
		runes++
	}
	return content
}

// collapseWhitespace squeezes whitespace runs and inter-tag gaps.
func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = interTagGap.ReplaceAllString(s, "><")
	return strings.TrimSpace(s)
}

// removeComments strips comment nodes recursively.
func removeComments(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
			continue
		}
		removeComments(child)
	}
}

// filterAttrs drops inline styles, on* event handlers and data-*
// attributes that carry no product-related hint.
func filterAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		switch {
		case key == "style":
			continue
		case strings.HasPrefix(key, "on"):
			continue
		case strings.HasPrefix(key, "data-") && !hasDataHint(key):
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func hasDataHint(key string) bool {
	for _, hint := range keepDataAttrHints {
		if strings.Contains(key, hint) {
			return true
		}
	}
	return false
}
