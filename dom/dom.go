// Package dom runs heuristic in-page script probes against a live
// rendered document: visible product-sized images and meta-tag pairs.
package dom

// Source attributes an ImageCandidate can originate from.
const (
	SourceSrc    = "src"
	SourceSrcset = "srcset"
)

// ImageCandidate is an image reference collected from the live page,
// before URL resolution and de-duplication.
type ImageCandidate struct {
	RawURL string
	Source string // "src" or "srcset"
}

// Evaluator executes a JavaScript expression against the live document
// and decodes its JSON result. Implemented by render.Session; tests use
// an in-memory fake.
type Evaluator interface {
	Eval(js string, out any) error
}

// imageProbeJS collects src/srcset pairs for every <img> that passes the
// visibility filter: bounding box at least 100x100 with area >= 10000,
// not display:none, not visibility:hidden, opacity > 0.
const imageProbeJS = `() => {
	const out = [];
	for (const img of document.querySelectorAll('img')) {
		const rect = img.getBoundingClientRect();
		if (rect.width < 100 || rect.height < 100) continue;
		if (rect.width * rect.height < 10000) continue;
		const style = window.getComputedStyle(img);
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (parseFloat(style.opacity) === 0) continue;
		out.push({
			src: img.getAttribute('src') || '',
			srcset: img.getAttribute('srcset') || '',
		});
	}
	return out;
}`

// metaProbeJS collects key/value pairs from <meta> tags in document
// order: og:* property tags keyed by property, named tags keyed by name.
const metaProbeJS = `() => {
	const out = [];
	for (const meta of document.querySelectorAll('meta')) {
		const property = meta.getAttribute('property') || '';
		const name = meta.getAttribute('name') || '';
		const content = meta.getAttribute('content') || '';
		if (property.startsWith('og:')) {
			out.push({key: property, value: content});
		} else if (name !== '') {
			out.push({key: name, value: content});
		}
	}
	return out;
}`

type imageProbeResult struct {
	Src    string `json:"src"`
	Srcset string `json:"srcset"`
}

type metaProbeResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExtractImages probes the live document for visible, sufficiently large
// images. Each qualifying <img> contributes its src attribute and, when
// a srcset is declared, the srcset candidate with the largest width.
func ExtractImages(ev Evaluator) ([]ImageCandidate, error) {
	var probed []imageProbeResult
	if err := ev.Eval(imageProbeJS, &probed); err != nil {
		return nil, err
	}

	candidates := make([]ImageCandidate, 0, len(probed))
	for _, p := range probed {
		if p.Src != "" {
			candidates = append(candidates, ImageCandidate{RawURL: p.Src, Source: SourceSrc})
		}
		if p.Srcset != "" {
			if best := BestSrcsetCandidate(p.Srcset); best != "" {
				candidates = append(candidates, ImageCandidate{RawURL: best, Source: SourceSrcset})
			}
		}
	}
	return candidates, nil
}

// ExtractMetadata probes the live document's meta tags. Keys follow
// document order with last-wins on duplicates.
func ExtractMetadata(ev Evaluator) (map[string]string, error) {
	var probed []metaProbeResult
	if err := ev.Eval(metaProbeJS, &probed); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(probed))
	for _, p := range probed {
		if p.Key == "" {
			continue
		}
		metadata[p.Key] = p.Value
	}
	return metadata, nil
}
