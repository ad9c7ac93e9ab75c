package dom

import (
	"sort"
	"strconv"
	"strings"
)

// srcsetCandidate is one "<url> <N>w" entry of a srcset attribute.
type srcsetCandidate struct {
	url   string
	width int
}

// BestSrcsetCandidate picks the candidate with the largest declared width
// from a srcset attribute value. Malformed or missing width descriptors
// are treated as width 0 rather than aborting extraction. Returns "" when
// the attribute contains no usable URL.
func BestSrcsetCandidate(srcset string) string {
	entries := strings.Split(srcset, ",")
	candidates := make([]srcsetCandidate, 0, len(entries))

	for _, entry := range entries {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 || fields[0] == "" {
			continue
		}
		c := srcsetCandidate{url: fields[0]}
		if len(fields) > 1 {
			c.width = parseWidthDescriptor(fields[1])
		}
		candidates = append(candidates, c)
	}

	if len(candidates) == 0 {
		return ""
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].width > candidates[j].width
	})
	return candidates[0].url
}

// parseWidthDescriptor parses a "<N>w" descriptor, returning 0 for
// anything that does not parse (density descriptors like "2x" included).
func parseWidthDescriptor(desc string) int {
	if !strings.HasSuffix(desc, "w") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(desc, "w"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
