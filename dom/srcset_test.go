package dom

import "testing"

func TestBestSrcsetCandidate(t *testing.T) {
	tests := []struct {
		name   string
		srcset string
		want   string
	}{
		{"widest wins", "a.jpg 200w, b.jpg 800w, c.jpg 400w", "b.jpg"},
		{"single entry", "only.jpg 320w", "only.jpg"},
		{"no descriptors", "a.jpg, b.jpg", "a.jpg"},
		{"malformed width treated as zero", "a.jpg banana, b.jpg 100w", "b.jpg"},
		{"density descriptor treated as zero", "a.jpg 2x, b.jpg 50w", "b.jpg"},
		{"extra whitespace", "  a.jpg   100w ,  b.jpg 900w  ", "b.jpg"},
		{"empty", "", ""},
		{"commas only", ", ,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestSrcsetCandidate(tt.srcset)
			if got != tt.want {
				t.Errorf("BestSrcsetCandidate(%q) = %q, want %q", tt.srcset, got, tt.want)
			}
		})
	}
}

func TestBestSrcsetCandidate_StableOnTies(t *testing.T) {
	// Equal widths keep document order: the first declared candidate wins.
	got := BestSrcsetCandidate("first.jpg 400w, second.jpg 400w")
	if got != "first.jpg" {
		t.Errorf("tie should keep first candidate, got %q", got)
	}
}
