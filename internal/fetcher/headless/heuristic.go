package headless

import (
	"bytes"
	"strings"

	"github.com/JakeFAU/revcopy-crawler/internal/crawler"
)

// RenderHeuristic decides whether a storefront page needs a headless render
// before its review widget can be detected.
type RenderHeuristic struct {
	BodyLengthThreshold int
}

// NewRenderHeuristic creates a heuristic; threshold is in bytes.
func NewRenderHeuristic(threshold int) *RenderHeuristic {
	if threshold <= 0 {
		threshold = 2048
	}
	return &RenderHeuristic{BodyLengthThreshold: threshold}
}

// Client-rendered storefronts (Hydrogen, Next.js themes, custom React shells).
var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("window.__remixcontext"),
	[]byte("hydrogen"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// Placeholders review apps fill in after load.
var deferredWidgetMarkers = [][]byte{
	[]byte("yotpo-widget-instance"),
	[]byte("data-yotpo-instance-id"),
	[]byte("jdgm-widget"),
	[]byte("stamped-main-widget"),
}

// ShouldPromote reports whether a headless fetch is warranted.
func (h *RenderHeuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != 200 || resp.UsedHeadless {
		return false
	}
	body := bytes.ToLower(resp.Body)
	if len(body) == 0 {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(body) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	for _, marker := range deferredWidgetMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed: the rest of the document belongs to the script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	return scriptCoverage*100/total >= 25
}
