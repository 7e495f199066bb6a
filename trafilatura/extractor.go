// Package trafilatura implements the article stage of content extraction
// with go-trafilatura, as an alternative to readability.
package trafilatura

import (
	"bytes"
	"strings"

	"github.com/fwojciec/whatchanged"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// Ensure Extractor implements whatchanged.Extractor at compile time.
var _ whatchanged.Extractor = (*Extractor)(nil)

// Extractor wraps go-trafilatura to find the main article of a page.
type Extractor struct {
	opts trafilatura.Options
}

// NewExtractor creates a new Extractor with fallback extractors enabled.
func NewExtractor() *Extractor {
	return &Extractor{
		opts: trafilatura.Options{
			EnableFallback: true,
		},
	}
}

// Extract parses raw HTML and returns the article content. Pages where
// trafilatura finds no content node return ENOTFOUND.
func (e *Extractor) Extract(rawHTML string) (*whatchanged.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "empty HTML input")
	}

	result, err := trafilatura.Extract(strings.NewReader(rawHTML), e.opts)
	if err != nil {
		return nil, err
	}
	if result.ContentNode == nil {
		return nil, whatchanged.Errorf(whatchanged.ENOTFOUND, "no article found")
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return nil, err
	}

	return &whatchanged.ExtractResult{
		Title:       result.Metadata.Title,
		ContentHTML: buf.String(),
	}, nil
}
