// Package readability implements the article stage of content extraction
// with go-readability.
package readability

import (
	"strings"

	"github.com/fwojciec/whatchanged"
	"github.com/go-shiori/go-readability"
)

// Ensure Extractor implements whatchanged.Extractor at compile time.
var _ whatchanged.Extractor = (*Extractor)(nil)

// Extractor wraps go-readability to find the main article of a page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses raw HTML and returns the article readability scores highest.
// Pages without a recognisable article return ENOTFOUND.
func (e *Extractor) Extract(rawHTML string) (*whatchanged.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "empty HTML input")
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), nil)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(article.Content) == "" {
		return nil, whatchanged.Errorf(whatchanged.ENOTFOUND, "no article found")
	}

	return &whatchanged.ExtractResult{
		Title:       article.Title,
		ContentHTML: article.Content,
	}, nil
}
