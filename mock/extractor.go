package mock

import "github.com/fwojciec/whatchanged"

var _ whatchanged.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of whatchanged.Extractor.
type Extractor struct {
	ExtractFn func(html string) (*whatchanged.ExtractResult, error)
}

func (e *Extractor) Extract(html string) (*whatchanged.ExtractResult, error) {
	return e.ExtractFn(html)
}

var _ whatchanged.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of whatchanged.ContentExtractor.
type ContentExtractor struct {
	ExtractContentFn func(html string, pageURL string) (*whatchanged.Capture, error)
}

func (e *ContentExtractor) ExtractContent(html string, pageURL string) (*whatchanged.Capture, error) {
	return e.ExtractContentFn(html, pageURL)
}
