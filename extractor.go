package whatchanged

// ExtractResult holds the article found by a readability-style extractor.
type ExtractResult struct {
	// Title is the article title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML.
	ContentHTML string
}

// Extractor finds the main article in an HTML page.
type Extractor interface {
	// Extract processes raw HTML and returns the article content.
	// Implementations may fail on documents without a recognisable article.
	Extract(html string) (*ExtractResult, error)
}

// Capture is the plain-text representation of a page's main content.
type Capture struct {
	Method Method `json:"method"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// ContentExtractor produces a best-effort plain-text capture of a page's
// main content.
type ContentExtractor interface {
	// ExtractContent cleans the page and runs the extraction cascade.
	// The pageURL identifies the page in logs and may be empty.
	ExtractContent(html string, pageURL string) (*Capture, error)
}
