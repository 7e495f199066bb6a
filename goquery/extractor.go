package goquery

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/whatchanged"
	"golang.org/x/net/html"
)

// Compile-time interface verification.
var _ whatchanged.ContentExtractor = (*ContentExtractor)(nil)

// MinContentLength is the number of characters an article or main-content
// block must exceed before the cascade accepts it.
const MinContentLength = 200

// MainContentSelectors are probed in order after the article stage.
var MainContentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#content",
	".content",
	"#main",
	".main",
	"#article",
	".article",
	".post-content",
	".entry-content",
}

// ContentExtractor runs the noise removal and extraction cascade:
// article extractor, then main-content selectors, then the whole body.
type ContentExtractor struct {
	article whatchanged.Extractor
	noise   *NoiseRemover
}

// NewContentExtractor creates a ContentExtractor. A nil article extractor
// skips the article stage.
func NewContentExtractor(article whatchanged.Extractor, noise *NoiseRemover) *ContentExtractor {
	if noise == nil {
		noise = NewNoiseRemover()
	}
	return &ContentExtractor{article: article, noise: noise}
}

// ExtractContent returns the plain text of the page's main content and the
// method that found it.
func (e *ContentExtractor) ExtractContent(rawHTML string, pageURL string) (*whatchanged.Capture, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "failed to parse HTML: %v", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	cleaned := e.noise.RemoveNoise(doc)

	if c := e.extractArticle(cleaned, title); c != nil {
		return c, nil
	}

	for _, sel := range MainContentSelectors {
		s := cleaned.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if text := BlockText(s.Get(0)); longEnough(text) {
			return &whatchanged.Capture{Method: whatchanged.MethodSelector, Title: title, Text: text}, nil
		}
	}

	var text string
	if body := cleaned.Find("body").First(); body.Length() > 0 {
		text = BlockText(body.Get(0))
	}
	return &whatchanged.Capture{Method: whatchanged.MethodBody, Title: title, Text: text}, nil
}

// extractArticle runs the article stage. Any failure, including a panic in
// the article extractor, returns nil so the cascade falls through.
func (e *ContentExtractor) extractArticle(cleaned *goquery.Document, title string) (c *whatchanged.Capture) {
	if e.article == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.noise.logger.Warn("article extractor panicked", "error", r)
			c = nil
		}
	}()

	cleanedHTML, err := cleaned.Html()
	if err != nil {
		return nil
	}

	result, err := e.article.Extract(cleanedHTML)
	if err != nil || result == nil || result.ContentHTML == "" {
		return nil
	}

	nodes, err := html.Parse(strings.NewReader(result.ContentHTML))
	if err != nil {
		return nil
	}

	text := BlockText(nodes)
	if !longEnough(text) {
		return nil
	}

	if t := strings.TrimSpace(result.Title); t != "" {
		title = t
	}
	return &whatchanged.Capture{Method: whatchanged.MethodReadability, Title: title, Text: text}
}

// IsLoginPage reports whether the page has a password field.
func IsLoginPage(rawHTML string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return false
	}
	return doc.Find(`input[type="password"]`).Length() > 0
}

func longEnough(text string) bool {
	return utf8.RuneCountInString(text) > MinContentLength
}
