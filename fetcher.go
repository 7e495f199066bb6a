package whatchanged

import "context"

// Fetcher retrieves page HTML from URLs.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch loads the URL and returns its HTML once the page has settled.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases fetcher resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

// SitemapService discovers page URLs from website sitemaps.
type SitemapService interface {
	// DiscoverURLs returns the page URLs listed by the sitemap at
	// sitemapURL. Sitemap indexes are resolved recursively.
	DiscoverURLs(ctx context.Context, sitemapURL string) ([]string, error)
}
