package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/whatchanged"
)

// MaxSitemapDepth bounds how many sitemap indexes may be nested.
const MaxSitemapDepth = 5

// Ensure SitemapService implements whatchanged.SitemapService.
var _ whatchanged.SitemapService = (*SitemapService)(nil)

// SitemapService discovers page URLs from sitemaps via HTTP.
type SitemapService struct {
	client *http.Client
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client}
}

// DiscoverURLs returns the trackable page URLs listed by a sitemap.
//
// A target ending in .xml is read as a sitemap directly. Any other target
// is treated as a site: sitemaps are located through robots.txt, falling
// back to /sitemap.xml, and when the target has a non-root path only URLs
// under that path are kept. Returns an empty slice when the site has no
// sitemap.
func (s *SitemapService) DiscoverURLs(ctx context.Context, target string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(target)
	if err != nil || base.Host == "" {
		return nil, whatchanged.Errorf(whatchanged.EINVALID, "invalid sitemap URL %q", target)
	}

	var sitemaps []string
	var pathPrefix string
	if strings.HasSuffix(strings.ToLower(base.Path), ".xml") {
		sitemaps = []string{target}
	} else {
		pathPrefix = strings.TrimSuffix(base.Path, "/")
		root := &url.URL{Scheme: base.Scheme, Host: base.Host}
		sitemaps, err = s.findSitemaps(ctx, root)
		if err != nil {
			return nil, err
		}
	}

	w := &sitemapWalk{
		svc:       s,
		seenMaps:  make(map[string]bool),
		seenPages: make(map[string]bool),
		urls:      []string{},
	}
	for _, sm := range sitemaps {
		if err := w.visit(ctx, sm, 0); err != nil {
			return nil, err
		}
	}

	if pathPrefix == "" {
		return w.urls, nil
	}
	filtered := []string{}
	for _, u := range w.urls {
		if matchesPathPrefix(u, pathPrefix) {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// sitemapWalk collects page URLs across nested sitemaps.
type sitemapWalk struct {
	svc       *SitemapService
	seenMaps  map[string]bool
	seenPages map[string]bool
	urls      []string
}

func (w *sitemapWalk) visit(ctx context.Context, sitemapURL string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.seenMaps[sitemapURL] {
		return nil
	}
	w.seenMaps[sitemapURL] = true
	if depth > MaxSitemapDepth {
		return whatchanged.Errorf(whatchanged.EINVALID, "sitemap nesting deeper than %d at %s", MaxSitemapDepth, sitemapURL)
	}

	body, err := w.svc.fetch(ctx, sitemapURL)
	if err != nil {
		return err
	}
	defer body.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return fmt.Errorf("parsing sitemap %s: %w", sitemapURL, err)
	}
	root := doc.Root()
	if root == nil {
		return whatchanged.Errorf(whatchanged.EINVALID, "empty sitemap %s", sitemapURL)
	}

	switch root.Tag {
	case "sitemapindex":
		for _, loc := range locs(root, "sitemap") {
			if err := w.visit(ctx, loc, depth+1); err != nil {
				return err
			}
		}
	case "urlset":
		for _, loc := range locs(root, "url") {
			if w.seenPages[loc] || !whatchanged.IsTrackable(loc) {
				continue
			}
			w.seenPages[loc] = true
			w.urls = append(w.urls, loc)
		}
	default:
		return whatchanged.Errorf(whatchanged.EINVALID, "unexpected sitemap root <%s> at %s", root.Tag, sitemapURL)
	}
	return nil
}

// locs returns the trimmed <loc> text of every child element named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if v := strings.TrimSpace(loc.Text()); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// matchesPathPrefix checks if a URL's path is prefix or lies below it.
// /docs matches /docs and /docs/intro but not /documentation.
func matchesPathPrefix(rawURL, prefix string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// findSitemaps reads Sitemap: directives from robots.txt, falling back to
// /sitemap.xml when it exists.
func (s *SitemapService) findSitemaps(ctx context.Context, root *url.URL) ([]string, error) {
	robotsURL := root.ResolveReference(&url.URL{Path: "/robots.txt"})
	sitemaps, err := s.robotsSitemaps(ctx, robotsURL.String())
	if err == nil && len(sitemaps) > 0 {
		return sitemaps, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	exists, err := s.exists(ctx, fallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if exists {
		return []string{fallback}, nil
	}
	return nil, nil
}

func (s *SitemapService) robotsSitemaps(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.fetch(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if v := strings.TrimSpace(value); v != "" {
			sitemaps = append(sitemaps, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading robots.txt: %w", err)
	}
	return sitemaps, nil
}

func (s *SitemapService) fetch(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, whatchanged.Errorf(whatchanged.ENOTFOUND, "HTTP 404 for %s", target)
		}
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	return resp.Body, nil
}

func (s *SitemapService) exists(ctx context.Context, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
