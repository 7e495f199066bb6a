package whatchanged

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that identify a visit rather than a
// page. They are dropped during URL normalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_term":     true,
	"fbclid":       true,
	"gclid":        true,
	"dclid":        true,
	"msclkid":      true,
	"yclid":        true,
	"twclid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"_ga":          true,
	"_gl":          true,
	"srsltid":      true,
	"ref":          true,
	"source":       true,
}

// opaqueSchemes are browser-internal or opaque schemes that never name a
// capturable page.
var opaqueSchemes = []string{"chrome:", "chrome-extension:", "about:", "data:", "file:"}

// NormalizeURL canonicalizes a page URL so that every visit to the same
// logical page maps to one storage key. The host is lowercased and a
// default port dropped, an empty path becomes "/", tracking parameters and
// the fragment are removed, remaining query parameters are sorted by key
// and one trailing slash is stripped from non-root paths.
//
// Input that does not parse, or is not http(s), is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !isHTTP(u) {
		return rawURL
	}

	u.Host = canonicalHost(u)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	if u.RawQuery != "" {
		u.RawQuery = canonicalQuery(u.RawQuery)
	}
	u.Fragment = ""
	u.RawFragment = ""

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = u.Path[:len(u.Path)-1]
		u.RawPath = ""
	}

	return u.String()
}

// canonicalHost lowercases the host and drops the scheme's default port.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Host)
	switch port := u.Port(); {
	case port == "80" && strings.EqualFold(u.Scheme, "http"),
		port == "443" && strings.EqualFold(u.Scheme, "https"):
		host = strings.TrimSuffix(host, ":"+port)
	}
	return host
}

// canonicalQuery drops tracking parameters and orders the rest by key.
// Values that share a key keep their relative order.
func canonicalQuery(rawQuery string) string {
	type param struct{ key, value string }

	var params []param
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		if trackingParams[k] {
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			v = value
		}
		params = append(params, param{key: k, value: v})
	}

	sort.SliceStable(params, func(i, j int) bool {
		return params[i].key < params[j].key
	})

	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// IsTrackable reports whether a URL names a web page that can be captured.
// Browser-internal and opaque schemes are not trackable.
func IsTrackable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !isHTTP(u) || u.Host == "" {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, scheme := range opaqueSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

// IsBlocked reports whether the URL's host equals, or is a subdomain of,
// any of the blocked domains.
func IsBlocked(rawURL string, blockedDomains []string) bool {
	if len(blockedDomains) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, d := range blockedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
