// Package goquery implements page cleaning and content extraction using
// goquery and the x/net/html node tree.
package goquery

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Predicate decides whether a node is noise. Element predicates never
// match text nodes and text predicates never match elements.
type Predicate interface {
	Match(n *html.Node) bool
}

// Tag matches elements with the given tag name.
type Tag string

func (t Tag) Match(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == string(t)
}

// ClassContains matches elements whose class attribute contains the
// substring, like the CSS [class*=...] selector. Matching is case-sensitive.
type ClassContains string

func (c ClassContains) Match(n *html.Node) bool {
	v, ok := attr(n, "class")
	return ok && strings.Contains(v, string(c))
}

// HasClass matches elements carrying the class token.
type HasClass string

func (c HasClass) Match(n *html.Node) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, tok := range strings.Fields(v) {
		if tok == string(c) {
			return true
		}
	}
	return false
}

// ClassPrefix matches elements with a class token starting with the prefix.
type ClassPrefix string

func (c ClassPrefix) Match(n *html.Node) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, tok := range strings.Fields(v) {
		if strings.HasPrefix(tok, string(c)) {
			return true
		}
	}
	return false
}

// IDContains matches elements whose id contains the substring.
type IDContains string

func (c IDContains) Match(n *html.Node) bool {
	v, ok := attr(n, "id")
	return ok && strings.Contains(v, string(c))
}

// AttrPresent matches elements carrying the attribute.
type AttrPresent string

func (a AttrPresent) Match(n *html.Node) bool {
	_, ok := attr(n, string(a))
	return ok
}

// AttrEquals matches elements whose attribute has exactly the value.
type AttrEquals struct {
	Key, Value string
}

func (a AttrEquals) Match(n *html.Node) bool {
	v, ok := attr(n, a.Key)
	return ok && v == a.Value
}

// AttrContains matches elements whose attribute contains the substring.
type AttrContains struct {
	Key, Value string
}

func (a AttrContains) Match(n *html.Node) bool {
	v, ok := attr(n, a.Key)
	return ok && strings.Contains(v, a.Value)
}

// Role matches elements with the ARIA role.
type Role string

func (r Role) Match(n *html.Node) bool {
	return AttrEquals{Key: "role", Value: string(r)}.Match(n)
}

// TextMatches matches text nodes whose trimmed content matches the pattern.
type TextMatches struct {
	Pattern *regexp.Regexp
}

func (t TextMatches) Match(n *html.Node) bool {
	return n.Type == html.TextNode && t.Pattern.MatchString(strings.TrimSpace(n.Data))
}

// AnyOf matches when any of its predicates match.
type AnyOf []Predicate

func (a AnyOf) Match(n *html.Node) bool {
	for _, p := range a {
		if p.Match(n) {
			return true
		}
	}
	return false
}

// NoiseRule is a named category of noise.
type NoiseRule struct {
	Name  string
	Match Predicate
}

// counterTextRe matches text that is only a social-proof counter.
var counterTextRe = regexp.MustCompile(`(?i)^\d[\d.,]*[km]?\s*(?:shares?|likes?|comments?|retweets?|views?|reactions?)$`)

// DefaultNoiseRules returns the built-in noise categories.
func DefaultNoiseRules() []NoiseRule {
	return []NoiseRule{
		{Name: "ads", Match: AnyOf{
			ClassContains("ad-"), ClassContains("Ad"), HasClass("ad"), HasClass("ads"),
			ClassContains("advert"), IDContains("ad-"),
			AttrPresent("data-ad"), AttrContains{Key: "data-testid", Value: "ad"},
		}},
		{Name: "structure", Match: AnyOf{
			Tag("nav"), Tag("header"), Tag("footer"), Tag("aside"),
			Role("complementary"), Role("banner"), Role("navigation"), Role("contentinfo"),
		}},
		{Name: "widgets", Match: AnyOf{
			ClassContains("recommend"), ClassContains("sidebar"), ClassContains("related"),
			ClassContains("trending"), ClassContains("popular"), ClassContains("sponsored"),
		}},
		{Name: "counters", Match: AnyOf{
			Tag("time"), ClassContains("timestamp"),
			ClassContains("comment-count"), ClassContains("share-count"),
			ClassContains("like-count"), ClassContains("view-count"),
			TextMatches{Pattern: counterTextRe},
		}},
		{Name: "consent", Match: AnyOf{
			ClassContains("cookie"), ClassContains("consent"),
			IDContains("cookie"), IDContains("consent"),
		}},
		{Name: "promos", Match: AnyOf{
			HasClass("newsletter-signup"), ClassPrefix("newsletter"), ClassPrefix("subscribe"),
			ClassPrefix("promo"), ClassPrefix("cta"), ClassPrefix("modal"),
			ClassPrefix("overlay"), ClassPrefix("toast"), ClassPrefix("popup"),
			Role("dialog"),
		}},
		{Name: "share", Match: AnyOf{
			ClassPrefix("share"), ClassContains("social-share"), ClassContains("sharing"),
		}},
		{Name: "user-menus", Match: AnyOf{
			ClassContains("user-menu"), ClassContains("profile-menu"), ClassContains("account-menu"),
		}},
		{Name: "wayfinding", Match: AnyOf{
			ClassContains("breadcrumb"), ClassContains("pagination"),
			AttrEquals{Key: "aria-label", Value: "breadcrumb"},
			AttrEquals{Key: "aria-label", Value: "pagination"},
		}},
		{Name: "technical", Match: AnyOf{
			Tag("iframe"), Tag("script"), Tag("style"), Tag("noscript"), Tag("svg"),
			Tag("template"), Tag("object"), Tag("embed"),
		}},
	}
}

// NoiseRemover strips noise from parsed documents.
type NoiseRemover struct {
	rules     []NoiseRule
	selectors []cascadia.Matcher
	logger    *slog.Logger
}

// NoiseOption configures a NoiseRemover.
type NoiseOption func(*NoiseRemover)

// WithRules replaces the built-in rules.
func WithRules(rules []NoiseRule) NoiseOption {
	return func(r *NoiseRemover) {
		r.rules = rules
	}
}

// WithSelectors adds CSS selectors whose matches are removed as noise.
// Selectors that fail to compile are logged and skipped.
func WithSelectors(selectors ...string) NoiseOption {
	return func(r *NoiseRemover) {
		for _, s := range selectors {
			m, err := cascadia.Compile(s)
			if err != nil {
				r.logger.Warn("skipping invalid noise selector", "selector", s, "error", err)
				continue
			}
			r.selectors = append(r.selectors, m)
		}
	}
}

// WithNoiseLogger sets the logger for skipped selectors and failing rules.
// It must precede WithSelectors to see compile errors.
func WithNoiseLogger(logger *slog.Logger) NoiseOption {
	return func(r *NoiseRemover) {
		r.logger = logger
	}
}

// NewNoiseRemover creates a NoiseRemover with the default rules.
func NewNoiseRemover(opts ...NoiseOption) *NoiseRemover {
	r := &NoiseRemover{
		rules:  DefaultNoiseRules(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RemoveNoise returns a cleaned copy of doc. The input is never mutated.
// The html, head and body elements are never removed.
func (r *NoiseRemover) RemoveNoise(doc *goquery.Document) *goquery.Document {
	clone := goquery.CloneDocument(doc)
	if len(clone.Nodes) == 0 {
		return clone
	}
	root := clone.Nodes[0]

	for _, rule := range r.rules {
		if err := applyRule(root, rule); err != nil {
			r.logger.Warn("noise rule failed", "rule", rule.Name, "error", err)
		}
	}

	for _, m := range r.selectors {
		for _, n := range cascadia.QueryAll(root, m) {
			if !isSkeleton(n) {
				detach(n)
			}
		}
	}

	return clone
}

// applyRule removes every node matching the rule. A panicking predicate
// aborts only its own rule.
func applyRule(root *html.Node, rule NoiseRule) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	var matched []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if !isSkeleton(n) && rule.Match.Match(n) {
			matched = append(matched, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, n := range matched {
		detach(n)
	}
	return nil
}

func isSkeleton(n *html.Node) bool {
	if n.Type == html.DocumentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Html, atom.Head, atom.Body:
		return true
	}
	return false
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
