package whatchanged

import (
	"math"
	"regexp"
	"unicode/utf8"
)

// DefaultDynamicCeiling is the significance above which a change is
// treated as a template rewrite rather than an edit.
const DefaultDynamicCeiling = 0.8

// Change is a single span of a word-level diff. A span with neither
// Added nor Removed set is unchanged context.
type Change struct {
	Value   string `json:"value"`
	Added   bool   `json:"added,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// DiffResult is the comparison of two snapshots of the same URL.
type DiffResult struct {
	OldSnapshot *Snapshot
	NewSnapshot *Snapshot
	Changes     []Change

	// Significance is the fraction of text affected by the change, in [0,1].
	Significance float64
}

// ChangeCount returns the number of added or removed spans.
func (d *DiffResult) ChangeCount() int {
	return countChanges(d.Changes)
}

// Differ computes word-level diffs between snapshots.
type Differ interface {
	// Diff compares the normalized text of two snapshots of the same URL.
	Diff(older, newer *Snapshot) *DiffResult
}

// Significance returns the share of changed characters: the rune length
// of all added and removed spans divided by the rune length of the longer
// text. Two empty texts have significance 0. The ratio is clamped to 1,
// which is only reached when nearly every span on both sides changed.
func Significance(oldText, newText string, changes []Change) float64 {
	total := max(utf8.RuneCountInString(oldText), utf8.RuneCountInString(newText))
	if total == 0 {
		return 0
	}

	var changed int
	for _, c := range changes {
		if c.Added || c.Removed {
			changed += utf8.RuneCountInString(c.Value)
		}
	}

	return math.Min(float64(changed)/float64(total), 1)
}

// DiffResponse is the diff packaged for the presentation layer.
type DiffResponse struct {
	OldTimestamp    int64    `json:"oldTimestamp"`
	NewTimestamp    int64    `json:"newTimestamp"`
	Title           string   `json:"title"`
	Significance    float64  `json:"significance"`
	Changes         []Change `json:"changes"`
	ChangeCount     int      `json:"changeCount"`
	MinSignificance float64  `json:"minSignificance"`
	IsDynamic       bool     `json:"isDynamic"`
}

// StatusResponse summarizes the capture history of one URL.
type StatusResponse struct {
	SnapshotCount int    `json:"snapshotCount"`
	LastVisit     *int64 `json:"lastVisit"`
	HasChanges    bool   `json:"hasChanges"`
	ChangeCount   int    `json:"changeCount"`
}

// DefaultFeedPatterns match high-churn pages such as social timelines,
// search and explore pages, and aggregator front pages.
func DefaultFeedPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`twitter\.com/(home|explore|search)`),
		regexp.MustCompile(`x\.com/(home|explore|search)`),
		regexp.MustCompile(`facebook\.com/?$`),
		regexp.MustCompile(`reddit\.com/?$`),
		regexp.MustCompile(`instagram\.com/?$`),
		regexp.MustCompile(`tiktok\.com/(foryou|explore)`),
		regexp.MustCompile(`news\.ycombinator\.com/?$`),
		regexp.MustCompile(`linkedin\.com/feed`),
	}
}

// Policy classifies diffs whose changes should not be surfaced.
type Policy struct {
	// FeedPatterns match URLs of pages that churn on every visit.
	FeedPatterns []*regexp.Regexp

	// DynamicCeiling is the significance above which a diff counts as a
	// near-total rewrite.
	DynamicCeiling float64
}

// DefaultPolicy returns the policy with the built-in feed patterns and
// ceiling.
func DefaultPolicy() *Policy {
	return &Policy{
		FeedPatterns:   DefaultFeedPatterns(),
		DynamicCeiling: DefaultDynamicCeiling,
	}
}

// IsDynamicFeed reports whether a URL is a known feed, or whether the
// significance is so high the page was rewritten rather than edited.
func (p *Policy) IsDynamicFeed(url string, significance float64) bool {
	for _, re := range p.FeedPatterns {
		if re.MatchString(url) {
			return true
		}
	}
	return significance > p.DynamicCeiling
}

// Suppress reports whether a diff should be hidden from the user: the page
// is a dynamic feed or the change is below minSignificance (0-100).
func (p *Policy) Suppress(url string, diff *DiffResult, minSignificance float64) bool {
	return p.IsDynamicFeed(url, diff.Significance) || diff.Significance < minSignificance/100
}

// BuildDiffResponse packages a diff for the presentation layer. It only
// annotates; nothing is filtered out.
func (p *Policy) BuildDiffResponse(diff *DiffResult, minSignificance float64, url string) *DiffResponse {
	return &DiffResponse{
		OldTimestamp:    diff.OldSnapshot.Millis(),
		NewTimestamp:    diff.NewSnapshot.Millis(),
		Title:           diff.NewSnapshot.Title,
		Significance:    diff.Significance,
		Changes:         diff.Changes,
		ChangeCount:     countChanges(diff.Changes),
		MinSignificance: minSignificance,
		IsDynamic:       p.IsDynamicFeed(url, diff.Significance),
	}
}

func countChanges(changes []Change) int {
	var n int
	for _, c := range changes {
		if c.Added || c.Removed {
			n++
		}
	}
	return n
}
