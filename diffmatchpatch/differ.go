// Package diffmatchpatch implements word-level snapshot diffs on top of
// sergi/go-diff.
package diffmatchpatch

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/whatchanged"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Compile-time interface verification.
var _ whatchanged.Differ = (*Differ)(nil)

// DefaultTimeout bounds the time spent on a single diff. A diff that runs
// out of time is still valid, only less minimal.
const DefaultTimeout = time.Second

// Differ computes word-granular diffs. Each distinct token is encoded as
// one rune so diff-match-patch never splits a word.
type Differ struct {
	Timeout time.Duration
}

// NewDiffer creates a Differ with the default timeout.
func NewDiffer() *Differ {
	return &Differ{Timeout: DefaultTimeout}
}

// Diff compares the normalized text of two snapshots.
func (d *Differ) Diff(older, newer *whatchanged.Snapshot) *whatchanged.DiffResult {
	oldText := whatchanged.NormalizeText(older.Text)
	newText := whatchanged.NormalizeText(newer.Text)

	changes := d.DiffText(oldText, newText)

	return &whatchanged.DiffResult{
		OldSnapshot:  older,
		NewSnapshot:  newer,
		Changes:      changes,
		Significance: whatchanged.Significance(oldText, newText, changes),
	}
}

// DiffText returns the word-level changes turning oldText into newText.
// Concatenating unchanged and removed spans yields oldText; unchanged and
// added spans yield newText.
func (d *Differ) DiffText(oldText, newText string) []whatchanged.Change {
	enc := newTokenEncoder()
	oldRunes, ok1 := enc.encode(Tokenize(oldText))
	newRunes, ok2 := enc.encode(Tokenize(newText))
	if !ok1 || !ok2 {
		return replaceAll(oldText, newText)
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = d.Timeout

	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)

	changes := make([]whatchanged.Change, 0, len(diffs))
	for _, df := range diffs {
		value := enc.decode(df.Text)
		if value == "" {
			continue
		}
		c := whatchanged.Change{Value: value}
		switch df.Type {
		case diffmatchpatch.DiffInsert:
			c.Added = true
		case diffmatchpatch.DiffDelete:
			c.Removed = true
		}
		changes = appendMerged(changes, c)
	}
	return changes
}

// Tokenize splits text into maximal runs of whitespace and of
// non-whitespace.
func Tokenize(text string) []string {
	var tokens []string
	start := 0
	var inSpace bool
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i > start && space != inSpace {
			tokens = append(tokens, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// replaceAll is the diff of last resort: everything removed, everything
// added.
func replaceAll(oldText, newText string) []whatchanged.Change {
	var changes []whatchanged.Change
	if oldText != "" {
		changes = append(changes, whatchanged.Change{Value: oldText, Removed: true})
	}
	if newText != "" {
		changes = append(changes, whatchanged.Change{Value: newText, Added: true})
	}
	return changes
}

// appendMerged appends c, joining it with the previous span of the same
// kind.
func appendMerged(changes []whatchanged.Change, c whatchanged.Change) []whatchanged.Change {
	if n := len(changes); n > 0 {
		last := &changes[n-1]
		if last.Added == c.Added && last.Removed == c.Removed {
			last.Value += c.Value
			return changes
		}
	}
	return append(changes, c)
}

// tokenEncoder maps distinct tokens to runes, skipping the surrogate range
// which is not valid in UTF-8 strings.
type tokenEncoder struct {
	runes  map[string]rune
	tokens []string
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{runes: make(map[string]rune)}
}

// encode returns false once the token vocabulary outgrows the rune space.
func (e *tokenEncoder) encode(tokens []string) ([]rune, bool) {
	out := make([]rune, len(tokens))
	for i, tok := range tokens {
		r, ok := e.runes[tok]
		if !ok {
			r = indexRune(len(e.tokens))
			if r > utf8.MaxRune {
				return nil, false
			}
			e.runes[tok] = r
			e.tokens = append(e.tokens, tok)
		}
		out[i] = r
	}
	return out, true
}

func (e *tokenEncoder) decode(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteString(e.tokens[runeIndex(r)])
	}
	return b.String()
}

const (
	surrogateMin = 0xD800
	surrogateLen = 0xE000 - 0xD800
)

func indexRune(i int) rune {
	r := rune(i + 1)
	if r >= surrogateMin {
		r += surrogateLen
	}
	return r
}

func runeIndex(r rune) int {
	if r >= surrogateMin+surrogateLen {
		r -= surrogateLen
	}
	return int(r) - 1
}
