package whatchanged

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Ephemeral fragments that re-render between visits without the page
// meaning anything different.
var (
	relativeTimeRe = regexp.MustCompile(`(?i)\b\d+\s*(?:seconds?|secs?|minutes?|mins?|hours?|hrs?|days?|weeks?|months?|years?)\s*ago\b`)
	clockTimeRe    = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:AM|PM|am|pm)\b)?`)
	counterRe      = regexp.MustCompile(`(?i)\b\d[\d.,]*[km]?\s*(?:shares?|likes?|comments?|retweets?|views?|reactions?)\b`)

	newlineRunRe = regexp.MustCompile(`[\s\p{Zs}]*\n[\s\p{Zs}]*`)
	spaceRunRe   = regexp.MustCompile(`[\t\f\r\v\p{Zs}]+`)
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// NormalizeText reduces text to the form used for hashing and diffing.
// Relative times, clock times and social counters are dropped, curly
// quotes become straight, whitespace runs containing a newline become a
// single newline, other whitespace runs become a single space, and the
// result is trimmed.
//
// Removing a fragment can join its neighbours into a new removable
// fragment, so the pass repeats until nothing changes. That makes
// NormalizeText idempotent.
func NormalizeText(text string) string {
	for {
		next := normalizeOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizeOnce(text string) string {
	text = relativeTimeRe.ReplaceAllString(text, "")
	text = clockTimeRe.ReplaceAllString(text, "")
	text = counterRe.ReplaceAllString(text, "")
	text = quoteReplacer.Replace(text)
	text = newlineRunRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ContentHash returns the digest of the normalized form of text.
// Texts that normalize identically share a hash.
func ContentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(NormalizeText(text)))
}
