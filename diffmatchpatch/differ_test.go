package diffmatchpatch_test

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(text string) *whatchanged.Snapshot {
	return &whatchanged.Snapshot{Text: text}
}

// reconstruct rebuilds the old and new texts from a change list.
func reconstruct(changes []whatchanged.Change) (string, string) {
	var oldB, newB strings.Builder
	for _, c := range changes {
		if !c.Added {
			oldB.WriteString(c.Value)
		}
		if !c.Removed {
			newB.WriteString(c.Value)
		}
	}
	return oldB.String(), newB.String()
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Price:", " ", "$10"}, diffmatchpatch.Tokenize("Price: $10"))
	assert.Equal(t, []string{" ", "a", "\n\n", "b", " "}, diffmatchpatch.Tokenize(" a\n\nb "))
	assert.Equal(t, []string{"héllo", " ", "wörld"}, diffmatchpatch.Tokenize("héllo wörld"))
	assert.Empty(t, diffmatchpatch.Tokenize(""))
}

func TestDiffer_Diff(t *testing.T) {
	t.Parallel()

	t.Run("price change", func(t *testing.T) {
		t.Parallel()

		older, newer := snap("Price: $10"), snap("Price: $20")

		result := diffmatchpatch.NewDiffer().Diff(older, newer)

		assert.Same(t, older, result.OldSnapshot)
		assert.Same(t, newer, result.NewSnapshot)
		assert.Equal(t, []whatchanged.Change{
			{Value: "Price: "},
			{Value: "$10", Removed: true},
			{Value: "$20", Added: true},
		}, result.Changes)
		assert.Equal(t, 2, result.ChangeCount())
		assert.InDelta(t, 0.6, result.Significance, 1e-9)
	})

	t.Run("identical text has no changes", func(t *testing.T) {
		t.Parallel()

		result := diffmatchpatch.NewDiffer().Diff(snap("Same words here"), snap("Same   words here\n"))

		assert.Equal(t, 0, result.ChangeCount())
		assert.InDelta(t, 0.0, result.Significance, 1e-9)
	})

	t.Run("ephemeral fragments do not count", func(t *testing.T) {
		t.Parallel()

		result := diffmatchpatch.NewDiffer().Diff(
			snap("Story text. Posted 5 minutes ago"),
			snap("Story text. Posted 2 hours ago"),
		)

		assert.Equal(t, 0, result.ChangeCount())
	})

	t.Run("both empty", func(t *testing.T) {
		t.Parallel()

		result := diffmatchpatch.NewDiffer().Diff(snap(""), snap(""))

		assert.Empty(t, result.Changes)
		assert.InDelta(t, 0.0, result.Significance, 1e-9)
	})

	t.Run("from empty", func(t *testing.T) {
		t.Parallel()

		result := diffmatchpatch.NewDiffer().Diff(snap(""), snap("brand new"))

		assert.Equal(t, []whatchanged.Change{{Value: "brand new", Added: true}}, result.Changes)
		assert.InDelta(t, 1.0, result.Significance, 1e-9)
	})

	t.Run("changes are word granular", func(t *testing.T) {
		t.Parallel()

		result := diffmatchpatch.NewDiffer().Diff(snap("the cat sat"), snap("the car sat"))

		for _, c := range result.Changes {
			if c.Added {
				assert.Equal(t, "car", c.Value)
			}
			if c.Removed {
				assert.Equal(t, "cat", c.Value)
			}
		}
	})

	t.Run("significance stays within bounds", func(t *testing.T) {
		t.Parallel()

		d := diffmatchpatch.NewDiffer()
		pairs := [][2]string{
			{"a b c", "x y z"},
			{"one", "one two three four"},
			{"long text with many words", "short"},
			{"α β γ", "α β δ"},
		}

		for _, p := range pairs {
			r := d.Diff(snap(p[0]), snap(p[1]))
			assert.GreaterOrEqual(t, r.Significance, 0.0, p)
			assert.LessOrEqual(t, r.Significance, 1.0, p)
		}
	})
}

func TestDiffer_DiffText_Reconstructs(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"Price: $10", "Price: $20"},
		{"The quick brown fox\njumps over the dog", "The slow brown fox\njumps over the lazy dog"},
		{"", "added"},
		{"removed", ""},
		{"a a a a", "a b a b"},
		{"héllo wörld", "hello world"},
	}

	d := diffmatchpatch.NewDiffer()
	for _, p := range pairs {
		changes := d.DiffText(p[0], p[1])

		oldText, newText := reconstruct(changes)
		require.Equal(t, p[0], oldText)
		require.Equal(t, p[1], newText)

		for _, c := range changes {
			assert.False(t, c.Added && c.Removed, "change %q is both added and removed", c.Value)
			assert.NotEmpty(t, c.Value)
		}
	}
}

var diffFragments = []string{
	"a", "b", "the", "cat", "$10", "$20", " ", "  ", "\n", "\t", "\r", "\u0085", "\xff", "é", "\u201c", "5 minutes ago",
}

func randomText(r *rand.Rand, maxParts int) string {
	var b strings.Builder
	for range r.IntN(maxParts + 1) {
		b.WriteString(diffFragments[r.IntN(len(diffFragments))])
	}
	return b.String()
}

func TestDiffer_RandomPairs(t *testing.T) {
	t.Parallel()

	d := diffmatchpatch.NewDiffer()
	r := rand.New(rand.NewPCG(7, 11))
	for range 2000 {
		oldText, newText := randomText(r, 20), randomText(r, 20)

		changes := d.DiffText(oldText, newText)
		gotOld, gotNew := reconstruct(changes)
		require.Equal(t, oldText, gotOld)
		require.Equal(t, newText, gotNew)
		for _, c := range changes {
			require.False(t, c.Added && c.Removed, "change %q is both added and removed", c.Value)
		}

		result := d.Diff(snap(oldText), snap(newText))
		require.GreaterOrEqual(t, result.Significance, 0.0)
		require.LessOrEqual(t, result.Significance, 1.0)
	}
}
