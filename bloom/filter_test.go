package bloom_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/whatchanged/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_Seen(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("https://example.com/page1"))
	assert.False(t, f.Seen("https://example.com/page1"))
	assert.True(t, f.Seen("https://example.com/page1"))
	assert.True(t, f.Test("https://example.com/page1"))
	assert.False(t, f.Test("https://example.com/page2"))
}

func TestFilter_SeenNormalizesURLs(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Seen("https://example.com/pricing?utm_source=mail#plans"))
	assert.True(t, f.Seen("https://example.com/pricing/"))
	assert.True(t, f.Test("https://example.com/pricing?fbclid=abc"))
}

func TestFilter_EstimatedCount(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)
	assert.Equal(t, uint(0), f.EstimatedCount())

	f.Seen("https://example.com/page1")
	f.Seen("https://example.com/page2")
	f.Seen("https://example.com/page3")
	f.Seen("https://example.com/page3")

	count := f.EstimatedCount()
	assert.True(t, count >= 2 && count <= 4, "expected count near 3, got %d", count)
}

func TestFilter_ConcurrentSeenAdmitsOnce(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	var wg sync.WaitGroup
	var first atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !f.Seen("https://example.com/same") {
				first.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), first.Load())
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		numItems   = 10000
		fpRate     = 0.01
		testProbes = 10000
	)

	f := bloom.NewFilter(numItems, fpRate)
	for i := range numItems {
		f.Seen(fmt.Sprintf("https://example.com/added/%d", i))
	}

	falsePositives := 0
	for i := range testProbes {
		if f.Test(fmt.Sprintf("https://example.com/notadded/%d", i)) {
			falsePositives++
		}
	}

	actualRate := float64(falsePositives) / float64(testProbes)
	assert.Less(t, actualRate, 0.02, "false positive rate %f exceeds 2%%", actualRate)
}
