// Package bloom remembers which pages a batch capture has already queued.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/whatchanged"
)

// Filter is a concurrency-safe Bloom filter over normalized page URLs, so
// tracking parameters and fragments do not make one page look like two.
// A false positive skips a page; a page is never captured twice.
type Filter struct {
	mu sync.Mutex
	f  *bloom.BloomFilter
}

// NewFilter creates a filter sized for n pages with the given false
// positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Seen marks the page as seen and reports whether it was seen before.
func (f *Filter) Seen(rawURL string) bool {
	key := whatchanged.NormalizeURL(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.TestAndAddString(key)
}

// Test reports whether the page might have been seen.
func (f *Filter) Test(rawURL string) bool {
	key := whatchanged.NormalizeURL(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.TestString(key)
}

// EstimatedCount returns the approximate number of distinct pages seen.
func (f *Filter) EstimatedCount() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint(f.f.ApproximatedSize())
}
