package mock

import "github.com/fwojciec/whatchanged"

var _ whatchanged.Differ = (*Differ)(nil)

// Differ is a mock implementation of whatchanged.Differ.
type Differ struct {
	DiffFn func(older, newer *whatchanged.Snapshot) *whatchanged.DiffResult
}

func (d *Differ) Diff(older, newer *whatchanged.Snapshot) *whatchanged.DiffResult {
	return d.DiffFn(older, newer)
}
