package whatchanged

import "context"

// SnapshotRequest is a page capture submitted by a capture agent.
type SnapshotRequest struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Method Method `json:"method"`
}

// SnapshotResponse reports what happened to a submitted capture.
type SnapshotResponse struct {
	Stored     bool `json:"stored"`
	HasChanges bool `json:"hasChanges"`

	// ChangeCount is the number of changed spans when HasChanges is set.
	ChangeCount int `json:"changeCount"`
}

// Recorder accepts page captures.
type Recorder interface {
	// RecordSnapshot stores a capture and reports whether it surfaced a
	// change worth showing.
	RecordSnapshot(ctx context.Context, req *SnapshotRequest) (*SnapshotResponse, error)
}
