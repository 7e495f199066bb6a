package dispatch

import (
	"context"

	"github.com/fwojciec/whatchanged"
)

// Message types.
const (
	TypeSnapshot  = "snapshot"
	TypeGetDiff   = "get-diff"
	TypeGetStatus = "get-status"
	TypeGetStats  = "get-stats"
	TypeClearAll  = "clear-all"
	TypeCapture   = "capture"
)

// Message is a request from a capture agent or the presentation layer.
type Message struct {
	Type string `json:"type"`

	// URL is set for get-diff, get-status and capture.
	URL string `json:"url,omitempty"`

	// HTML is the raw page for capture.
	HTML string `json:"html,omitempty"`

	// Data is the extracted page for snapshot.
	Data *whatchanged.SnapshotRequest `json:"data,omitempty"`
}

// OKResponse answers clear-all.
type OKResponse struct {
	OK bool `json:"ok"`
}

// Handle routes a message to its operation. The second return value is
// false for unknown message types, which get no response.
//
// Failures are logged and answered with the operation's no-op response so
// the caller never sees an error.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) (any, bool) {
	switch msg.Type {
	case TypeSnapshot:
		if msg.Data == nil {
			return &whatchanged.SnapshotResponse{}, true
		}
		resp, err := d.RecordSnapshot(ctx, msg.Data)
		if err != nil {
			d.logFailure(msg, err)
			return &whatchanged.SnapshotResponse{}, true
		}
		return resp, true

	case TypeCapture:
		resp, err := d.Capture(ctx, msg.URL, msg.HTML)
		if err != nil {
			d.logFailure(msg, err)
			return &whatchanged.SnapshotResponse{}, true
		}
		return resp, true

	case TypeGetDiff:
		resp, err := d.GetDiff(ctx, msg.URL)
		if err != nil {
			d.logFailure(msg, err)
			return (*whatchanged.DiffResponse)(nil), true
		}
		return resp, true

	case TypeGetStatus:
		resp, err := d.GetStatus(ctx, msg.URL)
		if err != nil {
			d.logFailure(msg, err)
			return &whatchanged.StatusResponse{}, true
		}
		return resp, true

	case TypeGetStats:
		resp, err := d.GetStats(ctx)
		if err != nil {
			d.logFailure(msg, err)
			return &whatchanged.Stats{}, true
		}
		return resp, true

	case TypeClearAll:
		if err := d.ClearAll(ctx); err != nil {
			d.logFailure(msg, err)
			return &OKResponse{}, true
		}
		return &OKResponse{OK: true}, true
	}

	return nil, false
}

func (d *Dispatcher) logFailure(msg *Message, err error) {
	url := msg.URL
	if msg.Data != nil {
		url = msg.Data.URL
	}
	d.logger.Error("message failed",
		"type", msg.Type,
		"url", url,
		"code", whatchanged.ErrorCode(err),
		"error", err,
	)
}
