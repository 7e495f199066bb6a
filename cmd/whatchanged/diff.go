package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fwojciec/whatchanged"
)

const timeLayout = "2006-01-02 15:04:05"

// Run executes the diff command.
func (c *DiffCmd) Run(deps *Dependencies) error {
	diff, err := deps.Dispatcher.GetDiff(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diff)
	}

	if diff == nil {
		fmt.Fprintf(deps.Stdout, "Nothing to compare for %s: fewer than two snapshots.\n", c.URL)
		return nil
	}

	fmt.Fprintf(deps.Stdout, "%s\n", diff.Title)
	fmt.Fprintf(deps.Stdout, "Compared %s to %s\n", formatMillis(diff.OldTimestamp), formatMillis(diff.NewTimestamp))
	fmt.Fprintf(deps.Stdout, "Significance %.1f%% (%d changes, threshold %.1f%%)\n",
		diff.Significance*100, diff.ChangeCount, diff.MinSignificance)
	if diff.IsDynamic {
		fmt.Fprintln(deps.Stdout, "Dynamic page: changes are not surfaced.")
	}
	fmt.Fprintln(deps.Stdout)
	writeChanges(deps.Stdout, diff.Changes)
	fmt.Fprintln(deps.Stdout)
	return nil
}

// writeChanges renders a word diff with [-removed-] and {+added+} markers.
func writeChanges(w io.Writer, changes []whatchanged.Change) {
	for _, c := range changes {
		switch {
		case c.Removed:
			fmt.Fprintf(w, "[-%s-]", c.Value)
		case c.Added:
			fmt.Fprintf(w, "{+%s+}", c.Value)
		default:
			fmt.Fprint(w, c.Value)
		}
	}
}

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	status, err := deps.Dispatcher.GetStatus(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Snapshots:  %d\n", status.SnapshotCount)
	if status.LastVisit != nil {
		fmt.Fprintf(deps.Stdout, "Last visit: %s\n", formatMillis(*status.LastVisit))
	} else {
		fmt.Fprintln(deps.Stdout, "Last visit: never")
	}
	if status.HasChanges {
		fmt.Fprintf(deps.Stdout, "Changed:    yes (%d changes)\n", status.ChangeCount)
	} else {
		fmt.Fprintln(deps.Stdout, "Changed:    no")
	}
	return nil
}

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	url := whatchanged.NormalizeURL(c.URL)
	snaps, err := deps.Snapshots.FindSnapshots(deps.Ctx, whatchanged.SnapshotFilter{URL: &url, Limit: c.Limit})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	if len(snaps) == 0 {
		fmt.Fprintf(deps.Stdout, "No snapshots for %s\n", url)
		return nil
	}

	for _, s := range snaps {
		fmt.Fprintf(deps.Stdout, "%s  %-11s %7d  %s  %s\n",
			s.Timestamp.Local().Format(timeLayout), s.Method, s.ByteLength, s.ContentHash, s.Title)
	}
	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format(timeLayout)
}
