package main

import (
	"fmt"

	"github.com/fwojciec/whatchanged"
)

// Run executes the stats command.
func (c *StatsCmd) Run(deps *Dependencies) error {
	stats, err := deps.Dispatcher.GetStats(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Snapshots:   %d\n", stats.TotalSnapshots)
	fmt.Fprintf(deps.Stdout, "Pages:       %d\n", stats.UniqueURLs)
	fmt.Fprintf(deps.Stdout, "Stored text: %d bytes\n", stats.TotalBytes)
	return nil
}

// Run executes the prune command.
func (c *PruneCmd) Run(deps *Dependencies) error {
	settings, err := deps.Settings.FindSettings(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	n, err := deps.Dispatcher.Prune(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Pruned %d snapshots older than %d days\n", n, settings.RetentionDays)
	return nil
}

// Run executes the clear command.
func (c *ClearCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return whatchanged.Errorf(whatchanged.EINVALID, "use --force to confirm deletion")
	}

	if err := deps.Dispatcher.ClearAll(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, "Deleted all snapshots")
	return nil
}
