package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fwojciec/whatchanged"
)

// Run executes the settings command. Without flags it prints the current
// settings.
func (c *SettingsCmd) Run(deps *Dependencies) error {
	settings, err := deps.Settings.FindSettings(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
		return err
	}

	if c.changes() {
		upd := whatchanged.SettingsUpdate{
			RetentionDays:   c.RetentionDays,
			MinSignificance: c.MinSignificance,
		}
		if len(c.Block) > 0 || len(c.Unblock) > 0 {
			upd.BlockedDomains = mergeDomains(settings.BlockedDomains, c.Block, c.Unblock)
		}

		settings, err = deps.Settings.UpdateSettings(deps.Ctx, upd)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", whatchanged.ErrorMessage(err))
			return err
		}
	}

	fmt.Fprintf(deps.Stdout, "Retention:        %d days\n", settings.RetentionDays)
	fmt.Fprintf(deps.Stdout, "Min significance: %g%%\n", settings.MinSignificance)
	if len(settings.BlockedDomains) == 0 {
		fmt.Fprintln(deps.Stdout, "Blocked domains:  none")
	} else {
		fmt.Fprintf(deps.Stdout, "Blocked domains:  %s\n", strings.Join(settings.BlockedDomains, ", "))
	}
	return nil
}

func (c *SettingsCmd) changes() bool {
	return c.RetentionDays != nil || c.MinSignificance != nil || len(c.Block) > 0 || len(c.Unblock) > 0
}

// mergeDomains adds block and removes unblock, case-insensitively, keeping
// the order of the current list. The result is never nil.
func mergeDomains(current, block, unblock []string) []string {
	out := []string{}
	has := func(d string) bool {
		return slices.ContainsFunc(out, func(o string) bool { return strings.EqualFold(o, d) })
	}
	removed := func(d string) bool {
		return slices.ContainsFunc(unblock, func(u string) bool { return strings.EqualFold(strings.TrimSpace(u), d) })
	}
	for _, d := range append(slices.Clone(current), block...) {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || has(d) || removed(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
