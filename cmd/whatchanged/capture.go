package main

import (
	"fmt"

	"github.com/fwojciec/whatchanged"
	"github.com/fwojciec/whatchanged/capture"
)

// Run executes the capture command.
func (c *CaptureCmd) Run(deps *Dependencies) error {
	if len(c.URLs) == 0 && len(c.Sitemap) == 0 {
		fmt.Fprintln(deps.Stderr, "error: give page URLs or --sitemap")
		return whatchanged.Errorf(whatchanged.EINVALID, "nothing to capture")
	}

	urls := append([]string(nil), c.URLs...)
	for _, sm := range c.Sitemap {
		discovered, err := deps.Agent.Sitemaps.DiscoverURLs(deps.Ctx, sm)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: sitemap %s: %s\n", sm, whatchanged.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Found %d pages in %s\n", len(discovered), sm)
		urls = append(urls, discovered...)
	}

	res, err := deps.Agent.CaptureAll(deps.Ctx, urls, func(completed, total int, page capture.PageResult) {
		fmt.Fprintf(deps.Stdout, "[%d/%d] %-9s %s%s\n", completed, total, page.Outcome, page.URL, detail(page))
	})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}

	fmt.Fprintf(deps.Stdout, "\n%d changed, %d stored, %d unchanged, %d skipped, %d failed\n",
		res.Changed, res.Stored, res.Unchanged, res.Skipped, res.Failed)

	if res.Failed > 0 && res.Failed == len(res.Pages) {
		return whatchanged.Errorf(whatchanged.EINTERNAL, "all %d captures failed", res.Failed)
	}
	return nil
}

func detail(page capture.PageResult) string {
	switch page.Outcome {
	case capture.OutcomeChanged:
		return fmt.Sprintf(" (%d changes)", page.ChangeCount)
	case capture.OutcomeSkipped:
		return " (" + page.Reason + ")"
	case capture.OutcomeFailed:
		return fmt.Sprintf(" (%v)", page.Err)
	}
	return ""
}
