package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/whatchanged/dispatch"
	wchttp "github.com/fwojciec/whatchanged/http"
)

// Run executes the serve command. It prunes on start and daily, and serves
// until the context is canceled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	addr := deps.Config.ListenAddr
	if c.Listen != "" {
		addr = c.Listen
	}

	ctx, cancel := context.WithCancel(deps.Ctx)
	defer cancel()

	go deps.Dispatcher.RunRetention(ctx, dispatch.RetentionInterval)

	srv := wchttp.NewServer(deps.Dispatcher, deps.Logger)
	fmt.Fprintf(deps.Stdout, "Serving on http://%s (POST /messages)\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", err)
		return err
	}
	return nil
}
