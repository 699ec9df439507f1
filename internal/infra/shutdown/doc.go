// Package shutdown turns termination signals into context cancellation.
//
// The first SIGINT or SIGTERM cancels the command context so long scans
// and transactions unwind through their normal error paths; a second
// signal gets the default behaviour and terminates the process.
//
// Usage:
//
//	h, ctx := shutdown.Watch(context.Background())
//	defer h.Stop()
//	err := app.RunContext(ctx, os.Args)
//	if sig := h.Signal(); sig != nil {
//		os.Exit(shutdown.ExitCode(sig))
//	}
package shutdown
