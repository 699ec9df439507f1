package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yndnr/wrought-go/internal/cli/command"
	"github.com/yndnr/wrought-go/internal/infra/shutdown"
)

func main() {
	h, ctx := shutdown.Watch(context.Background())
	h.OnSignal(func(sig os.Signal) {
		fmt.Fprintf(os.Stderr, "\nreceived %s, cancelling\n", sig)
	})

	app := command.App()
	err := app.RunContext(ctx, os.Args)
	h.Stop()

	if sig := h.Signal(); sig != nil {
		os.Exit(shutdown.ExitCode(sig))
	}
	if err != nil {
		command.PrintError(os.Stderr, err)
		os.Exit(command.ExitCode(err))
	}
}
