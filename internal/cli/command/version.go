package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/wrought-go/internal/cli/output"
	"github.com/yndnr/wrought-go/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show build information",
		Action: version,
	}
}

func version(c *cli.Context) error {
	env := getEnv(c)
	if env.Format == output.FormatTable {
		fmt.Fprintf(env.Stdout, "wi %s\n", buildinfo.String())
		return nil
	}
	return env.Render(buildinfo.Get())
}
