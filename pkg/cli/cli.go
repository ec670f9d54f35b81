package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "ferret",
		Usage: "Multi-agent research assistant",
		Commands: []*cli.Command{
			runCommand(),
			serveCommand(),
			shellCommand(),
			runsCommand(),
			analyzeSourceCommand(),
			toolsCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
