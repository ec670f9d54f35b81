package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ferret/pkg/tool"
	"github.com/urfave/cli/v3"
)

func toolsCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, researchFlags(&cfg)...)
	flags = append(flags, toolFlags(&cfg)...)

	return &cli.Command{
		Name:  "tools",
		Usage: "Show which tools each agent can use",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			rc, err := cfg.newResearchConfig()
			if err != nil {
				return err
			}

			registry, closeFn, err := cfg.newTools(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			w := c.Root().Writer
			for _, st := range registry.Status(rc.RoleTools) {
				fmt.Fprintf(w, "%s\n", st.Role)
				fmt.Fprintf(w, "  available: %s\n", joinOrNone(st.Available))
				fmt.Fprintf(w, "  missing:   %s\n", joinOrNone(st.Missing))
			}
			fmt.Fprintf(w, "common: %s\n", strings.Join(tool.CommonTools, ", "))
			return nil
		},
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
