package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/ferret/pkg/metrics"
	"github.com/m-mizutani/ferret/pkg/server"
	"github.com/m-mizutani/ferret/pkg/usecase/research"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg         config
		addr        string
		carryMemory bool
		recentSize  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       "127.0.0.1:8000",
			Sources:     cli.EnvVars("FERRET_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "carry-memory",
			Usage:       "Seed long-term memory from the newest saved run",
			Sources:     cli.EnvVars("FERRET_CARRY_MEMORY"),
			Destination: &carryMemory,
		},
		&cli.IntFlag{
			Name:        "recent-size",
			Usage:       "Number of runs kept for /recent and /metrics/summary",
			Value:       10,
			Sources:     cli.EnvVars("FERRET_RECENT_SIZE"),
			Destination: &recentSize,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, researchFlags(&cfg)...)
	flags = append(flags, toolFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the research HTTP API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			recorder := metrics.New(metrics.WithRecentSize(int(recentSize)))
			session, closeFn, err := cfg.newSession(ctx, carryMemory, research.WithObserver(recorder))
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(session, recorder).ListenAndServe(ctx, addr)
		},
	}
}
