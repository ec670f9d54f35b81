package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/m-mizutani/ferret/pkg/model"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/ferret/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Inspect saved research runs",
		Commands: []*cli.Command{
			runsListCommand(),
			runsShowCommand(),
		},
	}
}

func runsListCommand() *cli.Command {
	var (
		cfg   config
		limit int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of runs to list",
			Value:       repository.DefaultListLimit,
			Sources:     cli.EnvVars("FERRET_LIST_LIMIT"),
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List saved runs, newest first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			repo, closeFn, err := cfg.requireRepository(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := repo.ListRuns(ctx, int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list runs")
			}

			for _, run := range runs {
				status := "success"
				if !run.Success {
					status = "failed"
				}
				fmt.Fprintf(c.Root().Writer, "%s\t%s\t%s\t%s\n",
					run.ID,
					run.CreatedAt.Format("2006-01-02 15:04:05"),
					status,
					run.Query,
				)
			}

			return nil
		},
	}
}

func runsShowCommand() *cli.Command {
	var (
		cfg    config
		runID  string
		format string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "run-id",
			Aliases:     []string{"id"},
			Usage:       "Run ID to show",
			Sources:     cli.EnvVars("FERRET_RUN_ID"),
			Destination: &runID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "What to show (markdown, json, memory)",
			Value:       formatMarkdown,
			Destination: &format,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show the report, result or memory of a saved run",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			repo, closeFn, err := cfg.requireRepository(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			run, err := repo.GetRun(ctx, model.RunID(runID))
			if err != nil {
				return goerr.Wrap(err, "failed to get run", goerr.V("run_id", runID))
			}

			w := c.Root().Writer
			switch format {
			case formatJSON:
				return writeIndented(w, run.Result)

			case "memory":
				if len(run.Memory) == 0 {
					return goerr.New("run has no memory snapshot", goerr.V("run_id", runID))
				}
				return writeIndented(w, run.Memory)

			case formatMarkdown:
				r, err := run.DecodeReport()
				if err != nil {
					return err
				}
				if r == nil {
					return goerr.New("run has no report", goerr.V("run_id", runID))
				}
				fmt.Fprint(w, report.Markdown(r))
				return nil

			default:
				return goerr.New("invalid format", goerr.V("format", format))
			}
		},
	}
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return goerr.Wrap(err, "failed to parse stored JSON")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to format stored JSON")
	}
	fmt.Fprintf(w, "%s\n", string(data))
	return nil
}
