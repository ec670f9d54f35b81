package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/ferret/pkg/report"
	"github.com/m-mizutani/ferret/pkg/usecase/research"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatSummary  = "summary"
)

func runCommand() *cli.Command {
	var (
		cfg         config
		format      string
		outputPath  string
		carryMemory bool
		quiet       bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (markdown, json, summary)",
			Value:       formatMarkdown,
			Sources:     cli.EnvVars("FERRET_FORMAT"),
			Destination: &format,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Write the report to a file instead of stdout",
			Sources:     cli.EnvVars("FERRET_OUTPUT"),
			Destination: &outputPath,
		},
		&cli.BoolFlag{
			Name:        "carry-memory",
			Usage:       "Seed long-term memory from the newest saved run",
			Sources:     cli.EnvVars("FERRET_CARRY_MEMORY"),
			Destination: &carryMemory,
		},
		&cli.BoolFlag{
			Name:        "quiet",
			Aliases:     []string{"q"},
			Usage:       "Do not show the progress spinner",
			Destination: &quiet,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, researchFlags(&cfg)...)
	flags = append(flags, toolFlags(&cfg)...)

	return &cli.Command{
		Name:      "run",
		Usage:     "Research a query and print the report",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			session, closeFn, err := cfg.newSession(ctx, carryMemory)
			if err != nil {
				return err
			}
			defer closeFn()

			var sp *spinner.Spinner
			if !quiet {
				sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
				sp.Suffix = " researching: " + query
				sp.Start()
			}
			out, err := session.Research(ctx, query)
			if sp != nil {
				sp.Stop()
			}
			if err != nil {
				return err
			}
			if !out.Result.Success {
				return goerr.New("research failed",
					goerr.V("run_id", out.RunID),
					goerr.V("error", out.Result.Error))
			}

			w := c.Root().Writer
			if outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return goerr.Wrap(err, "failed to create output file", goerr.V("path", outputPath))
				}
				defer f.Close()
				w = f
			}

			if err := writeOutcome(w, out, format); err != nil {
				return err
			}

			if out.Saved {
				fmt.Fprintf(os.Stderr, "Run saved: %s\n", out.RunID)
			}
			if out.ExportURL != "" {
				fmt.Fprintf(os.Stderr, "Report exported: %s\n", out.ExportURL)
			}
			return nil
		},
	}
}

// newSession wires a research session with the configured repository and exporter.
func (cfg *config) newSession(ctx context.Context, carryMemory bool, opts ...research.Option) (*research.Session, func(), error) {
	repo, closeRepo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	if carryMemory && repo == nil {
		closeRepo()
		return nil, nil, goerr.New("carry-memory needs project or sqlite")
	}

	exporter, err := cfg.newExporter(ctx)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	crew, closeTools, err := cfg.newCrew(ctx, opts...)
	if err != nil {
		closeRepo()
		return nil, nil, err
	}

	sessionOpts := []research.SessionOption{research.WithMemoryCarryOver(carryMemory)}
	if repo != nil {
		sessionOpts = append(sessionOpts, research.WithRepository(repo))
	}
	if exporter != nil {
		sessionOpts = append(sessionOpts, research.WithExporter(exporter))
	}

	return research.NewSession(crew, sessionOpts...), func() {
		closeTools()
		closeRepo()
	}, nil
}

func validateFormat(format string) error {
	switch format {
	case formatMarkdown, formatJSON, formatSummary:
		return nil
	default:
		return goerr.New("invalid format", goerr.V("format", format))
	}
}

func writeOutcome(w io.Writer, out *research.Outcome, format string) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(out.Result, "", "  ")
		if err != nil {
			return goerr.Wrap(err, "failed to marshal research result")
		}
		fmt.Fprintf(w, "%s\n", string(data))
	case formatSummary:
		fmt.Fprintf(w, "%s\n", report.CreateSummary(out.Result.Report, report.DefaultSummaryLength))
	default:
		fmt.Fprint(w, report.Markdown(out.Result.Report))
	}
	return nil
}
