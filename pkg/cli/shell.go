package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func shellCommand() *cli.Command {
	var (
		cfg         config
		historyFile string
		format      string
		carryMemory bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "history-file",
			Usage:       "File to keep the query history in",
			Sources:     cli.EnvVars("FERRET_HISTORY_FILE"),
			Destination: &historyFile,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "Output format (markdown, json, summary)",
			Value:       formatMarkdown,
			Sources:     cli.EnvVars("FERRET_FORMAT"),
			Destination: &format,
		},
		&cli.BoolFlag{
			Name:        "carry-memory",
			Usage:       "Seed long-term memory from the newest saved run",
			Sources:     cli.EnvVars("FERRET_CARRY_MEMORY"),
			Destination: &carryMemory,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, repositoryFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, researchFlags(&cfg)...)
	flags = append(flags, toolFlags(&cfg)...)

	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive research session, one query per line",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}
			if err := validateFormat(format); err != nil {
				return err
			}

			session, closeFn, err := cfg.newSession(ctx, carryMemory)
			if err != nil {
				return err
			}
			defer closeFn()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "ferret> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to start readline")
			}
			defer rl.Close()

			w := c.Root().Writer
			fmt.Fprintf(w, "Research shell started. Type 'exit' to quit.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read line")
				}

				query := strings.TrimSpace(line)
				if query == "exit" || query == "quit" {
					break
				}
				if query == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
				sp.Suffix = " researching..."
				sp.Start()
				out, err := session.Research(ctx, query)
				sp.Stop()

				if err != nil {
					fmt.Fprintf(w, "error: %v\n", err)
					continue
				}
				if !out.Result.Success {
					fmt.Fprintf(w, "research failed: %s\n", out.Result.Error)
					continue
				}
				if err := writeOutcome(w, out, format); err != nil {
					return err
				}
				if out.Saved {
					fmt.Fprintf(w, "\n(run %s saved)\n", out.RunID)
				}
			}

			fmt.Fprintf(w, "\nResearch shell closed\n")
			return nil
		},
	}
}
