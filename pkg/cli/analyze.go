package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ferret/pkg/source"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func analyzeSourceCommand() *cli.Command {
	var (
		cfg   config
		url   string
		title string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "URL the content was taken from",
			Destination: &url,
		},
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Title of the source, defaults to the file name",
			Destination: &title,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "analyze-source",
		Usage:     "Score the credibility and quality of a local source text",
		ArgsUsage: "<file|->",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, err := cfg.setupLogger(ctx)
			if err != nil {
				return err
			}

			path := c.Args().First()
			if path == "" {
				return goerr.New("file path is required")
			}

			var content []byte
			if path == "-" {
				content, err = io.ReadAll(os.Stdin)
			} else {
				content, err = os.ReadFile(path)
			}
			if err != nil {
				return goerr.Wrap(err, "failed to read source", goerr.V("path", path))
			}

			if title == "" && path != "-" {
				title = filepath.Base(path)
			}

			analysis, err := source.NewAcademicAnalyzer().Analyze(ctx, url, title, string(content))
			if err != nil {
				return goerr.Wrap(err, "failed to analyze source", goerr.V("path", path))
			}

			data, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal analysis")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
			return nil
		},
	}
}
