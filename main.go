package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/ferret/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Message)
		os.Exit(err.Code)
	}
}
