// Package main provides the unified worker command that runs crawling,
// filtering, diffing and parsing in one go.
package main

import (
	"context"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"worker",
		"Run the whole pipeline for a domain/main category",
		"worker",
		true,
		func(ctx context.Context, r *pipeline.Runner) error {
			return r.RunAll(ctx)
		},
	))
}
