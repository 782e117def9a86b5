// Package main provides the differ command.
package main

import (
	"context"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"differ",
		"Generate a latexdiff artifact for every consecutive revision pair",
		pipeline.StageDiff,
		false,
		func(ctx context.Context, r *pipeline.Runner) error {
			_, err := r.Diff(ctx)
			return err
		},
	))
}
