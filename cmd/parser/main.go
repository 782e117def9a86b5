// Package main provides the parser command: it turns diff artifacts into the
// sentence pair dataset.
package main

import (
	"context"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"parser",
		"Parse diff artifacts into aligned sentence pairs",
		pipeline.StageParse,
		false,
		func(ctx context.Context, r *pipeline.Runner) error {
			_, err := r.Parse(ctx)
			return err
		},
	))
}
