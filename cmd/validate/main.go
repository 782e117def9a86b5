// Package main provides the validate command, which checks a finished
// dataset and the integrity of its diff artifacts.
package main

import (
	"context"
	"os"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"validate",
		"Validate the sentence pair dataset and diff artifacts",
		pipeline.StageValidate,
		false,
		func(ctx context.Context, r *pipeline.Runner) error {
			_, err := r.Validate(ctx, os.Stdout)
			return err
		},
	))
}
