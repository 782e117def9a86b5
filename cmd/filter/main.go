// Package main provides the filter command: it cleans and merges crawled
// revisions into one time-ordered revision list per article.
package main

import (
	"context"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"filter",
		"Clean, de-duplicate and merge raw revisions",
		pipeline.StageFilter,
		false,
		func(ctx context.Context, r *pipeline.Runner) error {
			_, err := r.Filter(ctx)
			return err
		},
	))
}
