// Package main provides the crawler command: it downloads the revision
// history of every article under a main category.
package main

import (
	"context"

	"wikiedits/internal/cli"
	"wikiedits/internal/pipeline"
)

func main() {
	cli.Execute(cli.NewCommand(
		"crawler",
		"Crawl article revisions of a domain/main category into raw revision files",
		pipeline.StageCrawl,
		true,
		func(ctx context.Context, r *pipeline.Runner) error {
			_, err := r.Crawl(ctx)
			return err
		},
	))
}
