// Package pipeline wires the crawl, filter, diff and parse stages of one
// domain/main category run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"wikiedits/internal/config"
	"wikiedits/internal/crawler"
	"wikiedits/internal/differ"
	"wikiedits/internal/diffparse"
	"wikiedits/internal/filter"
	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/internal/report"
	"wikiedits/internal/validator"
	"wikiedits/pkg/utils"
)

// Stage names, used as metric labels and report headings.
const (
	StageCrawl  = "crawl"
	StageFilter = "filter"
	StageDiff   = "diff"
	StageParse  = "parse"

	StageValidate = "validate"
)

// ErrInvalidOutput is returned by Validate when a record or artifact fails
// its checks.
var ErrInvalidOutput = errors.New("invalid pipeline output")

// maxAttemptFailuresLogged bounds the failed URLs listed after a crawl.
const maxAttemptFailuresLogged = 10

// Sentences longer than this usually mean the splitter missed a boundary.
const maxSentenceWords = 250

// Runner runs pipeline stages against the on-disk layout of one run.
type Runner struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	report  *report.Report
	sources *crawler.Sources
	tool    differ.Tool
	layout  config.Layout
	domain  models.Domain
	main    string
}

// Option customises a Runner.
type Option func(*Runner)

// WithSources replaces the MediaWiki API sources of the crawl stage.
func WithSources(s crawler.Sources) Option {
	return func(r *Runner) { r.sources = &s }
}

// WithTool replaces the configured diff tool.
func WithTool(t differ.Tool) Option {
	return func(r *Runner) { r.tool = t }
}

// WithMetrics shares a metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New prepares a run. The main category must exist for the domain.
func New(cfg *config.Config, domain models.Domain, mainCategory, runID string, log *logger.Logger, opts ...Option) (*Runner, error) {
	if _, err := cfg.Categories(domain, mainCategory); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		log:    log.With("run_id", runID, "domain", domain, "main_category", mainCategory),
		layout: cfg.Layout(domain, mainCategory),
		domain: domain,
		main:   mainCategory,
		report: &report.Report{
			RunID:        runID,
			Domain:       domain,
			MainCategory: mainCategory,
			Started:      time.Now(),
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = metrics.New()
	}

	if r.tool == nil {
		r.tool = differ.NewTool(cfg.Diff)
	}

	return r, nil
}

// Layout returns the paths of the run.
func (r *Runner) Layout() config.Layout {
	return r.layout
}

// Metrics returns the run's metrics.
func (r *Runner) Metrics() *metrics.Metrics {
	return r.metrics
}

// Report returns the run report collected so far.
func (r *Runner) Report() *report.Report {
	return r.report
}

// Crawl fetches revisions into the raw directory.
func (r *Runner) Crawl(ctx context.Context) (crawler.Stats, error) {
	started := time.Now()

	var scraper *crawler.Scraper

	sources := r.sources
	if sources == nil {
		scraper = crawler.NewScraperWithConfig(&r.cfg.Crawler.Retry, r.cfg.Crawler.BufferSizeKb,
			crawler.WithUserAgent(r.cfg.Crawler.UserAgent),
			crawler.WithRateLimit(r.cfg.Crawler.RateLimitRPS),
			crawler.WithAttemptLog(crawler.NewAttemptLog()),
			crawler.WithMetrics(r.metrics),
		)

		s, err := crawler.NewMediaWikiSources(r.cfg, r.domain, scraper)
		if err != nil {
			return crawler.Stats{}, r.finish(StageCrawl, nil, started, err)
		}

		sources = &s
	}

	o, err := crawler.NewOrchestrator(r.cfg, r.domain, r.main, *sources, r.log, r.metrics)
	if err != nil {
		return crawler.Stats{}, r.finish(StageCrawl, nil, started, err)
	}

	stats, err := o.Run(ctx)

	if scraper != nil {
		scraper.Attempts().LogAttemptSummary(r.log, maxAttemptFailuresLogged)
	}

	return stats, r.finish(StageCrawl, stats, started, err)
}

// Filter cleans, de-duplicates and merges the raw revisions.
func (r *Runner) Filter(ctx context.Context) (filter.Stats, error) {
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return filter.Stats{}, r.finish(StageFilter, nil, started, err)
	}

	records, loadStats, err := filter.LoadRawDir(r.layout.RawDir(), r.log)
	if err != nil {
		return filter.Stats{}, r.finish(StageFilter, nil, started, err)
	}

	dc, err := r.cfg.Domain(r.domain)
	if err != nil {
		return filter.Stats{}, r.finish(StageFilter, nil, started, err)
	}

	merger := filter.NewMerger(filter.Options{
		Domain:               r.domain,
		StopMarker:           dc.StopMarker,
		URLPlaceholder:       r.cfg.Filter.URLPlaceholder,
		ExcludeTitlePatterns: r.cfg.Filter.ExcludeTitlePatterns,
		DuplicateThreshold:   r.cfg.Filter.DuplicateThreshold,
		MinChangedWords:      r.cfg.Filter.MinChangedWords,
	}, r.log, r.metrics)

	articles, stats := merger.Merge(records)
	stats.Invalid += loadStats.Malformed

	if err := utils.WriteJSONL(r.layout.MergedFile(), articles); err != nil {
		return stats, r.finish(StageFilter, stats, started, fmt.Errorf("failed to write merged file: %w", err))
	}

	r.log.Info("merged file written", "path", r.layout.MergedFile(), "articles", len(articles))

	return stats, r.finish(StageFilter, stats, started, nil)
}

// Diff generates one artifact per consecutive revision pair.
func (r *Runner) Diff(ctx context.Context) (differ.Stats, error) {
	started := time.Now()

	articles, err := utils.ReadJSONL[models.MergedArticle](r.layout.MergedFile(), 0)
	if err != nil {
		return differ.Stats{}, r.finish(StageDiff, nil, started, fmt.Errorf("failed to read merged file: %w", err))
	}

	g := differ.NewGenerator(r.tool, r.layout, r.cfg.Diff.Overwrite, r.log, r.metrics)

	_, stats, err := g.Run(ctx, articles)

	return stats, r.finish(StageDiff, stats, started, err)
}

// Parse extracts sentence pairs from the artifacts and writes the dataset.
func (r *Runner) Parse(ctx context.Context) (diffparse.Stats, error) {
	started := time.Now()

	artifacts, err := diffparse.LoadArtifacts(r.layout)
	if err != nil {
		return diffparse.Stats{}, r.finish(StageParse, nil, started, err)
	}

	p := diffparse.NewParser(r.cfg.Parser, r.log, r.metrics)

	pairs, stats, err := p.Run(ctx, r.layout.DiffDir(), artifacts)
	if err != nil {
		return stats, r.finish(StageParse, stats, started, err)
	}

	if err := diffparse.WriteDataset(r.layout.DatasetFile(), pairs); err != nil {
		return stats, r.finish(StageParse, stats, started, err)
	}

	result := validator.NewDatasetValidator(maxSentenceWords).Validate(pairs)
	if !result.IsValid {
		r.log.Warn("dataset has invalid records", "summary", result.String(), "first_error", result.Errors[0].Message)
	}

	r.report.Samples = report.Sample(pairs, r.cfg.Logging.SampleEvents)

	r.log.Info("dataset written", "path", r.layout.DatasetFile(), "pairs", len(pairs))

	return stats, r.finish(StageParse, stats, started, nil)
}

// ValidateStats summarises a validation pass.
type ValidateStats struct {
	Records           int
	InvalidRecords    int
	Artifacts         int
	TamperedArtifacts int
}

// Validate checks the dataset records and the integrity block of every diff
// artifact, printing the findings to w.
func (r *Runner) Validate(ctx context.Context, w io.Writer) (ValidateStats, error) {
	started := time.Now()

	var stats ValidateStats

	result, err := validator.NewDatasetValidator(maxSentenceWords).ValidateFile(r.layout.DatasetFile())
	if err != nil {
		return stats, r.finish(StageValidate, nil, started, err)
	}

	stats.Records = result.Stats.TotalRecords
	stats.InvalidRecords = result.Stats.InvalidRecords

	fmt.Fprintf(w, "%s: %s\n", filepath.Base(r.layout.DatasetFile()), result)
	result.PrintErrors(w)
	result.PrintWarnings(w)

	artifacts, err := diffparse.LoadArtifacts(r.layout)
	if err != nil {
		return stats, r.finish(StageValidate, stats, started, err)
	}

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return stats, r.finish(StageValidate, stats, started, err)
		}

		stats.Artifacts++

		content, err := os.ReadFile(filepath.Join(r.layout.DiffDir(), a.Path))
		if err != nil {
			return stats, r.finish(StageValidate, stats, started, fmt.Errorf("failed to read artifact: %w", err))
		}

		if res := validator.ValidateIntegrity(string(content)); !res.IsValid {
			stats.TamperedArtifacts++

			fmt.Fprintf(w, "%s:\n", a.Path)
			res.PrintErrors(w)
		}
	}

	if stats.InvalidRecords > 0 || stats.TamperedArtifacts > 0 {
		err = fmt.Errorf("%w: %d invalid records, %d tampered artifacts", ErrInvalidOutput, stats.InvalidRecords, stats.TamperedArtifacts)
	}

	return stats, r.finish(StageValidate, stats, started, err)
}

// RunAll runs every stage in order and stops at the first failing stage.
func (r *Runner) RunAll(ctx context.Context) error {
	if _, err := r.Crawl(ctx); err != nil {
		return err
	}

	if _, err := r.Filter(ctx); err != nil {
		return err
	}

	if _, err := r.Diff(ctx); err != nil {
		return err
	}

	_, err := r.Parse(ctx)

	return err
}

// Close exports metrics when enabled and writes the report when reportPath
// is set.
func (r *Runner) Close(stage, reportPath string) error {
	if r.cfg.Metrics.Enabled {
		if err := r.metrics.WriteTextfile(r.layout.MetricsFile(stage)); err != nil {
			return err
		}
	}

	if reportPath != "" {
		if err := r.report.WriteFile(reportPath); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		r.log.Info("report written", "path", reportPath)
	}

	return nil
}

func (r *Runner) finish(stage string, stats any, started time.Time, err error) error {
	r.metrics.ObserveStage(stage, started, err)
	r.report.AddStage(stage, stats, time.Since(started), err)

	if err != nil {
		r.log.Error("stage failed", "stage", stage, "error", err)
		return fmt.Errorf("%s: %w", stage, err)
	}

	r.log.Info("stage finished", "stage", stage, "duration", time.Since(started).Round(time.Millisecond))

	return nil
}
