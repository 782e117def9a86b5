package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiedits/internal/config"
	"wikiedits/internal/crawler"
	"wikiedits/internal/differ"
	"wikiedits/internal/logger"
	"wikiedits/internal/models"
	"wikiedits/pkg/utils"
)

type stubCategories map[string][]crawler.PageRef

func (s stubCategories) Members(_ context.Context, category string, _ crawler.Window, fn func(crawler.PageRef) bool) error {
	for _, p := range s[category] {
		if !fn(p) {
			return nil
		}
	}

	return nil
}

type stubRevisions map[int64][]models.Revision

func (s stubRevisions) Revisions(_ context.Context, pageID int64, _ crawler.Window) ([]models.Revision, error) {
	return s[pageID], nil
}

func (s stubRevisions) Revision(context.Context, int64) (models.Revision, error) {
	return models.Revision{}, crawler.ErrAPI
}

type stubContents map[int64]string

func (s stubContents) Content(_ context.Context, revID int64) (string, error) {
	t, ok := s[revID]
	if !ok {
		return "", crawler.ErrNoContent
	}

	return t, nil
}

func revision(id int64, day int) models.Revision {
	return models.Revision{
		RevID:     id,
		ParentID:  id - 1,
		Timestamp: time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC),
		User:      "editor",
	}
}

func testSources() crawler.Sources {
	return crawler.Sources{
		Categories: stubCategories{
			"Category:Philosophy": {
				{PageID: 1, NS: 0, Title: "Cats"},
				{PageID: 2, NS: 0, Title: "Stub"},
			},
		},
		Revisions: stubRevisions{
			1: {revision(10, 1), revision(11, 2), revision(12, 3)},
			2: {revision(20, 1)},
		},
		Contents: stubContents{
			10: "A cat sat.",
			11: "A cat sat quietly.",
			12: "A cat sat quietly. It purred.",
			20: "Only one revision.",
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Output.BasePath = t.TempDir()
	cfg.Crawler.Domains["wikipedia"].Categories["philosophy"] = []string{"Philosophy"}
	cfg.Metrics.Enabled = true

	return cfg
}

func TestRunner_RunAll(t *testing.T) {
	cfg := testConfig(t)

	r, err := New(cfg, models.DomainWikipedia, "philosophy", "run-1", logger.NewNop(),
		WithSources(testSources()),
		WithTool(differ.WordDiff{}),
	)
	require.NoError(t, err)

	require.NoError(t, r.RunAll(context.Background()))

	layout := r.Layout()
	assert.True(t, utils.FileExists(layout.MergedFile()))
	assert.True(t, utils.FileExists(layout.ManifestFile()))

	merged, err := utils.ReadJSONL[models.MergedArticle](layout.MergedFile(), 0)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "Cats", merged[0].Title)
	assert.Len(t, merged[0].Revisions, 3)

	pairs, err := utils.ReadJSONL[models.SentencePair](layout.DatasetFile(), 0)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, models.EditReplace, pairs[0].EditType)
	assert.Equal(t, "A cat sat.", pairs[0].OriginalSentence)
	assert.Equal(t, "A cat sat quietly.", pairs[0].RevisedSentence)
	assert.Equal(t, int64(10), pairs[0].OldRevID)
	assert.Equal(t, int64(11), pairs[0].NewRevID)

	assert.Equal(t, models.EditAdd, pairs[1].EditType)
	assert.Empty(t, pairs[1].OriginalSentence)
	assert.Equal(t, "It purred.", pairs[1].RevisedSentence)

	m := r.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SentencePairs.WithLabelValues("R")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SentencePairs.WithLabelValues("A")))

	rep := r.Report()
	require.Len(t, rep.Stages, 4)

	for i, name := range []string{StageCrawl, StageFilter, StageDiff, StageParse} {
		assert.Equal(t, name, rep.Stages[i].Name)
		assert.Empty(t, rep.Stages[i].Err)
	}

	assert.NotEmpty(t, rep.Samples)

	reportPath := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, r.Close("worker", reportPath))
	assert.True(t, utils.FileExists(reportPath))
	assert.True(t, utils.FileExists(layout.MetricsFile("worker")))
}

func TestRunner_RerunReusesExistingWork(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := New(cfg, models.DomainWikipedia, "philosophy", "run-1", logger.NewNop(),
		WithSources(testSources()), WithTool(differ.WordDiff{}))
	require.NoError(t, err)
	require.NoError(t, first.RunAll(ctx))

	second, err := New(cfg, models.DomainWikipedia, "philosophy", "run-2", logger.NewNop(),
		WithSources(testSources()), WithTool(differ.WordDiff{}))
	require.NoError(t, err)

	crawlStats, err := second.Crawl(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, crawlStats.Written)
	assert.Equal(t, 4, crawlStats.Existing)

	_, err = second.Filter(ctx)
	require.NoError(t, err)

	diffStats, err := second.Diff(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, diffStats.Generated)
	assert.Equal(t, 2, diffStats.Reused)
}

func TestRunner_Validate(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	r, err := New(cfg, models.DomainWikipedia, "philosophy", "run-1", logger.NewNop(),
		WithSources(testSources()), WithTool(differ.WordDiff{}))
	require.NoError(t, err)
	require.NoError(t, r.RunAll(ctx))

	var out bytes.Buffer

	stats, err := r.Validate(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, ValidateStats{Records: 2, Artifacts: 2}, stats)
	assert.Contains(t, out.String(), "VALID")

	path := r.Layout().ArtifactPath(models.DocID(models.DomainWikipedia, 1), 1)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(content), "cat", "dog", 1)), 0644))

	out.Reset()

	stats, err = r.Validate(ctx, &out)
	require.ErrorIs(t, err, ErrInvalidOutput)
	assert.Equal(t, 1, stats.TamperedArtifacts)
	assert.Contains(t, out.String(), filepath.Base(path))
}

func TestRunner_StageFailureIsReported(t *testing.T) {
	cfg := testConfig(t)

	r, err := New(cfg, models.DomainWikipedia, "philosophy", "run-1", logger.NewNop(),
		WithTool(differ.WordDiff{}))
	require.NoError(t, err)

	// No merged file yet.
	_, err = r.Diff(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageDiff+":")

	require.Len(t, r.Report().Stages, 1)
	assert.NotEmpty(t, r.Report().Stages[0].Err)
}

func TestRunner_CancelledCrawl(t *testing.T) {
	cfg := testConfig(t)

	r, err := New(cfg, models.DomainWikipedia, "philosophy", "run-1", logger.NewNop(),
		WithSources(testSources()), WithTool(differ.WordDiff{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = r.RunAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, r.Report().Stages, 1)
}

func TestNew_UnknownMainCategory(t *testing.T) {
	_, err := New(testConfig(t), models.DomainWikipedia, "astrology", "run-1", logger.NewNop())
	require.ErrorIs(t, err, config.ErrUnknownMainCategory)
}
