package differ

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikiedits/internal/config"
	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

// fakeTool concatenates both documents and fails when the new document
// contains failOn.
type fakeTool struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (f *fakeTool) Diff(_ context.Context, oldDoc, newDoc string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.failOn != "" && strings.Contains(newDoc, f.failOn) {
		return "", errors.New("tool exploded")
	}

	return "OLD:" + oldDoc + "NEW:" + newDoc, nil
}

func (f *fakeTool) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func article(docID string, texts ...string) models.MergedArticle {
	a := models.MergedArticle{DocID: docID, Title: "Title " + docID, Domain: models.DomainWikipedia}
	for i, text := range texts {
		a.Revisions = append(a.Revisions, models.MergedRevision{
			RevID:     int64(100 + i),
			Timestamp: t0.Add(time.Duration(i) * time.Hour),
			Text:      text,
		})
	}

	return a
}

func withRevIDs(a models.MergedArticle, first int64) models.MergedArticle {
	for i := range a.Revisions {
		a.Revisions[i].RevID = first + int64(i)
	}

	return a
}

func testLayout(t *testing.T) config.Layout {
	t.Helper()

	cfg := config.Default()
	cfg.Output.BasePath = t.TempDir()

	return cfg.Layout(models.DomainWikipedia, "philosophy")
}

func TestGenerator_Run(t *testing.T) {
	layout := testLayout(t)
	tool := &fakeTool{}
	m := metrics.New()
	g := NewGenerator(tool, layout, false, logger.NewNop(), m)

	articles := []models.MergedArticle{
		article("wikipedia-1", "A cat sat.", "A cat sat quietly.", "A cat sat quietly today."),
		article("wikipedia-2", "Same.", "Same.", "Different."),
	}

	artifacts, stats, err := g.Run(context.Background(), articles)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Pairs)
	assert.Equal(t, 3, stats.Generated)
	assert.Equal(t, 1, stats.Identical)
	assert.Equal(t, 3, tool.Calls(), "identical pair must not invoke the tool")

	require.Len(t, artifacts, 3)
	assert.Equal(t, "wikipedia-1_diff_v1v2.tex", artifacts[0].Path)
	assert.Equal(t, "wikipedia-1_diff_v2v3.tex", artifacts[1].Path)
	assert.Equal(t, "wikipedia-2_diff_v2v3.tex", artifacts[2].Path)
	assert.EqualValues(t, 101, artifacts[1].OldRevID)
	assert.EqualValues(t, 102, artifacts[1].NewRevID)

	manifest, err := utils.ReadJSONL[models.DiffArtifact](layout.ManifestFile(), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, artifacts, manifest)

	content, err := os.ReadFile(filepath.Join(layout.DiffDir(), artifacts[0].Path))
	require.NoError(t, err)

	ok, err := metadata.Verify(string(content))
	require.NoError(t, err)
	assert.True(t, ok)

	meta, body := metadata.Extract(string(content))
	require.NotNil(t, meta)
	assert.Equal(t, "wikipedia-1", meta.DocID)
	assert.Equal(t, 1, meta.Depth)
	assert.Contains(t, body, "A cat sat quietly.")

	assert.InDelta(t, 3, testutil.ToFloat64(m.DiffPairs.WithLabelValues("generated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DiffPairs.WithLabelValues("identical")), 0)
}

func TestGenerator_FailedPairIsSkipped(t *testing.T) {
	layout := testLayout(t)
	tool := &fakeTool{failOn: "broken"}
	g := NewGenerator(tool, layout, false, logger.NewNop(), nil)

	artifacts, stats, err := g.Run(context.Background(), []models.MergedArticle{
		article("wikipedia-1", "One.", "One broken.", "One fixed."),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Generated)
	require.Len(t, artifacts, 1)
	assert.Equal(t, 2, artifacts[0].Depth)
	assert.False(t, utils.FileExists(layout.ArtifactPath("wikipedia-1", 1)))
}

func TestGenerator_UnorderedPairIsSkipped(t *testing.T) {
	layout := testLayout(t)
	tool := &fakeTool{}
	g := NewGenerator(tool, layout, false, logger.NewNop(), nil)

	a := article("wikipedia-1", "First.", "Second.")
	a.Revisions[1].Timestamp = a.Revisions[0].Timestamp

	artifacts, stats, err := g.Run(context.Background(), []models.MergedArticle{a})
	require.NoError(t, err)

	assert.Empty(t, artifacts)
	assert.Equal(t, 1, stats.Unordered)
	assert.Zero(t, tool.Calls())
}

func TestGenerator_ReuseAndOverwrite(t *testing.T) {
	layout := testLayout(t)
	articles := []models.MergedArticle{article("wikipedia-1", "Before.", "After.")}

	tool := &fakeTool{}
	_, _, err := NewGenerator(tool, layout, false, logger.NewNop(), nil).Run(context.Background(), articles)
	require.NoError(t, err)
	require.Equal(t, 1, tool.Calls())

	_, stats, err := NewGenerator(tool, layout, false, logger.NewNop(), nil).Run(context.Background(), articles)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reused)
	assert.Equal(t, 1, tool.Calls())

	_, stats, err = NewGenerator(tool, layout, true, logger.NewNop(), nil).Run(context.Background(), articles)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, 2, tool.Calls())
}

func TestGenerator_StaleArtifactIsRegenerated(t *testing.T) {
	tests := []struct {
		name   string
		rerun  models.MergedArticle
		mangle func(t *testing.T, path string)
	}{
		{
			name:  "different revisions at the same depth",
			rerun: withRevIDs(article("wikipedia-1", "The dog ran.", "The dog ran fast."), 900),
		},
		{
			name:  "same revisions with re-cleaned text",
			rerun: article("wikipedia-1", "A cat sat.", "A cat sat still."),
		},
		{
			name:  "edited artifact",
			rerun: article("wikipedia-1", "A cat sat.", "A cat sat quietly."),
			mangle: func(t *testing.T, path string) {
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(content), "cat", "cow", 1)), 0644))
			},
		},
		{
			name:  "unsigned artifact",
			rerun: article("wikipedia-1", "A cat sat.", "A cat sat quietly."),
			mangle: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("OLD:x NEW:y"), 0644))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := testLayout(t)
			tool := &fakeTool{}

			first := []models.MergedArticle{article("wikipedia-1", "A cat sat.", "A cat sat quietly.")}
			_, _, err := NewGenerator(tool, layout, false, logger.NewNop(), nil).Run(context.Background(), first)
			require.NoError(t, err)

			path := layout.ArtifactPath("wikipedia-1", 1)
			if tt.mangle != nil {
				tt.mangle(t, path)
			}

			artifacts, stats, err := NewGenerator(tool, layout, false, logger.NewNop(), nil).
				Run(context.Background(), []models.MergedArticle{tt.rerun})
			require.NoError(t, err)
			assert.Equal(t, 0, stats.Reused)
			assert.Equal(t, 1, stats.Generated)
			assert.Equal(t, 2, tool.Calls())

			content, err := os.ReadFile(path)
			require.NoError(t, err)

			meta, body := metadata.Extract(string(content))
			require.NotNil(t, meta)
			assert.Equal(t, tt.rerun.Revisions[0].RevID, meta.OldRevID)
			assert.Equal(t, tt.rerun.Revisions[1].RevID, meta.NewRevID)
			assert.Contains(t, body, tt.rerun.Revisions[1].Text)

			require.Len(t, artifacts, 1)
			assert.Equal(t, meta.OldRevID, artifacts[0].OldRevID)
			assert.Equal(t, meta.NewRevID, artifacts[0].NewRevID)
		})
	}
}

func TestGenerator_Cancelled(t *testing.T) {
	layout := testLayout(t)
	g := NewGenerator(cancelTool{}, layout, false, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.Run(ctx, []models.MergedArticle{article("wikipedia-1", "a", "b")})
	require.ErrorIs(t, err, context.Canceled)
}

type cancelTool struct{}

func (cancelTool) Diff(ctx context.Context, _, _ string) (string, error) {
	return "", ctx.Err()
}

func TestGenerator_OutputDirFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	layout := config.Layout{Root: blocker, Domain: models.DomainWikipedia, MainCategory: "philosophy"}

	_, _, err := NewGenerator(&fakeTool{}, layout, false, logger.NewNop(), nil).Run(context.Background(), nil)
	require.Error(t, err)
}
