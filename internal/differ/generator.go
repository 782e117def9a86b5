package differ

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"wikiedits/internal/config"
	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

// Stats counts diff outcomes.
type Stats struct {
	Articles  int
	Pairs     int
	Generated int
	Reused    int
	Identical int
	Unordered int
	Failed    int
	TimedOut  int
}

// Generator diffs every consecutive revision pair of merged articles.
type Generator struct {
	tool      Tool
	log       *logger.Logger
	metrics   *metrics.Metrics
	layout    config.Layout
	overwrite bool
}

// NewGenerator creates a generator writing artifacts into layout.DiffDir().
func NewGenerator(tool Tool, layout config.Layout, overwrite bool, log *logger.Logger, m *metrics.Metrics) *Generator {
	if m == nil {
		m = metrics.New()
	}

	return &Generator{
		tool:      tool,
		log:       log,
		metrics:   m,
		layout:    layout,
		overwrite: overwrite,
	}
}

// Run diffs all pairs in article order, then depth order, and writes the
// manifest of produced artifacts. A failing pair is logged and skipped.
func (g *Generator) Run(ctx context.Context, articles []models.MergedArticle) ([]models.DiffArtifact, Stats, error) {
	var stats Stats

	if err := os.MkdirAll(g.layout.DiffDir(), 0755); err != nil {
		return nil, stats, fmt.Errorf("failed to create output directory: %w", err)
	}

	var artifacts []models.DiffArtifact

	for _, article := range articles {
		stats.Articles++

		for _, pair := range article.Pairs() {
			stats.Pairs++

			artifact, reused, err := g.DiffPair(ctx, pair)

			switch {
			case err == nil && reused:
				stats.Reused++
				g.count("reused")
			case err == nil:
				stats.Generated++
				g.count("generated")
			case ctx.Err() != nil:
				return artifacts, stats, ctx.Err()
			case errors.Is(err, ErrIdenticalRevisions):
				stats.Identical++
				g.count("identical")

				continue
			case errors.Is(err, ErrUnorderedRevisions):
				stats.Unordered++
				g.count("unordered")
				g.log.Warn("pair skipped", "doc_id", pair.DocID, "depth", pair.Depth, "error", err)

				continue
			case errors.Is(err, ErrToolTimeout):
				stats.TimedOut++
				g.count("timeout")
				g.log.Warn("diff timed out", "doc_id", pair.DocID, "depth", pair.Depth, "error", err)

				continue
			default:
				stats.Failed++
				g.count("failed")
				g.log.Warn("diff failed", "doc_id", pair.DocID, "depth", pair.Depth, "error", err)

				continue
			}

			artifacts = append(artifacts, artifact)
		}
	}

	if err := utils.WriteJSONL(g.layout.ManifestFile(), artifacts); err != nil {
		return artifacts, stats, fmt.Errorf("failed to write manifest: %w", err)
	}

	g.log.Info("diffs generated",
		"pairs", stats.Pairs,
		"generated", stats.Generated,
		"reused", stats.Reused,
		"identical", stats.Identical,
		"failed", stats.Failed+stats.TimedOut,
	)

	return artifacts, stats, nil
}

// DiffPair produces the artifact of one pair. reused reports that an
// existing artifact was kept: it must be intact and signed for this exact
// pair, otherwise it is regenerated.
func (g *Generator) DiffPair(ctx context.Context, pair models.RevisionPair) (models.DiffArtifact, bool, error) {
	path := g.layout.ArtifactPath(pair.DocID, pair.Depth)

	artifact := models.DiffArtifact{
		DocID:    pair.DocID,
		Title:    pair.Title,
		Depth:    pair.Depth,
		OldRevID: pair.Old.RevID,
		NewRevID: pair.New.RevID,
		Path:     filepath.Base(path),
	}

	if pair.Identical() {
		return artifact, false, ErrIdenticalRevisions
	}

	if !pair.Ordered() {
		return artifact, false, fmt.Errorf("%w: old %s, new %s", ErrUnorderedRevisions,
			pair.Old.Timestamp.Format(time.RFC3339), pair.New.Timestamp.Format(time.RFC3339))
	}

	if !g.overwrite && g.reusable(path, pair) {
		return artifact, true, nil
	}

	out, err := g.tool.Diff(ctx, Document(pair.Old.Text), Document(pair.New.Text))
	if err != nil {
		return artifact, false, err
	}

	signed := metadata.Sign(out, metadata.Metadata{
		DocID:    pair.DocID,
		Depth:    pair.Depth,
		OldRevID: pair.Old.RevID,
		NewRevID: pair.New.RevID,
		Source:   sourceHash(pair),
	})

	if err := utils.WriteFileAtomic(path, []byte(signed)); err != nil {
		return artifact, false, err
	}

	g.log.Debug("artifact written", "path", path)

	return artifact, false, nil
}

// reusable reports whether the artifact at path verifies and was generated
// from the same revisions and texts as pair. The file name only encodes the
// depth, which shifts whenever the merged list changes.
func (g *Generator) reusable(path string, pair models.RevisionPair) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			g.log.Warn("cannot read existing artifact", "path", path, "error", err)
		}

		return false
	}

	content := string(data)

	meta, _ := metadata.Extract(content)
	if meta == nil {
		g.log.Info("stale artifact regenerated", "path", path, "reason", "no metadata block")
		return false
	}

	if _, err := metadata.Verify(content); err != nil {
		g.log.Info("stale artifact regenerated", "path", path, "reason", err)
		return false
	}

	if meta.DocID != pair.DocID || meta.Depth != pair.Depth ||
		meta.OldRevID != pair.Old.RevID || meta.NewRevID != pair.New.RevID ||
		meta.Source != sourceHash(pair) {
		g.log.Info("stale artifact regenerated", "path", path,
			"old_revid", meta.OldRevID, "new_revid", meta.NewRevID,
			"want_old_revid", pair.Old.RevID, "want_new_revid", pair.New.RevID)

		return false
	}

	return true
}

func sourceHash(pair models.RevisionPair) string {
	return metadata.ContentHash(pair.Old.Text + "\x00" + pair.New.Text)
}

func (g *Generator) count(outcome string) {
	g.metrics.DiffPairs.WithLabelValues(outcome).Inc()
}
