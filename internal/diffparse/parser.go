package diffparse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wikiedits/internal/config"
	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/internal/textmatch"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

// ErrTooManyEdits is returned for artifacts above the per-artifact edit limit.
var ErrTooManyEdits = errors.New("too many edits in artifact")

// Stats counts parse outcomes.
type Stats struct {
	Artifacts    int
	Parsed       int
	Malformed    int
	Unreadable   int
	NoEdits      int
	TooManyEdits int
	Excluded     int
	Pairs        int
}

// Parser extracts sentence pairs from diff artifacts.
type Parser struct {
	excludes *textmatch.Matcher
	log      *logger.Logger
	metrics  *metrics.Metrics
	cfg      config.ParserConfig
}

// NewParser creates a parser from the parser configuration.
func NewParser(cfg config.ParserConfig, log *logger.Logger, m *metrics.Metrics) *Parser {
	if m == nil {
		m = metrics.New()
	}

	return &Parser{
		excludes: textmatch.New(cfg.ExcludeSentencePatterns),
		log:      log,
		metrics:  m,
		cfg:      cfg,
	}
}

// Run parses the artifacts in dir in the given order. Unreadable and
// malformed artifacts are logged and skipped.
func (p *Parser) Run(ctx context.Context, dir string, artifacts []models.DiffArtifact) ([]models.SentencePair, Stats, error) {
	var (
		stats Stats
		pairs []models.SentencePair
	)

	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return pairs, stats, err
		}

		stats.Artifacts++

		content, err := os.ReadFile(filepath.Join(dir, artifact.Path))
		if err != nil {
			stats.Unreadable++
			p.count("unreadable")
			p.log.Warn("artifact unreadable", "path", artifact.Path, "error", err)

			continue
		}

		got, excluded, err := p.Parse(string(content), artifact)

		stats.Excluded += excluded

		switch {
		case errors.Is(err, ErrTooManyEdits):
			stats.TooManyEdits++
			p.count("too_many_edits")
			p.log.Debug("artifact skipped", "path", artifact.Path, "error", err)

			continue
		case err != nil:
			stats.Malformed++
			p.count("malformed")
			p.log.Warn("artifact malformed", "path", artifact.Path, "error", err)

			continue
		}

		stats.Parsed++

		edits := 0

		for _, pair := range got {
			if pair.IsEdit() {
				edits++
			}

			p.metrics.SentencePairs.WithLabelValues(string(pair.EditType)).Inc()
		}

		if edits == 0 {
			stats.NoEdits++
			p.count("no_edits")
		} else {
			p.count("parsed")
		}

		stats.Pairs += len(got)
		pairs = append(pairs, got...)
	}

	p.log.Info("artifacts parsed",
		"artifacts", stats.Artifacts,
		"parsed", stats.Parsed,
		"malformed", stats.Malformed,
		"pairs", stats.Pairs,
	)

	return pairs, stats, nil
}

// Parse turns one artifact into sentence pairs in reading order. It also
// returns the number of pairs dropped by the exclusion patterns. A metadata
// block, when present, must match the artifact body and the manifest entry.
func (p *Parser) Parse(content string, artifact models.DiffArtifact) ([]models.SentencePair, int, error) {
	meta, body := metadata.Extract(content)
	if meta != nil {
		if _, err := metadata.Verify(content); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrMalformedArtifact, err)
		}

		reconciled, err := reconcile(artifact, meta)
		if err != nil {
			return nil, 0, err
		}

		artifact = reconciled
	}

	abstract, err := ExtractAbstract(body)
	if err != nil {
		return nil, 0, err
	}

	segs, err := Scan(StripComments(abstract))
	if err != nil {
		return nil, 0, err
	}

	before, after := Sides(segs)

	var (
		out      []models.SentencePair
		excluded int
		edits    int
	)

	for _, al := range Align(before, after, p.cfg.AlignMinSimilarity) {
		if al.Type == models.EditUnchanged && !p.cfg.IncludeUnchanged {
			continue
		}

		pair := newPair(artifact, al)

		if p.excludes.Contains(pair.OriginalSentence) || p.excludes.Contains(pair.RevisedSentence) {
			excluded++
			continue
		}

		if pair.IsEdit() {
			edits++
		}

		out = append(out, pair)
	}

	if p.cfg.MaxEditsPerArtifact > 0 && edits > p.cfg.MaxEditsPerArtifact {
		return nil, excluded, fmt.Errorf("%w: %d > %d", ErrTooManyEdits, edits, p.cfg.MaxEditsPerArtifact)
	}

	return out, excluded, nil
}

func newPair(artifact models.DiffArtifact, al Alignment) models.SentencePair {
	pair := models.SentencePair{
		DocID:         artifact.DocID,
		Title:         artifact.Title,
		EditType:      al.Type,
		RevisionDepth: artifact.Depth,
		OldRevID:      artifact.OldRevID,
		NewRevID:      artifact.NewRevID,
	}

	if al.Old != nil {
		pair.OriginalSentence = al.Old.Text
		pair.BeforeEdits = al.Old.Edits
	}

	if al.New != nil {
		pair.RevisedSentence = al.New.Text
		pair.AfterEdits = al.New.Edits
	}

	if al.Type == models.EditUnchanged {
		pair.BeforeEdits, pair.AfterEdits = nil, nil
	}

	return pair
}

// withMetadata fills identifiers the manifest did not carry.
// reconcile fills identifiers the manifest entry lacks from the metadata
// block. An identifier present on both sides must agree.
func reconcile(a models.DiffArtifact, meta *metadata.Metadata) (models.DiffArtifact, error) {
	if a.DocID == "" {
		a.DocID = meta.DocID
	} else if a.DocID != meta.DocID {
		return a, fmt.Errorf("%w: manifest doc id %s, metadata %s", ErrMalformedArtifact, a.DocID, meta.DocID)
	}

	if err := fillID("old revid", &a.OldRevID, meta.OldRevID); err != nil {
		return a, err
	}

	if err := fillID("new revid", &a.NewRevID, meta.NewRevID); err != nil {
		return a, err
	}

	if a.Depth == 0 {
		a.Depth = meta.Depth
	} else if a.Depth != meta.Depth {
		return a, fmt.Errorf("%w: manifest depth %d, metadata %d", ErrMalformedArtifact, a.Depth, meta.Depth)
	}

	return a, nil
}

func fillID(name string, manifest *int64, meta int64) error {
	switch {
	case *manifest == 0:
		*manifest = meta
	case *manifest != meta:
		return fmt.Errorf("%w: manifest %s %d, metadata %d", ErrMalformedArtifact, name, *manifest, meta)
	}

	return nil
}

// WriteDataset atomically replaces the dataset file with pairs.
func WriteDataset(path string, pairs []models.SentencePair) error {
	if err := utils.WriteJSONL(path, pairs); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}

	return nil
}

func (p *Parser) count(outcome string) {
	p.metrics.Artifacts.WithLabelValues(outcome).Inc()
}
