package filter

import (
	"cmp"
	"slices"

	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/internal/textdiff"
	"wikiedits/internal/textmatch"
)

// Options configures a Merger.
type Options struct {
	Domain               models.Domain
	StopMarker           string
	URLPlaceholder       string
	ExcludeTitlePatterns []string
	DuplicateThreshold   float64
	MinChangedWords      int
}

// Stats counts merge outcomes.
type Stats struct {
	Records         int
	Invalid         int
	ExcludedTitles  int
	EmptyRevisions  int
	DuplicateRevIDs int
	NearDuplicates  int
	TooFewChanges   int
	KeptRevisions   int
	Articles        int
	DroppedArticles int
}

// Merger groups raw revisions by article and removes near-duplicates.
type Merger struct {
	processor *Processor
	exclude   *textmatch.Matcher
	log       *logger.Logger
	metrics   *metrics.Metrics
	opts      Options
}

// NewMerger creates a merger. m may be nil.
func NewMerger(opts Options, log *logger.Logger, m *metrics.Metrics) *Merger {
	if m == nil {
		m = metrics.New()
	}

	return &Merger{
		processor: NewProcessor(NewValidator(opts.Domain), NewTransformer(opts.StopMarker, opts.URLPlaceholder)),
		exclude:   textmatch.New(opts.ExcludeTitlePatterns),
		log:       log,
		metrics:   m,
		opts:      opts,
	}
}

type articleGroup struct {
	latest    *models.RawRevision
	revisions []models.MergedRevision
}

// Merge returns the merged articles sorted by DocID. Every kept article has
// at least two revisions in non-decreasing timestamp order, and no two
// consecutive revisions reach the duplicate threshold.
func (m *Merger) Merge(records []models.RawRevision) ([]models.MergedArticle, Stats) {
	stats := Stats{Records: len(records)}
	groups := make(map[string]*articleGroup)

	for i := range records {
		raw := &records[i]

		rev, err := m.processor.Process(raw)
		if err != nil {
			stats.Invalid++
			m.count("invalid")
			m.log.Warn("invalid revision record", "page_id", raw.PageID, "rev_id", raw.RevID, "error", err)

			continue
		}

		if m.exclude.Contains(raw.Title) {
			stats.ExcludedTitles++
			m.count("excluded_title")

			continue
		}

		if rev.Text == "" {
			stats.EmptyRevisions++
			m.count("empty")

			continue
		}

		docID := models.DocID(m.opts.Domain, raw.PageID)

		g, ok := groups[docID]
		if !ok {
			g = &articleGroup{}
			groups[docID] = g
		}

		if g.latest == nil || isLater(raw, g.latest) {
			g.latest = raw
		}

		g.revisions = append(g.revisions, rev)
	}

	docIDs := make([]string, 0, len(groups))
	for id := range groups {
		docIDs = append(docIDs, id)
	}

	slices.Sort(docIDs)

	articles := make([]models.MergedArticle, 0, len(docIDs))

	for _, docID := range docIDs {
		g := groups[docID]
		kept := m.dedupe(docID, g.revisions, &stats)

		if len(kept) < 2 {
			stats.DroppedArticles++
			m.metrics.Articles.WithLabelValues("filter", "too_few_revisions").Inc()

			continue
		}

		stats.KeptRevisions += len(kept)
		stats.Articles++
		m.metrics.Articles.WithLabelValues("filter", "kept").Inc()

		articles = append(articles, models.MergedArticle{
			DocID:     docID,
			Domain:    m.opts.Domain,
			PageID:    g.latest.PageID,
			Title:     g.latest.Title,
			Category:  g.latest.Category,
			Revisions: kept,
		})
	}

	m.metrics.FilterRevisions.WithLabelValues("kept").Add(float64(stats.KeptRevisions))

	return articles, stats
}

// dedupe sorts by (timestamp, revid), drops repeated revision ids and
// revisions too similar to the last kept one.
func (m *Merger) dedupe(docID string, revs []models.MergedRevision, stats *Stats) []models.MergedRevision {
	slices.SortFunc(revs, func(a, b models.MergedRevision) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}

		return cmp.Compare(a.RevID, b.RevID)
	})

	kept := make([]models.MergedRevision, 0, len(revs))
	seen := make(map[int64]bool, len(revs))

	for _, rev := range revs {
		if seen[rev.RevID] {
			stats.DuplicateRevIDs++
			m.count("duplicate_revid")

			continue
		}

		seen[rev.RevID] = true

		if len(kept) == 0 {
			kept = append(kept, rev)
			continue
		}

		last := kept[len(kept)-1]

		if last.ContentHash == rev.ContentHash {
			stats.NearDuplicates++
			m.count("near_duplicate")

			continue
		}

		diff := textdiff.CompareWords(last.Text, rev.Text)

		if diff.Similarity() >= m.opts.DuplicateThreshold {
			stats.NearDuplicates++
			m.count("near_duplicate")
			m.log.Debug("near duplicate dropped", "doc_id", docID, "rev_id", rev.RevID, "similarity", diff.Similarity())

			continue
		}

		if diff.Changed() < m.opts.MinChangedWords {
			stats.TooFewChanges++
			m.count("too_few_changes")

			continue
		}

		kept = append(kept, rev)
	}

	return kept
}

func (m *Merger) count(outcome string) {
	m.metrics.FilterRevisions.WithLabelValues(outcome).Inc()
}

func isLater(a, b *models.RawRevision) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}

	return a.RevID > b.RevID
}
