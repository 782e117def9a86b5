package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"wikiedits/internal/config"
	"wikiedits/internal/logger"
	"wikiedits/internal/metrics"
	"wikiedits/internal/models"
	"wikiedits/internal/textmatch"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

// CategorySource lists category members.
type CategorySource interface {
	Members(ctx context.Context, category string, w Window, fn func(PageRef) bool) error
}

// RevisionSource lists revision metadata.
type RevisionSource interface {
	Revisions(ctx context.Context, pageID int64, w Window) ([]models.Revision, error)
	Revision(ctx context.Context, revID int64) (models.Revision, error)
}

// ContentSource returns the plain text of a revision.
type ContentSource interface {
	Content(ctx context.Context, revID int64) (string, error)
}

// Sources bundles the collaborators of an Orchestrator.
type Sources struct {
	Categories CategorySource
	Revisions  RevisionSource
	Contents   ContentSource
}

// NewMediaWikiSources wires the API-backed sources of a domain.
func NewMediaWikiSources(cfg *config.Config, domain models.Domain, scraper *Scraper) (Sources, error) {
	dc, err := cfg.Domain(domain)
	if err != nil {
		return Sources{}, err
	}

	client := NewClient(dc.APIURL, scraper)

	return Sources{
		Categories: NewCategoryLister(client, cfg.Crawler.PageLimit, dc.SortByTimestamp),
		Revisions:  NewRevisionFetcher(client, cfg.Crawler.RevisionsPerPage),
		Contents:   NewContentFetcher(client, NewExtractor(cfg.Crawler.StopSections)),
	}, nil
}

// Stats summarises a crawl.
type Stats struct {
	Categories        int
	CategoryFailures  int
	Pages             int
	PagesExcluded     int
	PageFailures      int
	Revisions         int
	Written           int
	Existing          int
	SkippedMinor      int
	RevisionFailures  int
	BaselineRevisions int
}

// Orchestrator crawls one domain/main category into per-revision files.
type Orchestrator struct {
	sources      Sources
	log          *logger.Logger
	metrics      *metrics.Metrics
	exclude      *textmatch.Matcher
	now          func() time.Time
	timeWindow   func(now time.Time) (time.Time, time.Time)
	layout       config.Layout
	domain       models.Domain
	mainCategory string
	roots        []string
	crawler      config.CrawlerConfig
}

// NewOrchestrator validates the main category and prepares a crawl.
func NewOrchestrator(
	cfg *config.Config,
	domain models.Domain,
	mainCategory string,
	sources Sources,
	log *logger.Logger,
	m *metrics.Metrics,
) (*Orchestrator, error) {
	roots, err := cfg.Categories(domain, mainCategory)
	if err != nil {
		return nil, err
	}

	if m == nil {
		m = metrics.New()
	}

	return &Orchestrator{
		sources:      sources,
		log:          log.With("domain", domain, "main_category", mainCategory),
		metrics:      m,
		exclude:      textmatch.New(cfg.Filter.ExcludeTitlePatterns),
		now:          time.Now,
		timeWindow:   cfg.TimeWindow,
		layout:       cfg.Layout(domain, mainCategory),
		domain:       domain,
		mainCategory: mainCategory,
		roots:        roots,
		crawler:      cfg.Crawler,
	}, nil
}

type queuedCategory struct {
	title string
	depth int
}

// Run crawls every root category breadth-first. Per-page and per-revision
// failures are logged and counted; only an unusable output directory or
// context cancellation end the crawl early.
func (o *Orchestrator) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := os.MkdirAll(o.layout.RawDir(), 0755); err != nil {
		return stats, fmt.Errorf("failed to create output directory: %w", err)
	}

	start, end := o.crawlWindow()
	w := Window{Start: start, End: end}

	o.log.Info("crawl started",
		"roots", o.roots,
		"start", apiTimestamp(w.Start),
		"end", apiTimestamp(w.End),
		"output", o.layout.RawDir(),
	)

	queue := make([]queuedCategory, 0, len(o.roots))
	visited := make(map[string]bool)

	for _, r := range o.roots {
		title := CategoryTitle(r)
		if !visited[title] {
			visited[title] = true
			queue = append(queue, queuedCategory{title: title})
		}
	}

	seenPages := make(map[int64]bool)

	for len(queue) > 0 {
		cat := queue[0]
		queue = queue[1:]
		stats.Categories++

		pagesInCategory := 0

		err := o.sources.Categories.Members(ctx, cat.title, w, func(p PageRef) bool {
			if ctx.Err() != nil {
				return false
			}

			if p.IsCategory() {
				title := CategoryTitle(p.Title)
				if cat.depth < o.crawler.MaxCategoryDepth && !visited[title] {
					visited[title] = true
					queue = append(queue, queuedCategory{title: title, depth: cat.depth + 1})
				}

				return true
			}

			if p.NS != NamespaceMain || seenPages[p.PageID] {
				return true
			}

			seenPages[p.PageID] = true

			if matched := o.exclude.Matches(p.Title); len(matched) > 0 {
				stats.PagesExcluded++
				o.log.Debug("page excluded", "title", p.Title, "patterns", matched)
				o.metrics.Articles.WithLabelValues("crawl", "excluded").Inc()

				return true
			}

			stats.Pages++
			pagesInCategory++

			if err := o.crawlPage(ctx, p, w, &stats); err != nil {
				stats.PageFailures++
				o.metrics.Articles.WithLabelValues("crawl", "failed").Inc()
				o.log.Warn("page skipped", "page_id", p.PageID, "title", p.Title, "error", err)
			} else {
				o.metrics.Articles.WithLabelValues("crawl", "crawled").Inc()
			}

			return o.crawler.MaxPagesPerCategory == 0 || pagesInCategory < o.crawler.MaxPagesPerCategory
		})

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		if err != nil {
			stats.CategoryFailures++
			o.log.Warn("category listing failed", "category", cat.title, "error", err)

			continue
		}

		o.log.Debug("category done", "category", cat.title, "depth", cat.depth, "pages", pagesInCategory)
	}

	o.log.Info("crawl finished",
		"categories", stats.Categories,
		"pages", stats.Pages,
		"revisions_written", stats.Written,
		"revisions_existing", stats.Existing,
		"revision_failures", stats.RevisionFailures,
	)

	return stats, nil
}

func (o *Orchestrator) crawlWindow() (time.Time, time.Time) {
	return o.timeWindow(o.now())
}

func (o *Orchestrator) crawlPage(ctx context.Context, p PageRef, w Window, stats *Stats) error {
	revs, err := o.sources.Revisions.Revisions(ctx, p.PageID, w)
	if err != nil {
		return err
	}

	article := models.Article{
		Domain:   o.domain,
		PageID:   p.PageID,
		Title:    p.Title,
		Category: o.mainCategory,
	}

	var oldest *models.Revision

	for i := range revs {
		rev := revs[i]
		stats.Revisions++

		if rev.Minor && o.crawler.SkipMinor {
			stats.SkippedMinor++
			o.metrics.Revisions.WithLabelValues("skipped_minor").Inc()

			continue
		}

		if oldest == nil {
			oldest = &revs[i]
		}

		o.storeRevision(ctx, article, rev, stats)
	}

	if o.crawler.FetchBaselineParent && oldest != nil && oldest.ParentID > 0 {
		parent, err := o.sources.Revisions.Revision(ctx, oldest.ParentID)
		if err != nil {
			stats.RevisionFailures++
			o.log.Warn("baseline revision skipped", "page_id", p.PageID, "rev_id", oldest.ParentID, "error", err)

			return nil
		}

		stats.BaselineRevisions++
		o.storeRevision(ctx, article, parent, stats)
	}

	return nil
}

func (o *Orchestrator) storeRevision(ctx context.Context, article models.Article, rev models.Revision, stats *Stats) {
	path := o.layout.RawRevisionPath(article.PageID, rev.RevID)

	if utils.FileExists(path) {
		stats.Existing++
		o.metrics.Revisions.WithLabelValues("existing").Inc()

		return
	}

	content, err := o.sources.Contents.Content(ctx, rev.RevID)
	if err != nil {
		stats.RevisionFailures++
		o.metrics.Revisions.WithLabelValues("failed").Inc()
		o.log.Warn("revision skipped", "page_id", article.PageID, "rev_id", rev.RevID, "error", err)

		return
	}

	raw := models.RawRevision{
		Article:     article,
		Revision:    rev,
		Content:     content,
		ContentHash: metadata.ContentHash(content),
		FetchedAt:   o.now().UTC(),
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		stats.RevisionFailures++
		o.log.Error("failed to encode revision", "rev_id", rev.RevID, "error", err)

		return
	}

	if err := utils.WriteFileAtomic(path, data); err != nil {
		stats.RevisionFailures++
		o.metrics.Revisions.WithLabelValues("failed").Inc()
		o.log.Error("failed to write revision", "path", path, "error", err)

		return
	}

	stats.Written++
	o.metrics.Revisions.WithLabelValues("written").Inc()
	o.log.Debug("revision written", "page_id", article.PageID, "rev_id", rev.RevID)
}
