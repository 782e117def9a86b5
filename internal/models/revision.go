package models

import "time"

// Revision is the metadata of one historical version of an article.
type Revision struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Comment   string    `json:"comment,omitempty"`
	RevID     int64     `json:"revid"`
	ParentID  int64     `json:"parentid"`
	Size      int       `json:"size"`
	Minor     bool      `json:"minor"`
}

// RawRevision is the persisted crawl unit: one revision of one article with
// its extracted text.
type RawRevision struct {
	FetchedAt   time.Time `json:"fetched_at"`
	Article
	Revision
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
}

// MergedRevision is a cleaned revision kept by the filter stage.
type MergedRevision struct {
	Timestamp   time.Time `json:"timestamp"`
	User        string    `json:"user"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	RevID       int64     `json:"revid"`
}

// MergedArticle is the time-ordered, de-duplicated revision list of an article.
type MergedArticle struct {
	DocID     string           `json:"doc_id"`
	Domain    Domain           `json:"domain"`
	Title     string           `json:"title"`
	Category  string           `json:"category"`
	Revisions []MergedRevision `json:"revisions"`
	PageID    int64            `json:"pageid"`
}

// Pairs returns the consecutive revision pairs of the article in order.
func (a *MergedArticle) Pairs() []RevisionPair {
	if len(a.Revisions) < 2 {
		return nil
	}

	pairs := make([]RevisionPair, 0, len(a.Revisions)-1)
	for i := 0; i+1 < len(a.Revisions); i++ {
		pairs = append(pairs, RevisionPair{
			DocID: a.DocID,
			Title: a.Title,
			Depth: i + 1,
			Old:   a.Revisions[i],
			New:   a.Revisions[i+1],
		})
	}

	return pairs
}

// RevisionPair is two revisions of the same article, the later strictly
// following the earlier in time.
type RevisionPair struct {
	DocID string         `json:"doc_id"`
	Title string         `json:"title"`
	Old   MergedRevision `json:"old"`
	New   MergedRevision `json:"new"`
	Depth int            `json:"depth"`
}

// Ordered reports whether the pair respects Old.Timestamp < New.Timestamp.
func (p RevisionPair) Ordered() bool {
	return p.Old.Timestamp.Before(p.New.Timestamp)
}

// Identical reports whether both sides carry byte-identical text.
func (p RevisionPair) Identical() bool {
	return p.Old.Text == p.New.Text
}
