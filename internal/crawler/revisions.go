package crawler

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"wikiedits/internal/models"
)

const revisionProps = "ids|timestamp|user|flags|comment|size"

// RevisionFetcher lists revision metadata of pages.
type RevisionFetcher struct {
	client *Client
	limit  int
}

// NewRevisionFetcher creates a fetcher returning at most limit revisions per page.
func NewRevisionFetcher(client *Client, limit int) *RevisionFetcher {
	return &RevisionFetcher{
		client: client,
		limit:  limit,
	}
}

type revisionsResponse struct {
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			Revisions []models.Revision `json:"revisions"`
			PageID    int64             `json:"pageid"`
			Missing   bool              `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// Revisions returns the latest revisions of pageID inside w, oldest first.
func (rf *RevisionFetcher) Revisions(ctx context.Context, pageID int64, w Window) ([]models.Revision, error) {
	params := url.Values{
		"prop":    {"revisions"},
		"pageids": {strconv.FormatInt(pageID, 10)},
		"rvprop":  {revisionProps},
		"rvlimit": {strconv.Itoa(rf.limit)},
		"rvstart": {apiTimestamp(w.End)},
		"rvend":   {apiTimestamp(w.Start)},
	}

	var resp revisionsResponse
	if err := rf.client.Call(ctx, params, &resp); err != nil {
		return nil, fmt.Errorf("revisions of page %d: %w", pageID, err)
	}

	if len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("revisions of page %d: %w: no pages", pageID, ErrMalformedResponse)
	}

	page := resp.Query.Pages[0]
	if page.Missing {
		return nil, fmt.Errorf("revisions of page %d: %w: page missing", pageID, ErrAPI)
	}

	revs := page.Revisions
	slices.SortFunc(revs, compareRevisions)

	return revs, nil
}

// Revision returns the metadata of a single revision.
func (rf *RevisionFetcher) Revision(ctx context.Context, revID int64) (models.Revision, error) {
	params := url.Values{
		"prop":   {"revisions"},
		"revids": {strconv.FormatInt(revID, 10)},
		"rvprop": {revisionProps},
	}

	var resp revisionsResponse
	if err := rf.client.Call(ctx, params, &resp); err != nil {
		return models.Revision{}, fmt.Errorf("revision %d: %w", revID, err)
	}

	for _, p := range resp.Query.Pages {
		for _, r := range p.Revisions {
			if r.RevID == revID {
				return r, nil
			}
		}
	}

	return models.Revision{}, fmt.Errorf("revision %d: %w: not in response", revID, ErrMalformedResponse)
}

func compareRevisions(a, b models.Revision) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}

	switch {
	case a.RevID < b.RevID:
		return -1
	case a.RevID > b.RevID:
		return 1
	}

	return 0
}
