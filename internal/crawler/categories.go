package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Namespaces used by category members.
const (
	NamespaceMain     = 0
	NamespaceCategory = 14
)

// PageRef is a category member.
type PageRef struct {
	Title  string `json:"title"`
	PageID int64  `json:"pageid"`
	NS     int    `json:"ns"`
}

// IsCategory reports whether the member is a subcategory.
func (p PageRef) IsCategory() bool {
	return p.NS == NamespaceCategory
}

// CategoryLister pages through category members with generator=categorymembers.
type CategoryLister struct {
	client          *Client
	limit           int
	sortByTimestamp bool
}

// NewCategoryLister creates a lister requesting limit members per call.
// sortByTimestamp asks for newest-first members inside the crawl window.
func NewCategoryLister(client *Client, limit int, sortByTimestamp bool) *CategoryLister {
	return &CategoryLister{
		client:          client,
		limit:           limit,
		sortByTimestamp: sortByTimestamp,
	}
}

type membersResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []PageRef `json:"pages"`
	} `json:"query"`
}

// CategoryTitle prefixes name with "Category:" unless already present.
func CategoryTitle(name string) string {
	if strings.HasPrefix(name, "Category:") {
		return name
	}

	return "Category:" + name
}

// Members calls fn for every member of category, following continuation,
// until fn returns false or the listing ends.
func (cl *CategoryLister) Members(ctx context.Context, category string, w Window, fn func(PageRef) bool) error {
	params := url.Values{
		"generator": {"categorymembers"},
		"gcmtitle":  {CategoryTitle(category)},
		"gcmlimit":  {strconv.Itoa(cl.limit)},
	}

	if cl.sortByTimestamp {
		params.Set("gcmsort", "timestamp")
		params.Set("gcmdir", "desc")
		params.Set("gcmstart", apiTimestamp(w.End))
		params.Set("gcmend", apiTimestamp(w.Start))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var resp membersResponse
		if err := cl.client.Call(ctx, params, &resp); err != nil {
			return fmt.Errorf("list %s: %w", CategoryTitle(category), err)
		}

		for _, p := range resp.Query.Pages {
			if !fn(p) {
				return nil
			}
		}

		if len(resp.Continue) == 0 {
			return nil
		}

		for k, v := range resp.Continue {
			params.Set(k, v)
		}
	}
}
