// Package models defines the records passed between pipeline stages.
package models

import (
	"fmt"
	"strconv"
)

// Domain identifies the wiki a revision history is crawled from.
type Domain string

// Supported domains.
const (
	DomainWikipedia Domain = "wikipedia"
	DomainWikinews  Domain = "wikinews"
)

// Domains lists every supported domain.
func Domains() []Domain {
	return []Domain{DomainWikipedia, DomainWikinews}
}

// ParseDomain validates a domain name.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if string(d) == s {
			return d, nil
		}
	}

	return "", fmt.Errorf("invalid domain %q: choose from %v", s, Domains())
}

// Article represents a wiki page that belongs to a crawled category.
type Article struct {
	Domain   Domain `json:"domain"`
	Title    string `json:"title"`
	Category string `json:"category"`
	PageID   int64  `json:"pageid"`
}

// DocID returns the pipeline-wide key of the article.
func (a Article) DocID() string {
	return DocID(a.Domain, a.PageID)
}

// DocID builds the "<domain>-<pageid>" article key.
func DocID(domain Domain, pageID int64) string {
	return string(domain) + "-" + strconv.FormatInt(pageID, 10)
}
