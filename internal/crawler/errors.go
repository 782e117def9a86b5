package crawler

import "errors"

// Crawl errors. Callers test them with errors.Is.
var (
	ErrNetwork              = errors.New("network error")
	ErrRateLimited          = errors.New("rate limited")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrMalformedResponse    = errors.New("malformed API response")
	ErrAPI                  = errors.New("API error")
	ErrNoContent            = errors.New("revision has no content")
)
