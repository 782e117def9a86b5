package crawler

import (
	"time"
)

// Window is the [Start, End] time range of a crawl.
type Window struct {
	Start time.Time
	End   time.Time
}

func apiTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
