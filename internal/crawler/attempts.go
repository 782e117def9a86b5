package crawler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"wikiedits/internal/logger"
)

// AttemptResult records the result of one request attempt.
type AttemptResult struct {
	Timestamp  time.Time
	URL        string
	Error      string
	Attempt    int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// AttemptLog keeps every request attempt of a crawl, keyed by URL.
type AttemptLog struct {
	mu         sync.Mutex
	attemptLog map[string][]AttemptResult
	order      []string
}

// NewAttemptLog creates an empty attempt log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{
		attemptLog: make(map[string][]AttemptResult),
	}
}

// RecordAttempt records the result of a fetch attempt.
func (al *AttemptLog) RecordAttempt(url string, success bool, err error, statusCode int, duration time.Duration) {
	al.mu.Lock()
	defer al.mu.Unlock()

	if al.attemptLog[url] == nil {
		al.order = append(al.order, url)
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	al.attemptLog[url] = append(al.attemptLog[url], AttemptResult{
		URL:        url,
		Attempt:    len(al.attemptLog[url]) + 1,
		Success:    success,
		Error:      errMsg,
		Timestamp:  time.Now(),
		Duration:   duration,
		StatusCode: statusCode,
	})
}

// GetAttemptLog returns the attempt log for a URL.
func (al *AttemptLog) GetAttemptLog(url string) []AttemptResult {
	al.mu.Lock()
	defer al.mu.Unlock()

	return append([]AttemptResult(nil), al.attemptLog[url]...)
}

// FailedURLs returns the URLs whose last attempt failed, in first-seen order.
func (al *AttemptLog) FailedURLs() []string {
	al.mu.Lock()
	defer al.mu.Unlock()

	var failed []string

	for _, url := range al.order {
		results := al.attemptLog[url]
		if !results[len(results)-1].Success {
			failed = append(failed, url)
		}
	}

	return failed
}

// GetAttemptStats returns statistics about fetch attempts.
func (al *AttemptLog) GetAttemptStats() AttemptStats {
	al.mu.Lock()
	defer al.mu.Unlock()

	stats := AttemptStats{
		TotalURLs:   len(al.attemptLog),
		StatusCodes: make(map[int]int),
	}

	for _, results := range al.attemptLog {
		stats.TotalAttempts += len(results)

		urlSuccess := false

		for _, result := range results {
			stats.TotalDuration += result.Duration

			if result.StatusCode != 0 {
				stats.StatusCodes[result.StatusCode]++
			}

			if result.Success {
				stats.SuccessfulAttempts++
				urlSuccess = true
			} else {
				stats.FailedAttempts++
			}
		}

		if urlSuccess {
			stats.SuccessfulURLs++
		} else {
			stats.FailedURLs++
		}
	}

	return stats
}

// AttemptStats contains statistics about fetch attempts.
type AttemptStats struct {
	StatusCodes        map[int]int
	TotalDuration      time.Duration
	TotalURLs          int
	SuccessfulURLs     int
	FailedURLs         int
	TotalAttempts      int
	SuccessfulAttempts int
	FailedAttempts     int
}

// String returns a string representation of attempt stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"URLs: %d total, %d success, %d failed | Attempts: %d total, %d success, %d failed",
		s.TotalURLs,
		s.SuccessfulURLs,
		s.FailedURLs,
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
	)
}

// LogAttemptSummary logs overall statistics and up to maxFailures failed URLs.
func (al *AttemptLog) LogAttemptSummary(l *logger.Logger, maxFailures int) {
	stats := al.GetAttemptStats()

	codes := make([]int, 0, len(stats.StatusCodes))
	for code := range stats.StatusCodes {
		codes = append(codes, code)
	}

	sort.Ints(codes)

	for _, code := range codes {
		l.Debug("status code count", "status", code, "count", stats.StatusCodes[code])
	}

	failed := al.FailedURLs()
	for i, url := range failed {
		if i >= maxFailures {
			l.Warn("more failed requests omitted", "omitted", len(failed)-maxFailures)
			break
		}

		results := al.GetAttemptLog(url)
		last := results[len(results)-1]
		l.Warn("request failed",
			"url", url,
			"attempts", len(results),
			"status", last.StatusCode,
			"error", last.Error,
		)
	}

	l.Info("fetch attempt summary",
		"summary", stats.String(),
		"total_duration", stats.TotalDuration.Round(time.Millisecond).String(),
	)
}

// Reset clears the log.
func (al *AttemptLog) Reset() {
	al.mu.Lock()
	defer al.mu.Unlock()

	al.attemptLog = make(map[string][]AttemptResult)
	al.order = nil
}
