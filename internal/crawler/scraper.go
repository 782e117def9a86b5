package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"wikiedits/internal/config"
	"wikiedits/internal/metrics"
	"wikiedits/pkg/utils"
)

// Scraper performs GET requests with config-driven retry, client-side rate
// limiting and a per-request timeout.
type Scraper struct {
	client       *http.Client
	retryPolicy  *config.RetryPolicy
	headers      *utils.HTTPHelper
	limiter      *rate.Limiter
	attempts     *AttemptLog
	metrics      *metrics.Metrics
	sleep        func(ctx context.Context, d time.Duration) error
	bufferSizeKb int
}

// ScraperOption customizes a Scraper.
type ScraperOption func(*Scraper)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ScraperOption {
	return func(s *Scraper) { s.client = c }
}

// WithRateLimit allows rps requests per second. Zero disables limiting.
func WithRateLimit(rps float64) ScraperOption {
	return func(s *Scraper) {
		if rps <= 0 {
			s.limiter = nil
			return
		}

		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithAttemptLog records every attempt in log.
func WithAttemptLog(log *AttemptLog) ScraperOption {
	return func(s *Scraper) { s.attempts = log }
}

// WithMetrics counts requests by outcome.
func WithMetrics(m *metrics.Metrics) ScraperOption {
	return func(s *Scraper) { s.metrics = m }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ScraperOption {
	return func(s *Scraper) { s.headers = utils.NewHTTPHelper(ua) }
}

// NewScraperWithConfig creates a new scraper with custom retry policy.
func NewScraperWithConfig(retryPolicy *config.RetryPolicy, bufferSizeKb int, opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client:       &http.Client{},
		retryPolicy:  retryPolicy,
		headers:      utils.NewHTTPHelper(""),
		bufferSizeKb: bufferSizeKb,
		sleep:        sleepCtx,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Attempts returns the attempt log, if any.
func (s *Scraper) Attempts() *AttemptLog {
	return s.attempts
}

// ScrapeWithMetrics returns (body, statusCode, duration, error).
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) ([]byte, int, time.Duration, error) {
	var (
		lastErr        error
		lastStatusCode int
		totalDuration  time.Duration
	)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.retryPolicy.GetRetryDelay(attempt)

			var ra *retryAfterError
			if errors.As(lastErr, &ra) && ra.wait > delay {
				delay = ra.wait
			}

			if err := s.sleep(ctx, delay); err != nil {
				return nil, lastStatusCode, totalDuration, err
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, lastStatusCode, totalDuration, err
			}
		}

		body, statusCode, duration, err := s.attempt(ctx, url)
		totalDuration += duration
		lastStatusCode = statusCode

		s.record(url, attempt, statusCode, duration, err)

		if err == nil {
			return body, statusCode, totalDuration, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, statusCode, totalDuration, ctx.Err()
		}

		if !isRetryable(err, statusCode) {
			break
		}
	}

	return nil, lastStatusCode, totalDuration, unwrapRetryAfter(lastErr)
}

// Scrape fetches and returns the body of url.
func (s *Scraper) Scrape(ctx context.Context, url string) ([]byte, error) {
	body, _, _, err := s.ScrapeWithMetrics(ctx, url)

	return body, err
}

func (s *Scraper) attempt(ctx context.Context, url string) ([]byte, int, time.Duration, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, s.retryPolicy.GetTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, time.Since(start), fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.BuildHeaders(nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, time.Since(start), fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		statusErr := fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			statusErr = &retryAfterError{
				err:  fmt.Errorf("%w: %w", ErrRateLimited, statusErr),
				wait: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		return nil, resp.StatusCode, time.Since(start), statusErr
	}

	// bufferSizeKb is in KB, one extra byte detects truncation
	limit := int64(s.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, resp.StatusCode, time.Since(start), fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	if int64(len(body)) > limit {
		return nil, resp.StatusCode, time.Since(start),
			fmt.Errorf("%w: response larger than %d KB", ErrMalformedResponse, s.bufferSizeKb)
	}

	return body, resp.StatusCode, time.Since(start), nil
}

func (s *Scraper) record(url string, attempt, statusCode int, duration time.Duration, err error) {
	if s.attempts != nil {
		s.attempts.RecordAttempt(url, err == nil, err, statusCode, duration)
	}

	if s.metrics == nil {
		return
	}

	s.metrics.APIDuration.Observe(duration.Seconds())

	outcome := "ok"

	switch {
	case err == nil && attempt > 1:
		outcome = "ok_after_retry"
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case errors.Is(err, ErrNetwork):
		outcome = "network_error"
	case err != nil:
		outcome = "status_error"
	}

	s.metrics.APIRequests.WithLabelValues(outcome).Inc()
}

// retryAfterError carries the server-requested wait of a 429 response.
type retryAfterError struct {
	err  error
	wait time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

func unwrapRetryAfter(err error) error {
	var ra *retryAfterError
	if errors.As(err, &ra) {
		return ra.err
	}

	return err
}

// parseRetryAfter understands the delay-seconds and HTTP-date forms.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

func isRetryable(err error, statusCode int) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}

	return isRetryableStatus(statusCode)
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
