// Package config provides configuration management for the revision pipeline.
package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"wikiedits/internal/models"
	"wikiedits/pkg/utils"
)

// Configuration validation errors.
var (
	ErrUnknownDomain            = errors.New("unknown domain")
	ErrUnknownMainCategory      = errors.New("unknown main category")
	ErrMissingAPIURL            = errors.New("crawler.domains.<domain>.api_url is required")
	ErrInvalidAPIURL            = errors.New("crawler.domains.<domain>.api_url must be an absolute http(s) URL")
	ErrNoCategories             = errors.New("at least one category is required per main category")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidRevisionLimit     = errors.New("crawler.revisions_per_page must be between 1 and 500")
	ErrInvalidPageLimit         = errors.New("crawler.page_limit must be between 1 and 500")
	ErrInvalidCategoryDepth     = errors.New("crawler.max_category_depth must be non-negative")
	ErrInvalidYearsBack         = errors.New("crawler.years_back must be at least 1")
	ErrInvalidRateLimit         = errors.New("crawler.rate_limit_rps must be non-negative")
	ErrMissingOutputPath        = errors.New("output.base_path is required")
	ErrInvalidThreshold         = errors.New("filter.duplicate_threshold must be in (0, 1]")
	ErrInvalidMinChangedWords   = errors.New("filter.min_changed_words must be non-negative")
	ErrMissingDiffBinary        = errors.New("diff.binary is required")
	ErrInvalidDiffTimeout       = errors.New("diff.timeout_sec must be at least 1")
	ErrInvalidAlignSimilarity   = errors.New("parser.align_min_similarity must be in [0, 1]")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'console' or 'json'")
)

// Config represents the complete pipeline configuration.
type Config struct {
	Crawler CrawlerConfig `yaml:"crawler"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Diff    DiffConfig    `yaml:"diff"`
	Filter  FilterConfig  `yaml:"filter"`
	Parser  ParserConfig  `yaml:"parser"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// CrawlerConfig contains crawl-stage settings.
type CrawlerConfig struct {
	Domains             map[string]DomainConfig `yaml:"domains"`
	UserAgent           string                  `yaml:"user_agent"`
	StopSections        []string                `yaml:"stop_sections"`
	Retry               RetryPolicy             `yaml:"retry"`
	RateLimitRPS        float64                 `yaml:"rate_limit_rps"`
	YearsBack           int                     `yaml:"years_back"`
	RevisionsPerPage    int                     `yaml:"revisions_per_page"`
	PageLimit           int                     `yaml:"page_limit"`
	MaxCategoryDepth    int                     `yaml:"max_category_depth"`
	MaxPagesPerCategory int                     `yaml:"max_pages_per_category"`
	BufferSizeKb        int                     `yaml:"buffer_size_kb"`
	SkipMinor           bool                    `yaml:"skip_minor"`
	FetchBaselineParent bool                    `yaml:"fetch_baseline_parent"`
}

// DomainConfig describes one wiki: its API endpoint and the categories
// crawled for each main category.
type DomainConfig struct {
	Categories      map[string][]string `yaml:"categories"`
	APIURL          string              `yaml:"api_url"`
	StopMarker      string              `yaml:"stop_marker"`
	SortByTimestamp bool                `yaml:"sort_by_timestamp"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	JitterMs          int     `yaml:"jitter_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// FilterConfig drives the filter & merge stage.
type FilterConfig struct {
	ExcludeTitlePatterns []string `yaml:"exclude_title_patterns"`
	DuplicateThreshold   float64  `yaml:"duplicate_threshold"`
	MinChangedWords      int      `yaml:"min_changed_words"`
	URLPlaceholder       string   `yaml:"url_placeholder"`
}

// DiffConfig drives the external diff tool.
type DiffConfig struct {
	Binary     string   `yaml:"binary"`
	Args       []string `yaml:"args"`
	TimeoutSec int      `yaml:"timeout_sec"`
	Overwrite  bool     `yaml:"overwrite"`
}

// ParserConfig drives sentence extraction from diff artifacts.
type ParserConfig struct {
	ExcludeSentencePatterns []string `yaml:"exclude_sentence_patterns"`
	AlignMinSimilarity      float64  `yaml:"align_min_similarity"`
	MaxEditsPerArtifact     int      `yaml:"max_edits_per_artifact"`
	IncludeUnchanged        bool     `yaml:"include_unchanged"`
}

// OutputConfig defines where stage outputs live.
type OutputConfig struct {
	BasePath string `yaml:"base_path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	SampleEvents int    `yaml:"sample_events"`
}

// MetricsConfig enables the per-run textfile metrics export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoadConfig loads configuration from a YAML file over the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.mergeDomains(data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// mergeDomains decodes each crawler.domains entry of data over its built-in
// default. Plain decoding replaces the whole map value, dropping the
// default api_url and stop_marker of a domain the file only partly sets.
func (c *Config) mergeDomains(data []byte) error {
	var raw struct {
		Crawler struct {
			Domains map[string]yaml.Node `yaml:"domains"`
		} `yaml:"crawler"`
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	defaults := Default().Crawler.Domains

	for name, node := range raw.Crawler.Domains {
		dc, ok := defaults[name]
		if !ok {
			continue
		}

		if err := node.Decode(&dc); err != nil {
			return fmt.Errorf("crawler.domains.%s: %w", name, err)
		}

		c.Crawler.Domains[name] = dc
	}

	return nil
}

// Load reads the YAML file at path, or starts from the defaults when path
// is empty. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	cfg := Default()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, d := range models.Domains() {
		dc, ok := c.Crawler.Domains[string(d)]
		if !ok {
			return fmt.Errorf("%w: %s has no crawler.domains entry", ErrUnknownDomain, d)
		}

		if dc.APIURL == "" {
			return fmt.Errorf("%w: %s", ErrMissingAPIURL, d)
		}

		if !utils.NewHTTPHelper("").IsValidURL(dc.APIURL) {
			return fmt.Errorf("%w: %s: %q", ErrInvalidAPIURL, d, dc.APIURL)
		}

		for main, cats := range dc.Categories {
			if len(cats) == 0 {
				return fmt.Errorf("%w: %s/%s", ErrNoCategories, d, main)
			}
		}
	}

	if err := c.Crawler.Retry.validate(); err != nil {
		return err
	}

	if c.Crawler.YearsBack < 1 {
		return ErrInvalidYearsBack
	}

	if c.Crawler.RevisionsPerPage < 1 || c.Crawler.RevisionsPerPage > 500 {
		return ErrInvalidRevisionLimit
	}

	if c.Crawler.PageLimit < 1 || c.Crawler.PageLimit > 500 {
		return ErrInvalidPageLimit
	}

	if c.Crawler.MaxCategoryDepth < 0 {
		return ErrInvalidCategoryDepth
	}

	if c.Crawler.RateLimitRPS < 0 {
		return ErrInvalidRateLimit
	}

	if c.Output.BasePath == "" {
		return ErrMissingOutputPath
	}

	if c.Filter.DuplicateThreshold <= 0 || c.Filter.DuplicateThreshold > 1 {
		return ErrInvalidThreshold
	}

	if c.Filter.MinChangedWords < 0 {
		return ErrInvalidMinChangedWords
	}

	if c.Diff.Binary == "" {
		return ErrMissingDiffBinary
	}

	if c.Diff.TimeoutSec < 1 {
		return ErrInvalidDiffTimeout
	}

	if c.Parser.AlignMinSimilarity < 0 || c.Parser.AlignMinSimilarity > 1 {
		return ErrInvalidAlignSimilarity
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

func (rp *RetryPolicy) validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// Domain returns the settings of a domain.
func (c *Config) Domain(domain models.Domain) (DomainConfig, error) {
	dc, ok := c.Crawler.Domains[string(domain)]
	if !ok {
		return DomainConfig{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}

	return dc, nil
}

// MainCategories returns the configured main categories of a domain, sorted.
func (c *Config) MainCategories(domain models.Domain) []string {
	dc := c.Crawler.Domains[string(domain)]

	mains := make([]string, 0, len(dc.Categories))
	for main := range dc.Categories {
		mains = append(mains, main)
	}

	slices.Sort(mains)

	return mains
}

// Categories returns the wiki categories crawled for a main category.
func (c *Config) Categories(domain models.Domain, mainCategory string) ([]string, error) {
	dc, err := c.Domain(domain)
	if err != nil {
		return nil, err
	}

	cats, ok := dc.Categories[mainCategory]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s (available: %v)",
			ErrUnknownMainCategory, mainCategory, domain, c.MainCategories(domain))
	}

	return cats, nil
}

// TimeWindow returns [now - years_back, now].
func (c *Config) TimeWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(-c.Crawler.YearsBack, 0, 0), now
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	if rp.JitterMs > 0 {
		delayMs += float64(rand.IntN(rp.JitterMs))
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// GetTimeout returns the diff tool timeout.
func (d *DiffConfig) GetTimeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{YearsBack: %d, MaxAttempts: %d, Output: %s, Diff: %s}",
		c.Crawler.YearsBack,
		c.Crawler.Retry.MaxAttempts,
		c.Output.BasePath,
		c.Diff.Binary,
	)
}
