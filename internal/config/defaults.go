package config

// Default returns the built-in configuration. YAML files are decoded on top
// of it, so a config file only needs the keys it changes.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			Domains: map[string]DomainConfig{
				"wikipedia": {
					APIURL:          "https://en.wikipedia.org/w/api.php",
					StopMarker:      "\n See also",
					SortByTimestamp: true,
					Categories: map[string][]string{
						"culture":    {"Culture", "Arts", "Music", "Literature"},
						"geography":  {"Geography", "Countries", "Cities"},
						"health":     {"Health", "Medicine", "Diseases_and_disorders"},
						"history":    {"History", "Historical_events", "Wars"},
						"philosophy": {"Philosophy", "Ethics", "Logic", "Metaphysics"},
						"politics":   {"Politics", "Government", "Elections"},
						"science":    {"Science", "Physics", "Chemistry", "Biology"},
						"technology": {"Technology", "Computing", "Engineering"},
					},
				},
				"wikinews": {
					APIURL:     "https://en.wikinews.org/w/api.php",
					StopMarker: "Sources",
					Categories: map[string][]string{
						"all": {"Published", "Original_reporting"},
					},
				},
			},
			UserAgent:    "wikiedits/1.0 (revision dataset builder)",
			StopSections: []string{"See also", "References", "Sources", "External links", "Notes"},
			Retry: RetryPolicy{
				MaxAttempts:       5,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				JitterMs:          250,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
			RateLimitRPS:        5,
			YearsBack:           1,
			RevisionsPerPage:    20,
			PageLimit:           50,
			MaxCategoryDepth:    0,
			MaxPagesPerCategory: 0,
			BufferSizeKb:        8192,
			SkipMinor:           true,
			FetchBaselineParent: false,
		},
		Output: OutputConfig{
			BasePath: "./data",
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			SampleEvents: 3,
		},
		Diff: DiffConfig{
			Binary:     "latexdiff",
			Args:       []string{"--ignore-warnings", "--math-markup=0"},
			TimeoutSec: 60,
		},
		Filter: FilterConfig{
			ExcludeTitlePatterns: []string{"Category:", "List of "},
			DuplicateThreshold:   1.0,
			MinChangedWords:      0,
			URLPlaceholder:       "URL",
		},
		Parser: ParserConfig{
			ExcludeSentencePatterns: []string{"Category:", "List of"},
			AlignMinSimilarity:      0.3,
		},
	}
}
