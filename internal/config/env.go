package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides.
const (
	EnvDataDir    = "WIKIEDITS_DATA_DIR"
	EnvUserAgent  = "WIKIEDITS_USER_AGENT"
	EnvDiffBinary = "WIKIEDITS_DIFF_BINARY"
	EnvLogLevel   = "WIKIEDITS_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}

		if err := godotenv.Load(f); err != nil {
			return err
		}
	}

	return nil
}

// ApplyEnv overlays WIKIEDITS_* environment variables on the config.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.Output.BasePath = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvUserAgent)); v != "" {
		c.Crawler.UserAgent = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvDiffBinary)); v != "" {
		c.Diff.Binary = v
	}

	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
