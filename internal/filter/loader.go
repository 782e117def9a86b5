package filter

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"wikiedits/internal/logger"
	"wikiedits/internal/models"
)

// LoadStats counts files seen by LoadRawDir.
type LoadStats struct {
	Files     int
	Malformed int
}

// LoadRawDir reads every *.json revision file below dir in lexical path
// order. Unreadable or malformed files are logged and skipped.
func LoadRawDir(dir string, log *logger.Logger) ([]models.RawRevision, LoadStats, error) {
	var stats LoadStats

	info, err := os.Stat(dir)
	if err != nil {
		return nil, stats, fmt.Errorf("raw directory: %w", err)
	}

	if !info.IsDir() {
		return nil, stats, fmt.Errorf("raw directory: %s is not a directory", dir)
	}

	var paths []string

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("cannot read raw entry", "path", path, "error", err)
			return nil
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") && !strings.HasPrefix(d.Name(), ".") {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk %s: %w", dir, err)
	}

	slices.Sort(paths)

	records := make([]models.RawRevision, 0, len(paths))

	for _, path := range paths {
		stats.Files++

		data, err := os.ReadFile(path)
		if err != nil {
			stats.Malformed++
			log.Warn("cannot read raw revision", "path", path, "error", err)

			continue
		}

		var raw models.RawRevision
		if err := json.Unmarshal(data, &raw); err != nil {
			stats.Malformed++
			log.Warn("malformed raw revision", "path", path, "error", err)

			continue
		}

		records = append(records, raw)
	}

	return records, stats, nil
}
