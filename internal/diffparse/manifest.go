package diffparse

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"wikiedits/internal/config"
	"wikiedits/internal/models"
	"wikiedits/pkg/utils"
)

var artifactNameRegex = regexp.MustCompile(`^(.+)_diff_v(\d+)v(\d+)\.tex$`)

// LoadArtifacts returns the artifacts of a run in processing order: the
// manifest order when a manifest exists, otherwise the artifact files in the
// diff directory ordered by doc id, then depth.
func LoadArtifacts(layout config.Layout) ([]models.DiffArtifact, error) {
	artifacts, err := utils.ReadJSONL[models.DiffArtifact](layout.ManifestFile(), 0)
	if err == nil {
		return artifacts, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return ScanDir(layout.DiffDir())
}

// ScanDir lists the artifact files of dir.
func ScanDir(dir string) ([]models.DiffArtifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var artifacts []models.DiffArtifact

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		m := artifactNameRegex.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		depth, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		artifacts = append(artifacts, models.DiffArtifact{
			DocID: m[1],
			Depth: depth,
			Path:  filepath.Base(e.Name()),
		})
	}

	slices.SortFunc(artifacts, func(a, b models.DiffArtifact) int {
		return cmp.Or(cmp.Compare(a.DocID, b.DocID), cmp.Compare(a.Depth, b.Depth))
	})

	return artifacts, nil
}
