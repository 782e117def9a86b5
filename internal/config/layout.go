package config

import (
	"fmt"
	"path/filepath"

	"wikiedits/internal/models"
)

// Layout resolves the on-disk locations of one domain/main category run.
type Layout struct {
	Root         string
	Domain       models.Domain
	MainCategory string
}

// Layout returns the stage paths for a domain and main category.
func (c *Config) Layout(domain models.Domain, mainCategory string) Layout {
	return Layout{
		Root:         c.Output.BasePath,
		Domain:       domain,
		MainCategory: mainCategory,
	}
}

func (l Layout) domainDir() string {
	return filepath.Join(l.Root, string(l.Domain))
}

// RawDir holds one JSON file per crawled revision: <page_id>/<rev_id>.json.
func (l Layout) RawDir() string {
	return filepath.Join(l.domainDir(), "raw", l.MainCategory)
}

// RawRevisionPath returns the file of one crawled revision.
func (l Layout) RawRevisionPath(pageID, revID int64) string {
	return filepath.Join(l.RawDir(), fmt.Sprint(pageID), fmt.Sprintf("%d.json", revID))
}

// MergedFile is the filter stage output.
func (l Layout) MergedFile() string {
	return filepath.Join(l.domainDir(), "merged", l.MainCategory+".jsonl")
}

// DiffDir holds diff artifacts and their manifest.
func (l Layout) DiffDir() string {
	return filepath.Join(l.domainDir(), "diffs", l.MainCategory)
}

// ManifestFile lists diff artifacts in generation order.
func (l Layout) ManifestFile() string {
	return filepath.Join(l.DiffDir(), "manifest.jsonl")
}

// ArtifactPath returns <doc_id>_diff_v<n>v<n+1>.tex in the diff directory.
func (l Layout) ArtifactPath(docID string, depth int) string {
	return filepath.Join(l.DiffDir(), fmt.Sprintf("%s_diff_v%dv%d.tex", docID, depth, depth+1))
}

// DatasetFile is the sentence pair dataset.
func (l Layout) DatasetFile() string {
	return filepath.Join(l.domainDir(), "dataset", l.MainCategory+"_sentence_pairs.jsonl")
}

// MetricsFile is the textfile export for a stage.
func (l Layout) MetricsFile(stage string) string {
	return filepath.Join(l.domainDir(), "metrics", stage+".prom")
}
