package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"wikiedits/internal/cli"
	"wikiedits/internal/models"
	"wikiedits/internal/pipeline"
	"wikiedits/pkg/utils"
)

// revisionText is the body of each fake revision, keyed by revid.
var revisionText = map[string]string{
	"101": "The museum opened in 1901. It holds paintings.",
	"102": "The museum opened in 1902. It holds paintings.",
	"103": "The museum opened in 1902. It holds paintings and sculptures. Entry is free.",
	"201": "Sorted list of museums.",
	"202": "Sorted list of museums by city.",
}

func newWikiServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case q.Get("action") == "parse":
			id := q.Get("oldid")

			text, ok := revisionText[id]
			if !ok {
				fmt.Fprintf(w, `{"error":{"code":"nosuchrevid","info":"no revision %s"}}`, id)
				return
			}

			fmt.Fprintf(w, `{"parse":{"title":"x","pageid":1,"revid":%s,"text":"<div class=\"mw-parser-output\"><p>%s</p></div>"}}`, id, text)
		case q.Get("generator") == "categorymembers":
			fmt.Fprint(w, `{"query":{"pages":[
				{"pageid":1,"ns":0,"title":"City Museum"},
				{"pageid":2,"ns":0,"title":"List of museums"}]}}`)
		case q.Get("pageids") == "1":
			fmt.Fprint(w, `{"query":{"pages":[{"pageid":1,"title":"City Museum","revisions":[
				{"revid":103,"parentid":102,"user":"c","timestamp":"2026-03-03T00:00:00Z","size":90},
				{"revid":102,"parentid":101,"user":"b","timestamp":"2026-03-02T00:00:00Z","size":50},
				{"revid":101,"parentid":0,"user":"a","timestamp":"2026-03-01T00:00:00Z","size":50}]}]}}`)
		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestWorkerFlow_FullPipeline(t *testing.T) {
	srv := newWikiServer(t)
	base := t.TempDir()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := fmt.Sprintf(`crawler:
  domains:
    wikipedia:
      api_url: %s
      categories:
        culture: [Museums]
  rate_limit_rps: 0
  retry:
    max_attempts: 1
    timeout_sec: 5
output:
  base_path: %s
diff:
  binary: builtin
metrics:
  enabled: true
logging:
  level: warn
`, srv.URL, base)

	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	reportPath := filepath.Join(base, "report.md")

	cmd := cli.NewCommand("worker", "test", "worker", true, func(ctx context.Context, r *pipeline.Runner) error {
		return r.RunAll(ctx)
	})
	cmd.SetArgs([]string{
		"--config", cfgPath,
		"--domain", "wikipedia",
		"--main_category", "culture",
		"--report", reportPath,
	})

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("worker failed: %v", err)
	}

	// The list page is excluded by title during the crawl.
	raw, err := filepath.Glob(filepath.Join(base, "wikipedia", "raw", "culture", "*", "*.json"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}

	if len(raw) != 3 {
		t.Fatalf("Expected 3 raw revisions, got %d", len(raw))
	}

	datasetPath := filepath.Join(base, "wikipedia", "dataset", "culture_sentence_pairs.jsonl")

	pairs, err := utils.ReadJSONL[models.SentencePair](datasetPath, 0)
	if err != nil {
		t.Fatalf("Failed to read dataset: %v", err)
	}

	counts := make(map[models.EditType]int)
	for _, p := range pairs {
		counts[p.EditType]++
	}

	// 1901 -> 1902, then "and sculptures" plus the new last sentence.
	if counts[models.EditReplace] != 2 {
		t.Errorf("Expected 2 replacements, got %d (%+v)", counts[models.EditReplace], pairs)
	}

	if counts[models.EditAdd] != 1 {
		t.Errorf("Expected 1 addition, got %d", counts[models.EditAdd])
	}

	if len(pairs) != 3 {
		t.Fatalf("Expected 3 pairs, got %d", len(pairs))
	}

	if pairs[0].OriginalSentence != "The museum opened in 1901." || pairs[0].RevisedSentence != "The museum opened in 1902." {
		t.Errorf("Unexpected first pair: %+v", pairs[0])
	}

	if len(pairs[0].AfterEdits) != 1 || pairs[0].AfterEdits[0] != "1902" {
		t.Errorf("Expected after edit 1902, got %v", pairs[0].AfterEdits)
	}

	if pairs[0].OldRevID != 101 || pairs[0].NewRevID != 102 {
		t.Errorf("Expected revids 101 -> 102, got %d -> %d", pairs[0].OldRevID, pairs[0].NewRevID)
	}

	for _, path := range []string{reportPath, filepath.Join(base, "wikipedia", "metrics", "worker.prom")} {
		if !utils.FileExists(path) {
			t.Errorf("Expected %s to exist", path)
		}
	}
}
