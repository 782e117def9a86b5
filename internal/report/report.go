// Package report renders a markdown summary of a pipeline run.
package report

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"wikiedits/internal/models"
	"wikiedits/pkg/utils"
)

const sampleCellWidth = 60

// Stage is the outcome of one pipeline stage.
type Stage struct {
	// Stats is a struct of integer counters, one row per field.
	Stats    any
	Name     string
	Err      string
	Duration time.Duration
}

// Report collects what a run did.
type Report struct {
	Started      time.Time
	RunID        string
	Domain       models.Domain
	MainCategory string
	Stages       []Stage
	Samples      []models.SentencePair
}

// AddStage records a stage outcome.
func (r *Report) AddStage(name string, stats any, d time.Duration, err error) {
	s := Stage{Name: name, Stats: stats, Duration: d}
	if err != nil {
		s.Err = err.Error()
	}

	r.Stages = append(r.Stages, s)
}

// Render returns the report as markdown.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run report: %s / %s\n\n", r.Domain, r.MainCategory)
	fmt.Fprintf(&b, "- run id: `%s`\n", r.RunID)

	if !r.Started.IsZero() {
		fmt.Fprintf(&b, "- started: %s\n", r.Started.UTC().Format(time.RFC3339))
	}

	b.WriteString("\n## Stages\n\n")
	b.WriteString("| Stage | Status | Duration |\n| --- | --- | --- |\n")

	for _, s := range r.Stages {
		status := "ok"
		if s.Err != "" {
			status = "failed: " + escapeCell(s.Err)
		}

		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Name, status, s.Duration.Round(time.Millisecond))
	}

	for _, s := range r.Stages {
		rows := counterRows(s.Stats)
		if len(rows) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n## %s\n\n| Counter | Value |\n| --- | --- |\n", s.Name)

		for _, row := range rows {
			fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n## Sample pairs\n\n")
		b.WriteString("| Doc | Depth | Type | Before | After |\n| --- | --- | --- | --- | --- |\n")

		for _, p := range r.Samples {
			fmt.Fprintf(&b, "| %s | %d | %s | %s | %s |\n",
				p.DocID, p.RevisionDepth, p.EditType, cell(p.OriginalSentence), cell(p.RevisedSentence))
		}
	}

	return AlignTables(b.String())
}

// WriteFile atomically writes the rendered report.
func (r *Report) WriteFile(path string) error {
	return utils.WriteFileAtomic(path, []byte(r.Render()))
}

// Sample picks up to n edit pairs spread evenly over pairs.
func Sample(pairs []models.SentencePair, n int) []models.SentencePair {
	var edits []models.SentencePair

	for _, p := range pairs {
		if p.IsEdit() {
			edits = append(edits, p)
		}
	}

	if n <= 0 || len(edits) <= n {
		return edits
	}

	out := make([]models.SentencePair, 0, n)
	for i := range n {
		out = append(out, edits[i*len(edits)/n])
	}

	return out
}

func cell(s string) string {
	return escapeCell(utils.NewStringHelper().TruncateString(s, sampleCellWidth))
}

// counterRows lists the integer fields of a stats struct.
func counterRows(stats any) [][2]string {
	v := reflect.ValueOf(stats)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}

		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil
	}

	var rows [][2]string

	for i := range v.NumField() {
		f := v.Type().Field(i)
		if !f.IsExported() {
			continue
		}

		switch v.Field(i).Kind() {
		case reflect.Int, reflect.Int64, reflect.Int32:
			rows = append(rows, [2]string{label(f.Name), fmt.Sprint(v.Field(i).Int())})
		}
	}

	return rows
}

// label turns a Go field name into lower-case words: "PagesExcluded" -> "pages excluded".
func label(name string) string {
	var b strings.Builder

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || acronymEnd(runes, i)) {
			b.WriteByte(' ')
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// acronymEnd reports whether runes[i] starts a word after an acronym, as the
// S in "HTTPStatus". A plural "s" does not start a word ("RevIDs").
func acronymEnd(runes []rune, i int) bool {
	if !unicode.IsUpper(runes[i-1]) || i+1 >= len(runes) || !unicode.IsLower(runes[i+1]) {
		return false
	}

	return !(i+2 == len(runes) && runes[i+1] == 's')
}
