// Package validator checks the sentence pair dataset and diff artifacts.
package validator

import (
	"fmt"
	"io"
	"strings"

	"wikiedits/internal/models"
	"wikiedits/pkg/metadata"
	"wikiedits/pkg/utils"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Line    int
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	ByEditType     map[models.EditType]int
	TotalRecords   int
	ValidRecords   int
	InvalidRecords int
	WithoutEdits   int
}

// DatasetValidator validates sentence pair records.
type DatasetValidator struct {
	// MaxSentenceWords flags suspiciously long sentences; zero disables the check.
	MaxSentenceWords int
	strings          *utils.StringHelper
}

// NewDatasetValidator creates a validator.
func NewDatasetValidator(maxSentenceWords int) *DatasetValidator {
	return &DatasetValidator{MaxSentenceWords: maxSentenceWords, strings: utils.NewStringHelper()}
}

// ValidateFile validates a dataset JSONL file.
func (v *DatasetValidator) ValidateFile(path string) (*ValidationResult, error) {
	pairs, err := utils.ReadJSONL[models.SentencePair](path, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	return v.Validate(pairs), nil
}

// Validate checks every record; line numbers are 1-based record positions.
func (v *DatasetValidator) Validate(pairs []models.SentencePair) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Stats:   ValidationStats{ByEditType: map[models.EditType]int{}},
	}

	for i := range pairs {
		line := i + 1
		result.Stats.TotalRecords++

		errs := v.validateRecord(&pairs[i], line)
		if len(errs) > 0 {
			result.IsValid = false
			result.Stats.InvalidRecords++
			result.Errors = append(result.Errors, errs...)

			continue
		}

		result.Stats.ValidRecords++
		result.Stats.ByEditType[pairs[i].EditType]++

		if pairs[i].IsEdit() && len(pairs[i].BeforeEdits)+len(pairs[i].AfterEdits) == 0 {
			result.Stats.WithoutEdits++
		}

		if v.MaxSentenceWords > 0 && v.longestSentence(pairs[i]) > v.MaxSentenceWords {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("line %d: sentence longer than %d words (check sentence splitting)", line, v.MaxSentenceWords))
		}
	}

	if result.Stats.TotalRecords == 0 {
		result.Warnings = append(result.Warnings, "dataset is empty")
	}

	return result
}

func (v *DatasetValidator) validateRecord(p *models.SentencePair, line int) []ValidationError {
	var errs []ValidationError

	fail := func(field, value, msg string) {
		errs = append(errs, ValidationError{Line: line, Field: field, Value: truncate(value, 50), Message: msg})
	}

	if p.DocID == "" {
		fail("doc_id", "", "doc_id is empty")
	}

	if p.RevisionDepth < 1 {
		fail("revision_depth", fmt.Sprint(p.RevisionDepth), "revision_depth must be at least 1")
	}

	if p.OldRevID != 0 && p.NewRevID != 0 && p.OldRevID == p.NewRevID {
		fail("new_revid", fmt.Sprint(p.NewRevID), "old and new revision are the same")
	}

	before, after := p.OriginalSentence != "", p.RevisedSentence != ""

	switch p.EditType {
	case models.EditAdd:
		if before || !after {
			fail("edit_type", string(p.EditType), "addition needs an empty before_sentence and a non-empty after_sentence")
		}
	case models.EditDelete:
		if !before || after {
			fail("edit_type", string(p.EditType), "deletion needs a non-empty before_sentence and an empty after_sentence")
		}
	case models.EditReplace:
		if !before || !after {
			fail("edit_type", string(p.EditType), "replacement needs both sentences")
		} else if p.OriginalSentence == p.RevisedSentence {
			fail("after_sentence", p.RevisedSentence, "replacement does not change the sentence")
		}
	case models.EditUnchanged:
		if p.OriginalSentence != p.RevisedSentence {
			fail("edit_type", string(p.EditType), "unchanged pair with different sentences")
		}
	default:
		fail("edit_type", string(p.EditType), "unknown edit type")
	}

	for _, e := range p.BeforeEdits {
		if !strings.Contains(p.OriginalSentence, e) {
			fail("before_edits", e, "edit span not found in before_sentence")
		}
	}

	for _, e := range p.AfterEdits {
		if !strings.Contains(p.RevisedSentence, e) {
			fail("after_edits", e, "edit span not found in after_sentence")
		}
	}

	return errs
}

// ValidateIntegrity checks an artifact against its metadata block.
func ValidateIntegrity(content string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	valid, err := metadata.Verify(content)
	if !valid {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("integrity check failed: %v", err),
		})
	}

	return result
}

// truncate truncates string to max length.
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}

	return s
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Total: %d | Valid: %d | Invalid: %d | Warnings: %d",
		status,
		r.Stats.TotalRecords,
		r.Stats.ValidRecords,
		r.Stats.InvalidRecords,
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "❌ Validation Errors:")

	for _, err := range r.Errors {
		if err.Line == 0 {
			fmt.Fprintf(w, "  %s\n", err.Message)
			continue
		}

		fmt.Fprintf(w, "  Line %d", err.Line)

		if err.Field != "" {
			fmt.Fprintf(w, " [%s]", err.Field)
		}

		fmt.Fprintf(w, ": %s\n", err.Message)

		if err.Value != "" {
			fmt.Fprintf(w, "    Found: %q\n", err.Value)
		}
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "⚠️  Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}

func (v *DatasetValidator) longestSentence(p models.SentencePair) int {
	return max(v.strings.WordCount(p.OriginalSentence), v.strings.WordCount(p.RevisedSentence))
}
