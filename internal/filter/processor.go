// Package filter cleans crawled revisions and merges them into one
// time-ordered, de-duplicated revision list per article.
package filter

import (
	"fmt"

	"wikiedits/internal/models"
)

// Processor validates and cleans raw revisions.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor(validator *Validator, transformer *Transformer) *Processor {
	return &Processor{
		validator:   validator,
		transformer: transformer,
	}
}

// Process turns a raw revision into a cleaned merged revision.
func (p *Processor) Process(raw *models.RawRevision) (models.MergedRevision, error) {
	// 1. Validate the input data
	if err := p.validator.Validate(raw); err != nil {
		return models.MergedRevision{}, fmt.Errorf("validation failed: %w", err)
	}

	// 2. Transform the data
	return p.transformer.Transform(raw), nil
}
