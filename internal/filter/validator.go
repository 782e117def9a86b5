package filter

import (
	"errors"
	"fmt"

	"wikiedits/internal/models"
)

// Validation errors.
var (
	ErrMissingPageID    = errors.New("missing page id")
	ErrMissingRevID     = errors.New("missing revision id")
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrMissingTitle     = errors.New("missing title")
	ErrDomainMismatch   = errors.New("domain mismatch")
)

// Validator checks raw revision records.
type Validator struct {
	domain models.Domain
}

// NewValidator creates a validator accepting records of domain.
func NewValidator(domain models.Domain) *Validator {
	return &Validator{domain: domain}
}

// Validate checks that a record carries everything the merge needs.
func (v *Validator) Validate(raw *models.RawRevision) error {
	if raw.PageID <= 0 {
		return ErrMissingPageID
	}

	if raw.RevID <= 0 {
		return fmt.Errorf("%w (page %d)", ErrMissingRevID, raw.PageID)
	}

	if raw.Timestamp.IsZero() {
		return fmt.Errorf("%w (revision %d)", ErrMissingTimestamp, raw.RevID)
	}

	if raw.Title == "" {
		return fmt.Errorf("%w (revision %d)", ErrMissingTitle, raw.RevID)
	}

	if raw.Domain != "" && raw.Domain != v.domain {
		return fmt.Errorf("%w: record is %s, expected %s", ErrDomainMismatch, raw.Domain, v.domain)
	}

	return nil
}
