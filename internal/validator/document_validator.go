package validator

import (
	"errors"
	"fmt"
	"math"

	apperrors "github.com/SAP-F-2025/answersheet-service/internal/errors"
	"github.com/SAP-F-2025/answersheet-service/internal/models"
	"github.com/SAP-F-2025/answersheet-service/internal/schema"
)

// DocumentValidator checks the rules of an answer sheet that struct tags cannot express
type DocumentValidator struct{}

// NewDocumentValidator creates a new document validator
func NewDocumentValidator() *DocumentValidator {
	return &DocumentValidator{}
}

// Validate returns every rule the document breaks. Zero ids mark new entities
// and are exempt from the uniqueness check.
func (v *DocumentValidator) Validate(doc models.Document) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors
	modules := map[string]bool{}
	rows := map[string]bool{}

	for i, m := range doc {
		field := fmt.Sprintf("modules[%d]", i)
		if !m.ID.IsZero() {
			if modules[m.ID.String()] {
				errs = append(errs, *apperrors.NewValidationErrorWithRule(field+".id", "duplicate module id", "duplicate_id", m.ID.String()))
			}
			modules[m.ID.String()] = true
		}
		if len(m.Rows) == 0 {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(field+".rows", "a module needs at least one row", "module_rows", nil))
		}
		if err := v.ValidateOptionCount(m.Kind, m.OptionCount); err != nil {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(field+".option_count", err.Error(), "option_count", m.OptionCount))
		}

		for j, r := range m.Rows {
			rowField := fmt.Sprintf("%s.rows[%d]", field, j)
			if !r.ID.IsZero() {
				if rows[r.ID.String()] {
					errs = append(errs, *apperrors.NewValidationErrorWithRule(rowField+".id", "duplicate row id", "duplicate_id", r.ID.String()))
				}
				rows[r.ID.String()] = true
			}
			seen := map[string]bool{}
			for _, c := range r.Cells {
				if seen[c.Column] {
					errs = append(errs, *apperrors.NewValidationErrorWithRule(rowField+".cells", "column "+c.Column+" appears twice", "duplicate_cell", c.Column))
				}
				seen[c.Column] = true
			}
		}
	}
	return errs
}

// ErrOptionLimit marks an option count above what the answer kind can offer.
var ErrOptionLimit = errors.New("option limit exceeded")

// ValidateOptionCount checks the number of candidates a module of kind may offer. Counts above
// the kind's limit wrap ErrOptionLimit.
func (v *DocumentValidator) ValidateOptionCount(kind models.AnswerKind, optionCount int) error {
	if optionCount < 1 {
		return fmt.Errorf("option count must be at least 1")
	}
	if limit := MaxOptionCount(kind); optionCount > limit {
		return fmt.Errorf("%w: %s modules offer at most %d options", ErrOptionLimit, kind, limit)
	}
	return nil
}

// MaxOptionCount is the largest option count a module of kind may have. Only single choice
// is bounded, by the letters of the select column.
func MaxOptionCount(kind models.AnswerKind) int {
	if kind == models.SingleChoice {
		return len(schema.Letters)
	}
	return math.MaxInt32
}
