package documents

import (
	"errors"
	"strings"

	"signflow-backend/internal/placeholders"
)

var (
	// ErrNotFound indicates a document was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotEditable indicates the document has left the draft state.
	ErrNotEditable = errors.New("document is not editable")

	// ErrAuditRewritten indicates an update tried to drop or alter recorded audit entries.
	ErrAuditRewritten = errors.New("audit trail is append-only")
)

// InvalidValuesError lists placeholder values that fail their format.
type InvalidValuesError struct {
	Errors []*placeholders.ValueError
}

func (e *InvalidValuesError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		parts = append(parts, ve.Error())
	}
	return "invalid placeholder values: " + strings.Join(parts, "; ")
}

func (e *InvalidValuesError) Unwrap() error { return ErrInvalidInput }
