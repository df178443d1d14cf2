package model

import (
	"errors"
	"fmt"
)

// Input errors. These fail fast before any retrieval work starts.
var (
	ErrEmptyInput      = errors.New("empty input text")
	ErrEmptyBackstory  = errors.New("empty backstory")
	ErrUnknownDocument = errors.New("unknown document")
)

// UnknownDocumentError is returned when a document was never indexed
type UnknownDocumentError struct {
	DocumentID string
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("unknown document %q: build an index first", e.DocumentID)
}

// Is lets errors.Is match ErrUnknownDocument
func (e *UnknownDocumentError) Is(target error) bool {
	return target == ErrUnknownDocument
}

// IsInputError reports whether err belongs to the input-error taxonomy
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrEmptyBackstory) ||
		errors.Is(err, ErrUnknownDocument)
}
