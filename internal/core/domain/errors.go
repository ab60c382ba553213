package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrTemplateNotFound     = fmt.Errorf("template %w", ErrNotFound)
	ErrDocumentNotFound     = fmt.Errorf("document %w", ErrNotFound)
	ErrDocumentTypeNotFound = fmt.Errorf("document type %w", ErrNotFound)
	ErrLocationNotFound     = fmt.Errorf("location %w", ErrNotFound)
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
