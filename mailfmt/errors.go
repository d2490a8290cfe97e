package mailfmt

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every ParseError
	ErrParse = errors.New("message could not be parsed")
	// ErrValidation is matched by every ValidationError
	ErrValidation = errors.New("invalid compose request")
	// ErrAttachmentNotFound is returned when no attachment has the requested index
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// ParseError reports raw bytes that are not a readable mail message
type ParseError struct {
	UID string
	Err error
}

func (e *ParseError) Error() string {
	if e.UID == "" {
		return fmt.Sprintf("parse message: %v", e.Err)
	}
	return fmt.Sprintf("parse message %s: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ValidationError reports a missing or invalid compose field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
