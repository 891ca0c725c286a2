package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound     = errors.New("listing not found")
	ErrInvalidInput = errors.New("invalid listing input")
	ErrUpload       = errors.New("image upload failed")
)

// MissingFieldsError lists required attributes absent from a request.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Is(target error) bool { return target == ErrInvalidInput }
