package wirepolicy

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to classify failures.
var (
	// ErrFormat indicates the document does not have the shape the reader expects.
	ErrFormat = errors.New("malformed document")

	// ErrInstantiation indicates no instance of the target type could be produced.
	ErrInstantiation = errors.New("cannot instantiate")

	// ErrModel indicates a struct type carries invalid member metadata.
	ErrModel = errors.New("invalid member model")
)

// FormatError reports a structural problem in the input document.
type FormatError struct {
	Path   string // JSON Pointer of the offending location ("/" for the root).
	Offset int64  // Byte offset in the input; -1 when unknown.
	Msg    string
	Cause  error // Optional underlying error, such as io.ErrUnexpectedEOF.
}

func (e *FormatError) Error() string {
	s := fmt.Sprintf("%s at %s: %s", ErrFormat.Error(), e.Path, e.Msg)
	if e.Offset >= 0 {
		s += fmt.Sprintf(" (offset %d)", e.Offset)
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *FormatError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrFormat, e.Cause}
	}
	return []error{ErrFormat}
}

// InstantiationError reports that the reader could not create a target instance.
type InstantiationError struct {
	Type   string
	Reason string
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrInstantiation.Error(), e.Type, e.Reason)
}

func (e *InstantiationError) Unwrap() error { return ErrInstantiation }

// ModelError reports invalid member metadata on a struct type.
type ModelError struct {
	Type   string
	Field  string // Empty when the problem concerns the whole type.
	Reason string
}

func (e *ModelError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s.%s: %s", ErrModel.Error(), e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", ErrModel.Error(), e.Type, e.Reason)
}

func (e *ModelError) Unwrap() error { return ErrModel }

func formatErr(path string, offset int64, msg string, cause error) error {
	return &FormatError{Path: normalizePath(path), Offset: offset, Msg: msg, Cause: cause}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
