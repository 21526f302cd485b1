// Package errors provides structured error types for mcbrowse.
//
// Every failure the figure pipeline can report carries a machine-readable
// [Code] plus a [Detail] with the structured facts a caller needs to present
// a precise message: which identifiers were missing, which option was
// rejected and why, or how a dataset's columns differ from what a chart type
// expects.
//
// # Error Codes
//
//   - NOT_FOUND: the entity selector names identifiers the source lacks
//   - UNKNOWN_OPTION / INVALID_OPTION: veneer schema violations
//   - SCHEMA_MISMATCH: dataset columns do not fit the chosen chart type
//   - EMPTY_DATA: no usable rows reached rendering
//   - INVALID_INPUT, UNSUPPORTED, INTERNAL_ERROR: everything else
//
// # Stages
//
// Errors produced by collaborators (the storage reader, the chart library)
// are not rewritten. They are tagged with the stage that surfaced them using
// [WithStage], and remain visible to errors.Is and errors.As:
//
//	rows, err := src.Lookup("gene", "metacell", "fraction", id)
//	if err != nil {
//	    return errors.WithStage(errors.StageExtract, err)
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the figure pipeline.
const (
	ErrCodeNotFound       Code = "NOT_FOUND"
	ErrCodeUnknownOption  Code = "UNKNOWN_OPTION"
	ErrCodeInvalidOption  Code = "INVALID_OPTION"
	ErrCodeSchemaMismatch Code = "SCHEMA_MISMATCH"
	ErrCodeEmptyData      Code = "EMPTY_DATA"

	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"
	ErrCodeUnsupported  Code = "UNSUPPORTED"
	ErrCodeInternal     Code = "INTERNAL_ERROR"
)

// Detail holds the structured facts behind an error. Only the fields relevant
// to the error's code are set.
type Detail struct {
	Identifiers []string `json:"identifiers,omitempty"` // unknown entity identifiers (NOT_FOUND)
	Axis        string   `json:"axis,omitempty"`        // axis the identifiers were looked up on
	Option      string   `json:"option,omitempty"`      // offending option name
	Options     []string `json:"options,omitempty"`     // all unknown option names
	Constraint  string   `json:"constraint,omitempty"`  // violated constraint, e.g. "must be > 0"
	Missing     []string `json:"missing,omitempty"`     // required slots without a column
	Extra       []string `json:"extra,omitempty"`       // columns no slot accepted
	Expected    []string `json:"expected,omitempty"`    // schema the chart type expects
	Actual      []string `json:"actual,omitempty"`      // schema the dataset has
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Detail  Detail // Structured facts for callers
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// NotFound reports identifiers that do not exist on an axis.
func NotFound(axis string, ids []string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("unknown %s: %s", axis, strings.Join(quoteAll(ids), ", ")),
		Detail:  Detail{Axis: axis, Identifiers: append([]string(nil), ids...)},
	}
}

// UnknownOption reports option keys outside the recognized schema. The first
// key names the error; all of them are listed in the detail.
func UnknownOption(keys []string) *Error {
	return &Error{
		Code:    ErrCodeUnknownOption,
		Message: fmt.Sprintf("unknown option %q", keys[0]),
		Detail:  Detail{Option: keys[0], Options: append([]string(nil), keys...)},
	}
}

// InvalidOption reports a recognized option whose value violates a constraint.
func InvalidOption(option, constraint string) *Error {
	return &Error{
		Code:    ErrCodeInvalidOption,
		Message: fmt.Sprintf("option %q %s", option, constraint),
		Detail:  Detail{Option: option, Constraint: constraint},
	}
}

// SchemaMismatch reports a dataset whose columns do not fit a chart type.
func SchemaMismatch(chart string, missing, extra, expected, actual []string) *Error {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(quoteAll(extra), ", "))
	}
	return &Error{
		Code:    ErrCodeSchemaMismatch,
		Message: fmt.Sprintf("dataset does not fit chart %q: %s", chart, strings.Join(parts, "; ")),
		Detail: Detail{
			Missing:  missing,
			Extra:    extra,
			Expected: expected,
			Actual:   actual,
		},
	}
}

// EmptyData reports that no usable rows reached rendering.
func EmptyData(format string, args ...any) *Error {
	return New(ErrCodeEmptyData, format, args...)
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetDetail extracts the structured detail from an error, if available.
func GetDetail(err error) (Detail, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail, true
	}
	return Detail{}, false
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func quoteAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}
