// Package errors provides coded errors for loggen. The first digit of a
// code names its category; callers branch on codes, never on messages.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies an error for programmatic handling.
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound     Code = "E101"
	CodeInvalidScenario  Code = "E102"
	CodeUnknownScenario  Code = "E103"
	CodeInvalidFormat    Code = "E104"
	CodeInvalidColumn    Code = "E105"
	CodeInvalidTimestamp Code = "E106"

	// Validation errors (2xx). Any of these rejects a run before generation starts.
	CodeInvalidDateRange Code = "E201"
	CodeWindowTooShort   Code = "E202"
	CodeEmptyCatalog     Code = "E203"
	CodeEmptyPool        Code = "E204"
	CodeInvalidGap       Code = "E205"
	CodeInvalidDaypart   Code = "E206"
	CodeInvalidCaseCount Code = "E207"
	CodeInvalidPolicy    Code = "E208"

	// Output errors (3xx)
	CodeWriteFailed  Code = "E301"
	CodeUploadFailed Code = "E302"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeTelemetry       Code = "E402"

	CodeUnknown Code = "E999"
)

// Category names the class of a code.
func (c Code) Category() string {
	switch {
	case strings.HasPrefix(string(c), "E1"):
		return "input"
	case strings.HasPrefix(string(c), "E2"):
		return "validation"
	case strings.HasPrefix(string(c), "E3"):
		return "output"
	case strings.HasPrefix(string(c), "E4"):
		return "system"
	default:
		return "unknown"
	}
}

// Field is one key/value detail attached to an error.
type Field struct {
	Key   string
	Value interface{}
}

// Error is the error type returned by loggen packages.
type Error struct {
	Code    Code
	Message string
	Cause   error

	// Fields are rendered in the order they were added.
	Fields []Field
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Fields) > 0 {
		sb.WriteString(" (")
		for i, f := range e.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", f.Key, f.Value)
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext attaches a detail. A repeated key replaces the earlier value.
func (e *Error) WithContext(key string, value interface{}) *Error {
	for i := range e.Fields {
		if e.Fields[i].Key == key {
			e.Fields[i].Value = value
			return e
		}
	}
	e.Fields = append(e.Fields, Field{Key: key, Value: value})
	return e
}

// Get returns the value of a detail.
func (e *Error) Get(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// New creates an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err. It returns nil when err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// FileNotFound reports a missing input file.
func FileNotFound(path string) *Error {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// InvalidScenario reports a scenario that could not be decoded.
func InvalidScenario(source string, err error) *Error {
	return Wrap(err, CodeInvalidScenario, "invalid scenario").WithContext("source", source)
}

// Canceled wraps a context error raised during operation.
func Canceled(operation string, err error) *Error {
	return Wrap(err, CodeContextCanceled, "operation canceled").WithContext("operation", operation)
}

// IsCode reports whether any error in err's chain has code.
func IsCode(err error, code Code) bool {
	var lgErr *Error
	if errors.As(err, &lgErr) {
		return lgErr.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain.
func GetCode(err error) Code {
	var lgErr *Error
	if errors.As(err, &lgErr) {
		return lgErr.Code
	}
	return CodeUnknown
}

// IsValidation reports whether err rejected a run before generation.
func IsValidation(err error) bool {
	return GetCode(err).Category() == "validation"
}

// MultiError collects independent failures, e.g. one per bad workbook row.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:", len(m.Errors))
	for i, err := range m.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err)
	}
	return sb.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add records err if it is not nil.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors reports whether anything was collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil, the single error, or the MultiError itself.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
