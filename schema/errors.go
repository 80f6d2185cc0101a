package schema

import (
	"fmt"
	"strings"
)

// ValidationError is one failed constraint, located by the JSON Pointer of
// the value that broke it. The root is "".
type ValidationError struct {
	Path    string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

func failure(path string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Message: fmt.Sprintf(format, args...), Value: value}
}

// NewTypeError is returned when a value has the wrong JSON type.
func NewTypeError(path string, expected string, actual any) *ValidationError {
	return failure(path, actual, "expected %s, got %s", expected, typeName(actual))
}

// NewEnumError is returned when a value is outside an enum.
func NewEnumError(path string, value any, allowed []any) *ValidationError {
	return failure(path, value, "value %v is not one of allowed values: %v", value, allowed)
}

// NewConstError is returned when a value differs from a const.
func NewConstError(path string, value, want any) *ValidationError {
	return failure(path, value, "value %v must be %v", value, want)
}

// NewPatternError is returned when a string does not match its pattern.
func NewPatternError(path string, value, pattern string) *ValidationError {
	return failure(path, value, "value %q does not match pattern: %s", value, pattern)
}

// NewRequiredError is returned for a missing required property. path names
// the property itself.
func NewRequiredError(path string) *ValidationError {
	return failure(path, nil, "required field is missing")
}

// NewUnknownPropertyError is returned for a property a closed object does
// not declare.
func NewUnknownPropertyError(path string) *ValidationError {
	return failure(path, nil, "unknown property")
}

// ValidationErrors is everything a Validator found wrong with one document.
// The zero value is empty and ready to use.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Add records a failure at path.
func (e *ValidationErrors) Add(path, message string) {
	e.AddError(&ValidationError{Path: path, Message: message})
}

func (e *ValidationErrors) AddError(err *ValidationError) {
	e.Errors = append(e.Errors, err)
}

// Merge appends the failures of other. other may be nil.
func (e *ValidationErrors) Merge(other *ValidationErrors) {
	if other != nil {
		e.Errors = append(e.Errors, other.Errors...)
	}
}

func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationErrors) Len() int {
	return len(e.Errors)
}

// AsError returns e, or nil when nothing was recorded.
func (e *ValidationErrors) AsError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// ErrorsForPath returns the failures located exactly at path.
func (e *ValidationErrors) ErrorsForPath(path string) []*ValidationError {
	return e.filter(func(p string) bool { return p == path })
}

// ErrorsUnderPath returns the failures at path or anywhere below it. "/a"
// covers "/a/b" but not "/ab".
func (e *ValidationErrors) ErrorsUnderPath(path string) []*ValidationError {
	prefix := path + "/"
	return e.filter(func(p string) bool { return p == path || strings.HasPrefix(p, prefix) })
}

func (e *ValidationErrors) filter(keep func(path string) bool) []*ValidationError {
	var out []*ValidationError
	for _, err := range e.Errors {
		if keep(err.Path) {
			out = append(out, err)
		}
	}
	return out
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return TypeNameNull
	case string:
		return TypeNameString
	case bool:
		return TypeNameBoolean
	case map[string]any:
		return TypeNameObject
	case []any:
		return TypeNameArray
	}
	switch {
	case isInteger(v):
		return TypeNameInteger
	case isNumber(v):
		return TypeNameNumber
	}
	return fmt.Sprintf("%T", v)
}
