// Package validation checks operation input shapes and produces ordered
// field error lists. Validators collect every violation for body
// checks; identifier and route-shape checks short-circuit on the first
// error. Results are returned, never panicked, so the pipeline decides
// how failures become responses.
package validation

import (
	"fmt"
	"strings"
)

// FieldError is one validation violation tied to a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorList is an ordered list of field errors. It is immutable once
// returned by a validator.
type ErrorList []FieldError

// Empty returns true when no violations were collected.
func (l ErrorList) Empty() bool {
	return len(l) == 0
}

// Fields returns the offending field names in order.
func (l ErrorList) Fields() []string {
	fields := make([]string, 0, len(l))
	for _, e := range l {
		fields = append(fields, e.Field)
	}
	return fields
}

// Error implements the error interface.
func (l ErrorList) Error() string {
	if len(l) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(l))
	for _, e := range l {
		messages = append(messages, e.Error())
	}
	return strings.Join(messages, "; ")
}

// add appends a violation and returns the extended list.
func (l ErrorList) add(field, message string) ErrorList {
	return append(l, FieldError{Field: field, Message: message})
}
