package pipeline

import (
	"github.com/taskgate/taskgate/internal/validation"
)

// Envelope is the uniform response body for every endpoint, success and
// failure alike.
type Envelope struct {
	// Success reports whether the request was served.
	Success bool `json:"success"`

	// Message is a short human-readable summary.
	Message string `json:"message"`

	// Data is the endpoint-specific payload, omitted when empty.
	Data interface{} `json:"data,omitempty"`

	// Error describes the failure, omitted on success.
	Error string `json:"error,omitempty"`

	// Errors carries the ordered field errors for validation failures.
	Errors []validation.FieldError `json:"errors,omitempty"`

	// Count is the total matching records for list responses, before
	// pagination.
	Count *int `json:"count,omitempty"`
}

// OK builds a success envelope.
func OK(message string, data interface{}) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

// OKCount builds a success envelope for list responses carrying the
// total matching count.
func OKCount(message string, data interface{}, count int) Envelope {
	return Envelope{Success: true, Message: message, Data: data, Count: &count}
}

// Envelope converts the failure to its wire shape. In development mode
// upstream causes are included verbatim; otherwise they are replaced by
// a generic message so internal details never leak.
func (f *Failure) Envelope(development bool) Envelope {
	e := Envelope{
		Success: false,
		Message: f.Message,
		Error:   f.Message,
	}

	if f.Kind == KindValidation && !f.Fields.Empty() {
		e.Errors = f.Fields
	}

	if f.Kind == KindUpstream {
		if development && f.Err != nil {
			e.Error = f.Err.Error()
		} else {
			e.Message = "Internal server error"
			e.Error = "Internal server error"
		}
	}

	return e
}
