package hostfuncs

import (
	"encoding/json"
	"fmt"
)

// ErrorResponse is the JSON answer a handler gives instead of failing the
// guest's exchange.
type ErrorResponse struct {
	// Error is a machine-readable error type identifier.
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ToJSON serializes the ErrorResponse.
func (e ErrorResponse) ToJSON() []byte {
	data, _ := json.Marshal(e)
	return data
}

// NewValidationError reports a malformed request.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: "VALIDATION_ERROR", Message: message, Code: 400}
}

// NewNotFoundError reports a channel with no handler.
func NewNotFoundError(channel uint32) ErrorResponse {
	return ErrorResponse{Error: "NOT_FOUND", Message: fmt.Sprintf("no handler for channel %d", channel), Code: 404}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: message, Code: 500}
}

// NewPanicError reports a recovered handler panic.
func NewPanicError(r any) ErrorResponse {
	msg := "panic recovered"
	switch v := r.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	}
	return NewInternalError("panic: " + msg)
}
