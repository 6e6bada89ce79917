package errors

import (
	"fmt"
	"net/http"
)

// Request error codes reported in the error_code extension.
const (
	CodeInvalidBody     = "INVALID_BODY"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// RequestError is a failure in the HTTP envelope itself, before the body
// reaches a service: oversized or undecodable payloads.
type RequestError struct {
	Status  int
	Code    string
	Message string
	Limits  map[string]int64
}

func (e *RequestError) Error() string {
	return e.Message
}

// ErrMalformedBody is returned when the body is not valid JSON.
var ErrMalformedBody = &RequestError{
	Status:  http.StatusBadRequest,
	Code:    CodeInvalidBody,
	Message: "Request body contains invalid JSON",
}

// BodyTooLarge reports a body of size bytes against the limit. A negative
// size means the length was only discovered while reading.
func BodyTooLarge(limit, size int64) *RequestError {
	e := &RequestError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    CodePayloadTooLarge,
		Message: fmt.Sprintf("Request body exceeds %d bytes", limit),
		Limits:  map[string]int64{"max_size": limit},
	}
	if size >= 0 {
		e.Limits["size"] = size
	}
	return e
}

// UndecodableBody wraps a JSON decode or read failure.
func UndecodableBody(err error) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidBody,
		Message: fmt.Sprintf("Request body could not be decoded: %v", err),
	}
}
