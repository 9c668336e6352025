package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeTransport is a connection or timeout failure issuing a request
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeHTTPStatus is a non-2xx response from the listing or a media host
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeEnvelopeParse is a listing page whose body is not a valid envelope
	ErrorTypeEnvelopeParse ErrorType = "envelope_parse"
	// ErrorTypeRecordShape is a single listing entry that does not map to a saved record
	ErrorTypeRecordShape ErrorType = "record_shape"
	// ErrorTypeStorage is a failure creating a directory or writing a file
	ErrorTypeStorage ErrorType = "storage"
)

// ErrListingExhausted is returned alongside partial results when the listing
// ran out of pages before the requested number of items was fetched and the
// fetcher is configured to treat that as an error.
var ErrListingExhausted = stderrors.New("saved listing exhausted before download limit was reached")

// Error represents a typed failure with optional HTTP context
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	msg += ": " + e.Message
	if e.URL != "" {
		msg += " [" + e.URL + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a failure to get any response from url
func NewTransportError(url string, err error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Message: "request failed",
		URL:     url,
		Err:     err,
	}
}

// NewStatusError reports a non-success HTTP status for url
func NewStatusError(url string, status int) *Error {
	return &Error{
		Type:    ErrorTypeHTTPStatus,
		Message: fmt.Sprintf("unexpected status %d", status),
		Code:    status,
		URL:     url,
	}
}

// NewParseError reports a listing body that could not be decoded
func NewParseError(url string, err error) *Error {
	return &Error{
		Type:    ErrorTypeEnvelopeParse,
		Message: "failed to parse listing envelope",
		URL:     url,
		Err:     err,
	}
}

// NewRecordShapeError reports an entry that could not become a saved record
func NewRecordShapeError(id, reason string, err error) *Error {
	msg := reason
	if id != "" {
		msg = fmt.Sprintf("entry %s: %s", id, reason)
	}
	return &Error{
		Type:    ErrorTypeRecordShape,
		Message: msg,
		Err:     err,
	}
}

// NewStorageError wraps a filesystem failure for path
func NewStorageError(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStorage,
		Message: "filesystem operation failed on " + path,
		Err:     err,
	}
}

// IsType reports whether err is, or wraps, an *Error of the given type
func IsType(err error, errorType ErrorType) bool {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type == errorType
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none
func StatusCode(err error) int {
	var typed *Error
	if stderrors.As(err, &typed) && typed.Type == ErrorTypeHTTPStatus {
		return typed.Code
	}
	return 0
}
