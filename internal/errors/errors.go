package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SpecParse indicates a vendor ISA document could not be parsed
	SpecParse ErrorCode = "SPEC_PARSE"
	// MergeInvariant indicates instruction merging produced an inconsistent entry
	MergeInvariant ErrorCode = "MERGE_INVARIANT"
	// DataLoad indicates the snapshot could not be loaded or validated
	DataLoad ErrorCode = "DATA_LOAD"
	// ProtocolFraming indicates a malformed or oversized client message
	ProtocolFraming ErrorCode = "PROTOCOL_FRAMING"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AsmError represents a gpuasm error with code, message, and optional source path
type AsmError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Path    string      `json:"path,omitempty"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new AsmError
func New(code ErrorCode, message string, cause error) *AsmError {
	return &AsmError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// NewSpecParseError creates an error for an unusable vendor document.
// Parsing continues with the remaining files; the batch records this one.
func NewSpecParseError(path string, cause error) *AsmError {
	return &AsmError{
		Code:    SpecParse,
		Message: "failed to parse ISA document",
		Path:    path,
		cause:   cause,
	}
}

// NewMergeInvariantError creates an error for a merge consistency violation
func NewMergeInvariantError(name, message string) *AsmError {
	return &AsmError{
		Code:    MergeInvariant,
		Message: fmt.Sprintf("instruction %q: %s", name, message),
	}
}

// NewDataLoadError creates an error for a missing or invalid snapshot
func NewDataLoadError(path string, cause error) *AsmError {
	return &AsmError{
		Code:    DataLoad,
		Message: "failed to load instruction database",
		Path:    path,
		cause:   cause,
	}
}

// NewProtocolFramingError creates an error for an undecodable client message
func NewProtocolFramingError(message string, cause error) *AsmError {
	return &AsmError{
		Code:    ProtocolFraming,
		Message: message,
		cause:   cause,
	}
}

// NewInternalError creates an error for an unexpected failure
func NewInternalError(message string, cause error) *AsmError {
	return &AsmError{
		Code:    InternalError,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *AsmError) Error() string {
	switch {
	case e.Path != "" && e.cause != nil:
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Message, e.Path, e.cause)
	case e.Path != "":
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Path)
	case e.cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error
func (e *AsmError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AsmError) WithDetails(details interface{}) *AsmError {
	e.Details = details
	return e
}

// fatalCodes maps error codes to whether they abort the current operation.
// SpecParse is recoverable (skip the file), ProtocolFraming is recoverable
// (reject the message); the rest terminate the build or the server.
var fatalCodes = map[ErrorCode]bool{
	SpecParse:       false,
	MergeInvariant:  true,
	DataLoad:        true,
	ProtocolFraming: false,
	InternalError:   true,
}

// IsFatal reports whether err carries a code that should stop processing
func IsFatal(err error) bool {
	var ae *AsmError
	if stderrors.As(err, &ae) {
		return fatalCodes[ae.Code]
	}
	// Unrecognized errors are treated as fatal
	return err != nil
}

// CodeOf extracts the error code, or InternalError for foreign errors
func CodeOf(err error) ErrorCode {
	var ae *AsmError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}
