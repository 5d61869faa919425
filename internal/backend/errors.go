package backend

import "fmt"

// TransportError reports a network or HTTP-level failure: the request never
// produced a well-formed application response. Transport failures are the
// only retryable class.
type TransportError struct {
	// Op names the operation that failed (e.g. "start_program").
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedError reports a response that arrived but could not be decoded
// into the expected shape. Malformed responses are never retried; the caller
// keeps its previous state.
type MalformedError struct {
	Op  string
	Err error
}

func (e *MalformedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: malformed response", e.Op)
	}
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// RejectionError reports a well-formed response with success=false: the
// backend understood the command and refused it. Rejections carry the
// server-supplied message and are never retried.
type RejectionError struct {
	Op      string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by backend", e.Op)
	}
	return fmt.Sprintf("%s: rejected by backend: %s", e.Op, e.Message)
}
