// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"strings"
)

// An ErrorKind classifies the failure of an attempt or of a whole
// request.
type ErrorKind int

const (
	// KindAdaptationFailed indicates that an adapter in the interceptor
	// chain failed, so no transport task was created for the attempt.
	KindAdaptationFailed ErrorKind = iota + 1
	// KindTrustEvaluationFailed indicates that the server trust
	// evaluator rejected the server's certificate chain.
	KindTrustEvaluationFailed
	// KindTransportFailed indicates that the transport completed the
	// attempt with an error.
	KindTransportFailed
	// KindFilePlacementFailed indicates that a downloaded file could
	// not be moved from its temporary location to its destination.
	KindFilePlacementFailed
	// KindConsistencyViolation indicates an internal bookkeeping fault,
	// such as a duplicate completion signal. Requests that fail with it
	// are never retried.
	KindConsistencyViolation
	// KindRetryVetoed indicates that a retrier stopped retrying and
	// substituted its own error.
	KindRetryVetoed
	// KindValidationFailed indicates that the response was received
	// but rejected by the request's validator.
	KindValidationFailed
)

var errorKindNames = map[ErrorKind]string{
	KindAdaptationFailed:      "adaptation failed",
	KindTrustEvaluationFailed: "trust evaluation failed",
	KindTransportFailed:       "transport failed",
	KindFilePlacementFailed:   "file placement failed",
	KindConsistencyViolation:  "consistency violation",
	KindRetryVetoed:           "retry vetoed",
	KindValidationFailed:      "validation failed",
}

// String returns a short description of the kind.
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// An Error is the error type of every failure produced by a session
// other than cancellation. Err holds the underlying cause.
//
// Source and Destination are only set for KindFilePlacementFailed.
type Error struct {
	Kind        ErrorKind
	Err         error
	Source      string
	Destination string
}

// Error returns a description of the failure and its cause.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("sessionx: ")
	b.WriteString(e.Kind.String())
	if e.Kind == KindFilePlacementFailed {
		fmt.Fprintf(&b, " (%s -> %s)", e.Source, e.Destination)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &Error{Kind: KindTransportFailed}) matches any
// transport failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or zero
// if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ErrCancelled matches every cancellation error via errors.Is.
var ErrCancelled = errors.New("sessionx: request cancelled")

// A CancelledError is the terminal error of a request that was
// cancelled, either explicitly, by its plan context, or by session
// invalidation. Cause is nil for explicit cancellation.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	if e.Cause == nil {
		return ErrCancelled.Error()
	}
	return ErrCancelled.Error() + ": " + e.Cause.Error()
}

// Unwrap returns the cause of the cancellation.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCancelled.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}
