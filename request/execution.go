// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/sessionx/transient"
	"github.com/google/uuid"
)

// An Execution represents the state of a single logical request, that
// is, one Plan submitted to a session.
//
// The Execution is updated as the request progresses (for example when
// the transport reports a response, or when a retry is needed) and is
// ultimately returned as the result of the request.
//
// Interceptors and event handlers receive Execution values, but they
// should treat the exported field values as immutable: the copies
// handed to them are snapshots, and changes are not written back. Use
// SetValue and Value to carry arbitrary data between attempts.
type Execution struct {
	// ID uniquely identifies the logical request. It is assigned once,
	// at submission, and never changes.
	ID uuid.UUID

	// Plan specifies the HTTP request plan being executed. It is never
	// nil.
	Plan *Plan

	// Start is the time the request was submitted.
	Start time.Time

	// End is the time the request reached a terminal state. It
	// contains the zero value until then.
	End time.Time

	// Attempt is the zero-based number of the current attempt. It is
	// zero on the initial attempt, one on the first retry, and so on.
	//
	// Attempt counts adaptation failures as well as transport
	// attempts, since both enter the retry decision.
	Attempt int

	// AttemptTimeouts is the count of the number of times an attempt
	// deadline chosen by the session's timeout policy expired.
	AttemptTimeouts int

	// Request is the adapted HTTP request of the current attempt, or
	// of the last attempt once the request has ended. It is nil before
	// the first adaptation completes, and after an adaptation failure.
	Request *http.Request

	// Response is the HTTP response received in the current attempt.
	// It is nil until the transport reports a response.
	Response *http.Response

	// Err is the error that ended the most recent attempt, or the
	// terminal error once the request has ended. It is nil while an
	// attempt is underway.
	Err error

	// Body accumulates the response data chunks received during the
	// current attempt of a Data or Upload plan.
	Body []byte

	// Destination is the final location of the downloaded file for a
	// Download plan whose attempt completed the file placement. It is
	// empty otherwise.
	Destination string

	// Upload tracks bytes sent in the current attempt.
	Upload Progress

	// Download tracks bytes received in the current attempt of a
	// Download plan.
	Download Progress

	// Metrics holds the transport metrics gathered for the most recent
	// attempt, if the session collects metrics.
	Metrics *Metrics

	data context.Context
}

// StatusCode returns the status code of the HTTP response from the
// current attempt. If there is no HTTP response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the current attempt.
// If there is no HTTP response, the nil header is returned.
//
// A nil return value is always safe for read-only operations, since
// http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the request.
//
// If the request has not started, the duration is zero. If it has
// ended, the duration returned is End minus Start. Otherwise it is the
// current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the request has been submitted.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended indicates whether the request has reached a terminal state.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout indicates whether Err currently contains a non-nil value
// which indicates a timeout, either of an attempt or of the plan
// context.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Reset clears the per-attempt state so that nothing from a finished
// attempt leaks into the next one. Identity, timing, counters, and
// user values are kept.
func (e *Execution) Reset() {
	e.Request = nil
	e.Response = nil
	e.Err = nil
	e.Body = nil
	e.Destination = ""
	e.Upload = Progress{}
	e.Download = Progress{}
	e.Metrics = nil
}

// SetValue allows interceptors and event handlers to store arbitrary
// data in the execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue: it may not be nil, it must be comparable, and it
// should not be of a built-in type.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}

// CopyValues replaces the values stored in e with those stored in
// src. Sessions use it to keep values set on an execution snapshot.
func (e *Execution) CopyValues(src *Execution) {
	e.data = src.data
}

// A Progress counts the bytes transferred in one direction during an
// attempt.
type Progress struct {
	// Completed is the number of bytes transferred so far, including
	// any resumed offset.
	Completed int64
	// Total is the number of bytes expected, or -1 if unknown.
	Total int64
}

// Fraction returns Completed as a fraction of Total. It returns 0 when
// the total is unknown or zero.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

// Metrics describes the timing of one transport attempt, as gathered by
// the transport.
type Metrics struct {
	// Start and End bound the attempt.
	Start, End time.Time

	// DNS, Connect, and TLS are the durations of the connection setup
	// phases. They are zero when a pooled connection was reused.
	DNS, Connect, TLS time.Duration

	// FirstByte is the time from Start until the first response byte.
	FirstByte time.Duration

	// Reused is true if the attempt ran on a pooled connection.
	Reused bool

	// Redirects is the number of redirects followed.
	Redirects int

	// BytesSent and BytesReceived count body bytes.
	BytesSent, BytesReceived int64
}

// Duration returns End minus Start.
func (m *Metrics) Duration() time.Duration {
	return m.End.Sub(m.Start)
}
