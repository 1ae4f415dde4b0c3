// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request holds the value types shared by a session and its
collaborators: Plan, Execution, and the errors a request can end with.

A Plan describes one logical HTTP request. It mirrors http.Request with
the server-side fields removed and a pre-buffered body, plus a Kind
selecting the transport task shape (Data, Upload, or Download). Every
attempt to carry out the plan starts from a fresh http.Request built by
Plan.ToRequest:

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	e, err := session.Do(p)

The plan context bounds the whole request, across all its attempts and
retry waits. It is independent of the per-attempt deadlines chosen by
the session's timeout.Policy: an attempt that runs out of time may be
retried, while a request whose plan context ends is cancelled.

An Execution records the progress of a request: the current attempt and
its http.Request and response, the accumulated body or the placed
download, upload and download progress, transport metrics, and the
error of the last attempt. Interceptors, timeout policies, and event
handlers all receive an Execution; a session hands out copies, so
callers never share one with the request goroutine.

Failures other than cancellation are *Error values whose ErrorKind says
which stage failed. Cancellation is reported as a *CancelledError, which
matches ErrCancelled.
*/
package request
