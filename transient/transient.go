// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// A Category is the transience category of an error, as reported by
// Categorize.
//
// Not means a retry after the error is very unlikely to succeed. Every
// other category means a retry has some prospect of success.
type Category int

const (
	// Not indicates any non-transient error, including nil and
	// cancellation.
	Not Category = iota
	// Timeout indicates a client-side timeout: the error or one of its
	// wrapped causes has a Timeout method that reports true. Attempt
	// deadlines (context.DeadlineExceeded) fall here.
	Timeout
	// ConnRefused indicates the remote host refused the connection
	// (ECONNREFUSED). A service that is restarting briefly stops
	// listening, so refusal is often temporary.
	ConnRefused
	// ConnReset indicates the peer reset an established connection
	// (ECONNRESET) or aborted it (ECONNABORTED).
	ConnReset
	// UnexpectedEOF indicates the connection closed before a complete
	// response arrived, typically because the server closed an idle
	// pooled connection just as the request was written.
	UnexpectedEOF
)

var categoryNames = []string{"not", "timeout", "conn_refused", "conn_reset", "unexpected_eof"}

// String returns a short snake_case name for the category, suitable
// for use as a metric label value.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Categorize returns the transience category of err, looking through
// wrapped causes. Timeout takes precedence over the other categories.
// Temporary methods are ignored, as their semantics are unclear.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNABORTED:
			return ConnReset
		case syscall.ECONNREFUSED:
			return ConnRefused
		}
	}

	// A bare io.EOF is a normal end of stream, so only a wrapped one
	// (as returned by a transport) counts.
	if errors.Is(err, io.ErrUnexpectedEOF) || (err != io.EOF && errors.Is(err, io.EOF)) {
		return UnexpectedEOF
	}

	return Not
}

// Is reports whether err is transient, that is whether Categorize
// returns anything other than Not.
func Is(err error) bool {
	return Categorize(err) != Not
}

type hasTimeout interface {
	Timeout() bool
}
