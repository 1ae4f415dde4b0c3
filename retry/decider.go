// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/sessionx/request"
	"github.com/gogama/sessionx/transient"
)

// A Decider decides if a retry should be done. It sees the execution as
// it stood when the attempt failed, with e.Err holding the failure.
//
// Implementations of Decider must be safe for concurrent use by
// multiple goroutines.
type Decider interface {
	Decide(e *request.Execution) bool
}

// The DeciderFunc type is an adapter to allow the use of ordinary
// functions as retry deciders. It also provides the logical
// composition methods And and Or, so it is often convenient to work
// with DeciderFunc directly rather than with Decider.
type DeciderFunc func(e *request.Execution) bool

// DefaultTimes is the number of times DefaultDecider will retry.
const DefaultTimes = 5

// DefaultDecider returns a general-purpose retry decider. It allows up
// to DefaultTimes retries, and retries on a transient error
// (TransientErr) or on a rejected response whose status code is 429,
// 502, 503, or 504.
func DefaultDecider() DeciderFunc {
	return Times(DefaultTimes).And(StatusCode(429, 502, 503, 504).Or(TransientErr))
}

// TransientErr is a decider that indicates a retry if the current
// error is transient according to transient.Categorize.
var TransientErr DeciderFunc = transientErr

// Decide returns f(e).
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And composes two retry deciders into a new decider which returns true
// if both return true. g is not evaluated if f returns false.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or composes two retry deciders into a new decider which returns true
// if either returns true. g is not evaluated if f returns true.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Times constructs a retry decider which allows up to n retries.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Attempt < n
	}
}

// Before constructs a retry decider allowing retries until d has
// elapsed since the request was submitted.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode constructs a retry decider that returns true if the failed
// attempt received a response whose status code is one of ss. The
// response is only present on a failure when a validator rejected it.
func StatusCode(ss ...int) DeciderFunc {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(e *request.Execution) bool {
		for _, s := range ss2 {
			if e.StatusCode() == s {
				return true
			}
		}
		return false
	}
}

// ErrorKind constructs a retry decider that returns true if the error
// that ended the attempt is a *request.Error of one of the given kinds.
func ErrorKind(kinds ...request.ErrorKind) DeciderFunc {
	ks := make(map[request.ErrorKind]bool, len(kinds))
	for _, k := range kinds {
		ks[k] = true
	}
	return func(e *request.Execution) bool {
		return ks[request.KindOf(e.Err)]
	}
}

func transientErr(e *request.Execution) bool {
	return transient.Is(e.Err)
}
