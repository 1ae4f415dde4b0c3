// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"fmt"
	"time"
)

// An Action is the verdict part of a retry Decision.
type Action int

const (
	// ActionDoNotRetry declines to retry. Within a chain it defers to
	// the next retrier; at the end of the chain the request finishes
	// with the attempt's error.
	ActionDoNotRetry Action = iota
	// ActionRetry retries immediately.
	ActionRetry
	// ActionRetryWithDelay retries after Decision.Delay.
	ActionRetryWithDelay
	// ActionDoNotRetryWithError finishes the request with
	// Decision.Err instead of the attempt's error.
	ActionDoNotRetryWithError
)

var actionNames = []string{"DoNotRetry", "Retry", "RetryWithDelay", "DoNotRetryWithError"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// A Decision is the outcome of a Retrier. Use the constructors rather
// than building one directly.
type Decision struct {
	Action Action
	Delay  time.Duration
	Err    error
}

// Retry returns a decision to retry immediately.
func Retry() Decision {
	return Decision{Action: ActionRetry}
}

// RetryAfter returns a decision to retry after d. A non-positive d is
// the same as Retry.
func RetryAfter(d time.Duration) Decision {
	if d <= 0 {
		return Retry()
	}
	return Decision{Action: ActionRetryWithDelay, Delay: d}
}

// DoNotRetry returns a decision not to retry.
func DoNotRetry() Decision {
	return Decision{}
}

// DoNotRetryWithError returns a decision not to retry, and to finish
// the request with err.
func DoNotRetryWithError(err error) Decision {
	if err == nil {
		panic("sessionx/interceptor: nil error")
	}
	return Decision{Action: ActionDoNotRetryWithError, Err: err}
}

// Retrying reports whether the decision schedules another attempt.
func (d Decision) Retrying() bool {
	return d.Action == ActionRetry || d.Action == ActionRetryWithDelay
}

func (d Decision) String() string {
	switch d.Action {
	case ActionRetryWithDelay:
		return fmt.Sprintf("%s(%s)", d.Action, d.Delay)
	case ActionDoNotRetryWithError:
		return fmt.Sprintf("%s(%v)", d.Action, d.Err)
	default:
		return d.Action.String()
	}
}
