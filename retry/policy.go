// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/request"
)

// A Policy is a Decider and a Waiter working as an
// interceptor.Retrier: when the Decider says yes, Retry returns a
// decision to retry after the Waiter's delay, and otherwise it returns
// interceptor.DoNotRetry so that later retriers in the chain get a say.
//
// A Policy is also a complete interceptor.Interceptor whose adapter
// leaves requests unchanged, so it can be installed in a session on its
// own.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Decider
	Waiter
	interceptor.Interceptor
}

// Default returns a general-purpose retry policy composed of
// DefaultDecider and DefaultWaiter.
func Default() Policy {
	return NewPolicy(DefaultDecider(), DefaultWaiter())
}

// Never returns a policy that never retries.
func Never() Policy {
	return NewPolicy(Times(0), NewFixedWaiter(0))
}

type policy struct {
	decider Decider
	waiter  Waiter
}

// NewPolicy composes a Decider and a Waiter into a retry Policy.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("sessionx/retry: nil decider")
	}
	if w == nil {
		panic("sessionx/retry: nil waiter")
	}
	return policy{decider: d, waiter: w}
}

func (p policy) Decide(e *request.Execution) bool {
	return p.decider.Decide(e)
}

func (p policy) Wait(e *request.Execution) time.Duration {
	return p.waiter.Wait(e)
}

func (p policy) Adapt(_ context.Context, req *http.Request, _ *request.Execution) (*http.Request, error) {
	return req, nil
}

func (p policy) Retry(_ context.Context, e *request.Execution, err error) interceptor.Decision {
	if e.Err == nil {
		e.Err = err
	}
	if !p.decider.Decide(e) {
		return interceptor.DoNotRetry()
	}
	return interceptor.RetryAfter(p.waiter.Wait(e))
}
