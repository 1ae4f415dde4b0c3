// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"context"
	"errors"
	"net/http"

	"github.com/gogama/sessionx/request"
)

// ErrNilRequest is returned by Chain.Adapt when an adapter returns
// neither a request nor an error.
var ErrNilRequest = errors.New("sessionx/interceptor: adapter returned nil request")

// A Chain is an immutable ordered composition of adapters and
// retriers. The zero value is an empty chain, which adapts to the
// unmodified request and never retries.
//
// A Chain is itself an Interceptor, and is safe for concurrent use if
// all of its participants are.
type Chain struct {
	adapters []Adapter
	retriers []Retrier
}

// NewChain composes interceptors into a chain. Each interceptor
// contributes one adapter and one retrier, in argument order, except
// that a *Chain contributes all of its participants. Nil interceptors
// are skipped.
func NewChain(interceptors ...Interceptor) *Chain {
	c := &Chain{}
	for _, i := range interceptors {
		switch x := i.(type) {
		case nil:
		case *Chain:
			if x != nil {
				c.adapters = append(c.adapters, x.adapters...)
				c.retriers = append(c.retriers, x.retriers...)
			}
		default:
			c.adapters = append(c.adapters, x)
			c.retriers = append(c.retriers, x)
		}
	}
	return c
}

// Len returns the number of adapters, which equals the number of
// retriers.
func (c *Chain) Len() int {
	return len(c.adapters)
}

// Adapt threads req through every adapter in order. It returns the
// first error any adapter reports, without calling the remaining ones.
// An adapter returning a nil request without an error fails the chain
// with ErrNilRequest.
func (c *Chain) Adapt(ctx context.Context, req *http.Request, e *request.Execution) (*http.Request, error) {
	for i := 0; i < len(c.adapters); i++ {
		var err error
		req, err = c.adapters[i].Adapt(ctx, req, e)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, ErrNilRequest
		}
	}
	return req, nil
}

// Retry asks each retrier in order and returns the first decision that
// is not DoNotRetry. If every retrier declines, the result is
// DoNotRetry.
func (c *Chain) Retry(ctx context.Context, e *request.Execution, err error) Decision {
	for i := 0; i < len(c.retriers); i++ {
		d := c.retriers[i].Retry(ctx, e, err)
		if d.Action != ActionDoNotRetry {
			return d
		}
	}
	return DoNotRetry()
}
