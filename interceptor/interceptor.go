// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"context"
	"net/http"

	"github.com/gogama/sessionx/request"
)

// An Adapter rewrites the outgoing request of an attempt.
//
// Adapt may return req itself, a modified req, or a replacement. A
// non-nil error fails the attempt before any transport task is created.
// Adapt runs on the goroutine that drives the request, and may block as
// long as it honors ctx.
//
// The execution is a snapshot: changes to its exported fields are not
// seen by the session.
type Adapter interface {
	Adapt(ctx context.Context, req *http.Request, e *request.Execution) (*http.Request, error)
}

// A Retrier decides whether a failed attempt should be retried.
//
// Retry receives the error that ended the attempt, which is also
// available as e.Err. Returning DoNotRetry defers the decision to the
// next retrier in the chain.
type Retrier interface {
	Retry(ctx context.Context, e *request.Execution, err error) Decision
}

// An Interceptor plays both policy roles.
type Interceptor interface {
	Adapter
	Retrier
}

// The AdapterFunc type is an adapter to allow the use of ordinary
// functions as Adapters.
type AdapterFunc func(ctx context.Context, req *http.Request, e *request.Execution) (*http.Request, error)

// Adapt calls f(ctx, req, e).
func (f AdapterFunc) Adapt(ctx context.Context, req *http.Request, e *request.Execution) (*http.Request, error) {
	return f(ctx, req, e)
}

// The RetrierFunc type is an adapter to allow the use of ordinary
// functions as Retriers.
type RetrierFunc func(ctx context.Context, e *request.Execution, err error) Decision

// Retry calls f(ctx, e, err).
func (f RetrierFunc) Retry(ctx context.Context, e *request.Execution, err error) Decision {
	return f(ctx, e, err)
}

// New returns an Interceptor that adapts with a and retries with r.
// A nil a adapts to the unmodified request, and a nil r always returns
// DoNotRetry.
func New(a Adapter, r Retrier) Interceptor {
	if a == nil {
		a = identity{}
	}
	if r == nil {
		r = abstain{}
	}
	return pair{a, r}
}

type pair struct {
	Adapter
	Retrier
}

type identity struct{}

func (identity) Adapt(_ context.Context, req *http.Request, _ *request.Execution) (*http.Request, error) {
	return req, nil
}

type abstain struct{}

func (abstain) Retry(context.Context, *request.Execution, error) Decision {
	return DoNotRetry()
}
