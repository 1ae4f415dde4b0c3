// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gogama/sessionx/request"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/time/rate"
)

// SetHeader returns an adapter that sets the named header on every
// attempt, replacing any existing values. SetHeader panics if name or
// value is not valid in an HTTP header.
func SetHeader(name, value string) Adapter {
	if !httpguts.ValidHeaderFieldName(name) {
		panic(fmt.Sprintf("sessionx/interceptor: invalid header name %q", name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		panic(fmt.Sprintf("sessionx/interceptor: invalid value for header %q", name))
	}
	return AdapterFunc(func(_ context.Context, req *http.Request, _ *request.Execution) (*http.Request, error) {
		req.Header.Set(name, value)
		return req, nil
	})
}

// RateLimit returns an adapter that waits for a token from l before
// every attempt, retries included. If the wait cannot complete before
// ctx ends, or would exceed ctx's deadline, the adapter fails.
func RateLimit(l *rate.Limiter) Adapter {
	if l == nil {
		panic("sessionx/interceptor: nil limiter")
	}
	return AdapterFunc(func(ctx context.Context, req *http.Request, _ *request.Execution) (*http.Request, error) {
		if err := l.Wait(ctx); err != nil {
			return nil, fmt.Errorf("sessionx/interceptor: rate limit: %w", err)
		}
		return req, nil
	})
}
