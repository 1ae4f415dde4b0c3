// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package interceptor defines the two policy roles a session consults
during a request, and the Chain that composes them.

An Adapter rewrites the outgoing http.Request of every attempt before
the transport sees it, for example to add a signature or to wait on a
rate limiter. A Retrier is asked, after every failed attempt, whether
the request should be tried again. An Interceptor plays both roles; use
New to build one from separate halves, with a no-op standing in for a
missing half.

A Chain runs its adapters in attachment order, each receiving the
previous one's output, and stops at the first failure. It asks its
retriers in attachment order until one of them returns anything other
than DoNotRetry:

	c := interceptor.NewChain(
		interceptor.New(interceptor.SetHeader("User-Agent", "fetcher/1.0"), nil),
		interceptor.New(interceptor.RateLimit(limiter), nil),
		interceptor.New(nil, retry.Default()),
	)

Chains nest: a Chain passed to NewChain contributes its own adapters and
retriers in order, so the result is always flat.
*/
package interceptor
