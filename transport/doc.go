// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport provides HTTP, a sessionx.Transport that executes
attempts with the standard net/http client machinery.

Each task runs on its own goroutine and reports its progress to the
session's delegate as it goes: upload progress, response headers, the
body in chunks (or, for Download plans, as a temporary file), and
finally completion and, if enabled, metrics.

	t := &transport.HTTP{CollectMetrics: true}
	s := sessionx.NewSession(t, sessionx.Config{
		Interceptor:     retry.Default(),
		CollectsMetrics: true,
	})
	e, err := sessionx.Get(s, "https://example.com")

Set DelegateTrust to hand server certificate evaluation to the session,
which applies its trust.Manager, and Cache to let the session decide
which responses are kept in memory.
*/
package transport
