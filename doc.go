// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package sessionx executes HTTP requests over an asynchronous transport,
with pluggable request adaptation, retries, timeouts, server trust
evaluation, and downloads.

Create a Session over a Transport to begin making requests. Package
transport provides one over net/http.

	s := sessionx.NewSession(&transport.HTTP{}, sessionx.Config{})
	ex, err := sessionx.Get(s, "https://www.example.com")
	...
	ex, err := sessionx.Post(s, "https://www.example.com/upload",
		"application/json", &buf)
	...
	ex, err := sessionx.PostForm(s, "http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Each request runs as a sequence of attempts. Before every attempt, the
session's interceptor may adapt the outgoing http.Request; after every
failed attempt, it decides whether to retry and how long to wait.
Package interceptor composes interceptors into chains, and package retry
provides retry policies:

	policy := retry.NewPolicy(retry.DefaultDecider(),
		retry.NewExpWaiter(250*time.Millisecond, 5*time.Second, time.Now()))
	s := sessionx.NewSession(t, sessionx.Config{
		Interceptor: interceptor.NewChain(
			interceptor.New(interceptor.SetHeader("User-Agent", "me"), nil),
			policy),
	})

For control over individual attempt timeouts, set a timeout policy from
package timeout:

	s := sessionx.NewSession(t, sessionx.Config{
		Timeout: timeout.Fixed(10*time.Second),
	})

Submit starts a request without waiting for it. The returned Request
reports its state and progress, and may be cancelled:

	r := s.Submit(plan)
	...
	fmt.Println(r.State(), r.DownloadProgress().Fraction())
	r.Cancel()

To observe the fine-grained details of request execution, install
handlers into the appropriate handler chains. LogHandler logs every
event it handles to a log/slog logger, and package metrics exports
events as Prometheus metrics:

	handlers := &sessionx.HandlerGroup{}
	handlers.PushBackAll(sessionx.LogHandler(slog.Default()))
	s := sessionx.NewSession(t, sessionx.Config{
		Handlers: handlers,
	})

Package sessionx provides the Doer interface implemented by Session, and
utility functions for working with a Doer (Get, Head, Post, PostForm,
and Download).
*/
package sessionx
