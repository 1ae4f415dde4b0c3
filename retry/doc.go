// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides retry policies for a session's interceptor
// chain: whether a failed attempt should be retried, and how long to
// wait before retrying it.
//
// A Policy is assembled with NewPolicy from a decision-maker, Decider,
// and a wait time calculator, Waiter. Every Policy is an
// interceptor.Retrier, so it can take a place in a chain directly:
//
//	decider := retry.Times(3).
//	               And(retry.Before(5 * time.Second)).
//	               And(retry.StatusCode(503).Or(retry.TransientErr))
//	waiter := retry.NewExpWaiter(100*time.Millisecond, 2*time.Second, time.Now())
//	chain := interceptor.NewChain(interceptor.New(nil, retry.NewPolicy(decider, waiter)))
//
// Nothing in this package is shared between sessions: Default, Never,
// DefaultDecider, and DefaultWaiter construct fresh values on every
// call.
package retry
