// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"time"

	"github.com/gogama/sessionx/request"
)

// A Policy chooses the timeout of the next attempt of a request.
//
// The execution passed to Timeout is a snapshot taken before the next
// attempt starts, so Err and AttemptTimeouts still describe the attempt
// that just failed. A non-positive return value means the attempt has
// no deadline of its own, and is bounded only by the plan context.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	Timeout(e *request.Execution) time.Duration
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// Default returns a new policy that sets a fixed timeout of 30 seconds
// on each attempt.
func Default() Policy {
	return Fixed(30 * time.Second)
}

// Infinite returns a policy which never times out.
func Infinite() Policy {
	return Fixed(math.MaxInt64)
}

// Fixed constructs a timeout policy that uses d for every attempt.
func Fixed(d time.Duration) Policy {
	return policy([]time.Duration{d})
}

// Adaptive constructs a timeout policy that lengthens the next timeout
// if the previous attempt timed out.
//
// Parameter usual is returned for an initial attempt and for any retry
// where the preceding attempt did not time out. Parameter after holds
// the values returned when the preceding attempt did time out: after[0]
// following the first timeout of the request, after[1] following the
// second, and so on, with the last element repeating.
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// Policy p uses 200ms usually, 1s straight after the first timeout, and
// 10s straight after any later timeout.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	p := make([]time.Duration, 1, 1+len(after))
	p[0] = usual
	return policy(append(p, after...))
}

type policy []time.Duration

func (p policy) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return p[0]
	}

	i := e.AttemptTimeouts
	if i > len(p)-1 {
		i = len(p) - 1
	}

	return p[i]
}
