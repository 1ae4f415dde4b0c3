// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gogama/sessionx/request"
)

// A Waiter specifies how long to wait before retrying a failed attempt.
// A Policy only calls its Waiter after its Decider returned true.
//
// Implementations of Waiter must be safe for concurrent use by multiple
// goroutines.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// DefaultWaiter returns a new jittered exponential backoff waiter with
// a base wait of 50 milliseconds and a maximum wait of 1 second.
func DefaultWaiter() Waiter {
	return NewExpWaiter(50*time.Millisecond, 1*time.Second, time.Now())
}

// NewFixedWaiter constructs a Waiter that always returns d.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(_ *request.Execution) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter constructs a Waiter implementing exponential backoff
// with optional "Full Jitter", as described in
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// The ceiling for attempt n is min(base * 2**n, max). Base must be
// positive and max at least base.
//
// Parameter jitter is nil for no jitter, in which case the waiter
// returns the ceiling. Otherwise it is a seed (time.Time, int, or
// int64) or a random source (rand.Source or *rand.Rand), and the waiter
// returns a random duration between 0 and the ceiling.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	if base < 1 {
		panic("sessionx/retry: base must be positive")
	}
	if max < base {
		panic("sessionx/retry: max must be at least base")
	}
	return &jitterExpWaiter{
		base: base,
		max:  max,
		rand: jitterToRand(jitter),
	}
}

type jitterExpWaiter struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (w *jitterExpWaiter) Wait(e *request.Execution) time.Duration {
	exp := int64(1) << e.Attempt
	if exp < 1 {
		exp = 1<<63 - 1
	}

	ceil := int64(w.base) * exp
	if ceil < int64(w.base) || int64(w.max) < ceil {
		ceil = int64(w.max)
	}

	if w.rand == nil {
		return time.Duration(ceil)
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	return time.Duration(w.rand.Int63n(ceil))
}

func jitterToRand(jitter interface{}) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("sessionx/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("sessionx/retry: invalid jitter type")
	}
	return rand.New(s)
}

// NewRetryAfterWaiter constructs a Waiter that honors a Retry-After
// header on the failed attempt's response, given either in seconds or
// as an HTTP date, capped at max. When the header is absent or invalid
// the fallback waiter decides.
func NewRetryAfterWaiter(fallback Waiter, max time.Duration) Waiter {
	if fallback == nil {
		panic("sessionx/retry: nil fallback waiter")
	}
	return &retryAfterWaiter{fallback: fallback, max: max, now: time.Now}
}

type retryAfterWaiter struct {
	fallback Waiter
	max      time.Duration
	now      func() time.Time
}

func (w *retryAfterWaiter) Wait(e *request.Execution) time.Duration {
	v := e.Header().Get("Retry-After")
	if v == "" {
		return w.fallback.Wait(e)
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(w.now())
		if d < 0 {
			d = 0
		}
	} else {
		return w.fallback.Wait(e)
	}
	if d > w.max {
		d = w.max
	}
	return d
}
