// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gogama/sessionx/request"
	"github.com/stretchr/testify/assert"
)

func TestDefaultWaiter(t *testing.T) {
	w := DefaultWaiter()
	for i := 0; i < 10; i++ {
		ceil := time.Duration(50<<i) * time.Millisecond
		if ceil > time.Second {
			ceil = time.Second
		}
		wait := w.Wait(&request.Execution{Attempt: i})
		assert.GreaterOrEqual(t, wait, time.Duration(0))
		assert.LessOrEqual(t, wait, ceil)
	}
}

func TestNewExpWaiter(t *testing.T) {
	base, max := 1*time.Millisecond, 1*time.Hour
	t.Run("invalid args", func(t *testing.T) {
		assert.PanicsWithValue(t, "sessionx/retry: base must be positive", func() {
			NewExpWaiter(0, max, nil)
		})
		assert.PanicsWithValue(t, "sessionx/retry: max must be at least base", func() {
			NewExpWaiter(2, 1, nil)
		})
		assert.PanicsWithValue(t, "sessionx/retry: invalid jitter type", func() {
			NewExpWaiter(base, max, float64(1))
		})
		var nilRand *rand.Rand
		assert.PanicsWithValue(t, "sessionx/retry: jitter may not be a typed nil", func() {
			NewExpWaiter(base, max, nilRand)
		})
	})
	t.Run("no jitter", func(t *testing.T) {
		w := NewExpWaiter(base, max, nil)
		for i := 0; i < 10; i++ {
			assert.Equal(t, time.Duration(1<<i)*time.Millisecond, w.Wait(&request.Execution{Attempt: i}))
		}
		assert.Equal(t, max, w.Wait(&request.Execution{Attempt: 25}))
		assert.Equal(t, max, w.Wait(&request.Execution{Attempt: 1000}))
		assert.Equal(t, max, w.Wait(&request.Execution{Attempt: math.MaxInt64}))
	})
	t.Run("with jitter", func(t *testing.T) {
		jitters := []struct {
			name  string
			value interface{}
		}{
			{"zero time.Time", time.Time{}},
			{"time.Now()", time.Now()},
			{"int", 1},
			{"int64", int64(1)},
			{"rand.Source", rand.NewSource(0)},
			{"*rand.Rand", rand.New(rand.NewSource(0))},
		}
		for _, jitter := range jitters {
			t.Run(jitter.name, func(t *testing.T) {
				w := NewExpWaiter(base, max, jitter.value)
				for j := 0; j < 100; j++ {
					d := w.Wait(&request.Execution{Attempt: j})
					assert.GreaterOrEqual(t, d, time.Duration(0))
					assert.LessOrEqual(t, d, max)
				}
			})
		}
	})
	t.Run("concurrent use", func(t *testing.T) {
		w := NewExpWaiter(base, max, 0)
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 22; j++ {
					d := w.Wait(&request.Execution{Attempt: j})
					assert.GreaterOrEqual(t, d, time.Duration(0))
					assert.LessOrEqual(t, d, time.Duration(1<<j)*time.Millisecond)
				}
			}()
		}
		wg.Wait()
	})
}

func TestNewRetryAfterWaiter(t *testing.T) {
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	fallback := NewFixedWaiter(7 * time.Millisecond)
	w := NewRetryAfterWaiter(fallback, time.Minute).(*retryAfterWaiter)
	w.now = func() time.Time { return now }

	testCases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"absent", "", 7 * time.Millisecond},
		{"seconds", "3", 3 * time.Second},
		{"capped", "3600", time.Minute},
		{"http date", now.Add(10 * time.Second).Format(http.TimeFormat), 10 * time.Second},
		{"date in past", now.Add(-time.Hour).Format(http.TimeFormat), 0},
		{"garbage", "soon", 7 * time.Millisecond},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := http.Header{}
			if testCase.header != "" {
				h.Set("Retry-After", testCase.header)
			}
			e := &request.Execution{Response: &http.Response{StatusCode: 503, Header: h}}
			assert.Equal(t, testCase.want, w.Wait(e))
		})
	}
	t.Run("no response", func(t *testing.T) {
		assert.Equal(t, 7*time.Millisecond, w.Wait(&request.Execution{}))
	})
	t.Run("nil fallback", func(t *testing.T) {
		assert.Panics(t, func() { NewRetryAfterWaiter(nil, time.Second) })
	})
}
