// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/gogama/sessionx/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestSetHeader(t *testing.T) {
	t.Run("sets header", func(t *testing.T) {
		req := newRequest(t)
		req.Header.Add("User-Agent", "old")
		out, err := SetHeader("User-Agent", "new").Adapt(context.Background(), req, &request.Execution{})
		require.NoError(t, err)
		assert.Equal(t, []string{"new"}, out.Header.Values("User-Agent"))
	})
	t.Run("invalid name", func(t *testing.T) {
		assert.PanicsWithValue(t, `sessionx/interceptor: invalid header name "Bad Name"`, func() {
			SetHeader("Bad Name", "x")
		})
	})
	t.Run("invalid value", func(t *testing.T) {
		assert.PanicsWithValue(t, `sessionx/interceptor: invalid value for header "X-Foo"`, func() {
			SetHeader("X-Foo", "line\nbreak")
		})
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("passes request through", func(t *testing.T) {
		a := RateLimit(rate.NewLimiter(rate.Inf, 1))
		req := newRequest(t)
		out, err := a.Adapt(context.Background(), req, &request.Execution{})
		require.NoError(t, err)
		assert.Same(t, req, out)
	})
	t.Run("waits for token", func(t *testing.T) {
		a := RateLimit(rate.NewLimiter(rate.Every(50*time.Millisecond), 1))
		start := time.Now()
		for i := 0; i < 2; i++ {
			_, err := a.Adapt(context.Background(), newRequest(t), &request.Execution{})
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})
	t.Run("fails when context ends first", func(t *testing.T) {
		l := rate.NewLimiter(rate.Every(time.Hour), 1)
		require.True(t, l.Allow())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		out, err := RateLimit(l).Adapt(ctx, newRequest(t), &request.Execution{})
		assert.Nil(t, out)
		assert.ErrorContains(t, err, "sessionx/interceptor: rate limit")
	})
	t.Run("nil limiter", func(t *testing.T) {
		assert.Panics(t, func() { RateLimit(nil) })
	})
}
