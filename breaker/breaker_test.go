// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package breaker

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/sessionx"
	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/request"
	"github.com/gogama/sessionx/retry"
	"github.com/gogama/sessionx/transport"
	"github.com/sony/gobreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServer returns a server that fails the first failures requests
// with 503, and the number of requests it has served.
func newServer(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	var n atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) <= failures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	t.Cleanup(server.Close)
	return server, &n
}

func newSession(b *Breaker, i interceptor.Interceptor) *sessionx.Session {
	var handlers sessionx.HandlerGroup
	b.Install(&handlers)
	return sessionx.NewSession(&transport.HTTP{}, sessionx.Config{
		Interceptor: i,
		Handlers:    &handlers,
	})
}

func trips(n uint32) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= n }
}

func do(t *testing.T, s *sessionx.Session, url string) (*request.Execution, error) {
	p, err := request.NewPlan("GET", url, nil)
	require.NoError(t, err)
	return s.Do(p, sessionx.WithValidator(sessionx.AcceptStatus(200)))
}

func TestBreaker(t *testing.T) {
	t.Run("trips after failures", func(t *testing.T) {
		server, served := newServer(t, 100)
		b := New(gobreaker.Settings{Name: "api", ReadyToTrip: trips(2), Timeout: time.Minute})
		s := newSession(b, b)

		_, err := do(t, s, server.URL)
		assert.Equal(t, request.KindValidationFailed, request.KindOf(err))
		assert.Equal(t, gobreaker.StateClosed, b.State())
		_, err = do(t, s, server.URL)
		assert.Equal(t, request.KindRetryVetoed, request.KindOf(err))
		assert.Equal(t, gobreaker.StateOpen, b.State())

		_, err = do(t, s, server.URL)
		assert.Equal(t, request.KindAdaptationFailed, request.KindOf(err))
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.ErrorContains(t, err, "sessionx/breaker: api: ")
		assert.Equal(t, int32(2), served.Load())
	})
	t.Run("success resets consecutive failures", func(t *testing.T) {
		server, _ := newServer(t, 1)
		b := New(gobreaker.Settings{ReadyToTrip: trips(2)})
		s := newSession(b, b)

		_, err := do(t, s, server.URL)
		require.Error(t, err)
		_, err = do(t, s, server.URL)
		require.NoError(t, err)

		c := b.Counts()
		assert.Equal(t, uint32(2), c.Requests)
		assert.Equal(t, uint32(1), c.TotalFailures)
		assert.Equal(t, uint32(1), c.TotalSuccesses)
		assert.Equal(t, uint32(0), c.ConsecutiveFailures)
		assert.Equal(t, gobreaker.StateClosed, b.State())
	})
	t.Run("half-open recovers", func(t *testing.T) {
		server, _ := newServer(t, 1)
		b := New(gobreaker.Settings{ReadyToTrip: trips(1), Timeout: 50 * time.Millisecond})
		s := newSession(b, b)

		_, err := do(t, s, server.URL)
		require.Error(t, err)
		assert.Equal(t, gobreaker.StateOpen, b.State())

		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, gobreaker.StateHalfOpen, b.State())
		_, err = do(t, s, server.URL)
		require.NoError(t, err)
		assert.Equal(t, gobreaker.StateClosed, b.State())
	})
	t.Run("vetoes retries while open", func(t *testing.T) {
		server, served := newServer(t, 100)
		b := New(gobreaker.Settings{ReadyToTrip: trips(1), Timeout: time.Minute})
		policy := retry.NewPolicy(retry.Times(3).And(retry.StatusCode(503)), retry.NewFixedWaiter(time.Millisecond))
		s := newSession(b, interceptor.NewChain(b, policy))

		e, err := do(t, s, server.URL)
		assert.Equal(t, request.KindRetryVetoed, request.KindOf(err))
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, 0, e.Attempt)
		assert.Equal(t, int32(1), served.Load())
	})
	t.Run("retries while closed", func(t *testing.T) {
		server, served := newServer(t, 2)
		b := New(gobreaker.Settings{ReadyToTrip: trips(5)})
		policy := retry.NewPolicy(retry.Times(3).And(retry.StatusCode(503)), retry.NewFixedWaiter(time.Millisecond))
		s := newSession(b, interceptor.NewChain(b, policy))

		e, err := do(t, s, server.URL)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Attempt)
		assert.Equal(t, int32(3), served.Load())
		c := b.Counts()
		assert.Equal(t, uint32(3), c.Requests)
		assert.Equal(t, uint32(2), c.TotalFailures)
		assert.Equal(t, uint32(1), c.TotalSuccesses)
	})
	t.Run("custom success", func(t *testing.T) {
		server, _ := newServer(t, 100)
		b := New(gobreaker.Settings{
			ReadyToTrip:  trips(1),
			IsSuccessful: func(err error) bool { return request.KindOf(err) != request.KindTransportFailed },
		})
		s := newSession(b, b)

		_, err := do(t, s, server.URL)
		require.Error(t, err)
		assert.Equal(t, gobreaker.StateClosed, b.State())
		assert.Equal(t, uint32(1), b.Counts().TotalSuccesses)
	})
	t.Run("nil request", func(t *testing.T) {
		b := New(gobreaker.Settings{})
		assert.NotPanics(t, func() {
			b.Handle(sessionx.SessionInvalidated, nil)
			b.Handle(sessionx.RequestFinished, nil)
		})
		assert.Equal(t, "", b.Name())
	})
}

func TestFailure(t *testing.T) {
	assert.False(t, Failure(nil))
	assert.False(t, Failure(errors.New("foo")))
	assert.False(t, Failure(&request.CancelledError{}))
	assert.False(t, Failure(&request.Error{Kind: request.KindAdaptationFailed}))
	assert.True(t, Failure(&request.Error{Kind: request.KindTransportFailed}))
	assert.True(t, Failure(&request.Error{Kind: request.KindTrustEvaluationFailed}))
	assert.True(t, Failure(&request.Error{Kind: request.KindValidationFailed}))
}
