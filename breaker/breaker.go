// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package breaker guards a session's attempts with a circuit breaker
// from github.com/sony/gobreaker.
//
// A Breaker plays two roles. As an interceptor it admits or rejects
// each attempt in Adapt, and reports failed attempts in Retry. As an
// event handler it reports the outcome of attempts that never reach
// its Retry, including the successful last attempt of every request.
// Install it in both places, ahead of other interceptors so that its
// Retry sees every failure:
//
//	b := breaker.New(gobreaker.Settings{Name: "api"})
//	handlers := &sessionx.HandlerGroup{}
//	b.Install(handlers)
//	s := sessionx.NewSession(t, sessionx.Config{
//		Interceptor: interceptor.NewChain(b, policy),
//		Handlers:    handlers,
//	})
package breaker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gogama/sessionx"
	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/request"
	"github.com/sony/gobreaker"
)

// A Breaker is a circuit breaker over the attempts of one or more
// sessions. It is safe for concurrent use.
type Breaker struct {
	cb         *gobreaker.TwoStepCircuitBreaker
	successful func(error) bool
}

// New returns a Breaker configured by st. If st.IsSuccessful is nil,
// an attempt counts as failed when Failure reports true for its error.
func New(st gobreaker.Settings) *Breaker {
	b := &Breaker{
		cb:         gobreaker.NewTwoStepCircuitBreaker(st),
		successful: st.IsSuccessful,
	}
	if b.successful == nil {
		b.successful = func(err error) bool { return !Failure(err) }
	}
	return b
}

// Failure reports whether err is held against the server: a transport
// failure, a failed trust evaluation, or a response the validator
// rejected. Cancellation and local failures are not.
func Failure(err error) bool {
	switch request.KindOf(err) {
	case request.KindTransportFailed, request.KindTrustEvaluationFailed, request.KindValidationFailed:
		return true
	default:
		return false
	}
}

// Name returns the name from the breaker's settings.
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the breaker's counts for its current generation.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Adapt admits the attempt, or fails it with an error wrapping
// gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
func (b *Breaker) Adapt(_ context.Context, req *http.Request, e *request.Execution) (*http.Request, error) {
	done, err := b.cb.Allow()
	if err != nil {
		e.SetValue(b, nil)
		return nil, fmt.Errorf("sessionx/breaker: %s: %w", b.cb.Name(), err)
	}
	e.SetValue(b, &ticket{done: done})
	return req, nil
}

// Retry reports the failed attempt to the breaker. If the attempt was
// admitted and the breaker is now open, Retry vetoes further retries.
// Otherwise it leaves the decision to the rest of the chain.
func (b *Breaker) Retry(_ context.Context, e *request.Execution, err error) interceptor.Decision {
	if b.report(e, err) && b.cb.State() == gobreaker.StateOpen {
		return interceptor.DoNotRetryWithError(gobreaker.ErrOpenState)
	}
	return interceptor.DoNotRetry()
}

// Handle implements sessionx.Handler.
func (b *Breaker) Handle(evt sessionx.Event, r *sessionx.Request) {
	if r == nil {
		return
	}
	e := r.Execution()
	switch evt {
	case sessionx.RetryDecided, sessionx.RequestFinished:
		b.report(e, e.Err)
	case sessionx.RequestCancelled:
		b.report(e, nil)
	}
}

// Install adds b to the back of every event chain of g that b observes.
func (b *Breaker) Install(g *sessionx.HandlerGroup) {
	for _, evt := range []sessionx.Event{
		sessionx.RetryDecided,
		sessionx.RequestFinished,
		sessionx.RequestCancelled,
	} {
		g.PushBack(evt, b)
	}
}

// report settles the ticket of the attempt e describes, if the attempt
// was admitted. It returns false for a rejected attempt.
func (b *Breaker) report(e *request.Execution, err error) bool {
	t, ok := e.Value(b).(*ticket)
	if ok {
		t.report(b.successful(err))
	}
	return ok
}

// A ticket is the admission of one attempt. Its outcome is reported at
// most once, by whichever of Retry or Handle sees the attempt first.
type ticket struct {
	once sync.Once
	done func(success bool)
}

func (t *ticket) report(success bool) {
	t.once.Do(func() { t.done(success) })
}
