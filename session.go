// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/registry"
	"github.com/gogama/sessionx/request"
	"github.com/gogama/sessionx/timeout"
	"github.com/gogama/sessionx/trust"
	"github.com/google/uuid"
)

// ErrSessionInvalidated is the cause of cancellation for requests that
// were live when their session was invalidated, or were submitted
// afterwards.
var ErrSessionInvalidated = errors.New("sessionx: session invalidated")

// Config holds the settings of a Session. The zero value is a valid
// configuration.
type Config struct {
	// Interceptor adapts every attempt and decides on retries. If nil,
	// requests are sent as planned and never retried.
	//
	// Use interceptor.NewChain to install more than one interceptor,
	// and retry.Default for a sensible retry policy.
	Interceptor interceptor.Interceptor

	// Timeout chooses the deadline of each attempt. If nil,
	// timeout.Default() is used.
	Timeout timeout.Policy

	// Trust selects the server trust evaluator per host. If nil, the
	// transport's default server trust handling applies to every host.
	Trust *trust.Manager

	// Redirect decides redirects. If nil, every redirect the transport
	// proposes is followed.
	Redirect RedirectHandler

	// Cache decides which responses the transport caches. If nil,
	// every response the transport proposes is cached.
	Cache CachedResponseHandler

	// Credentials answers credential challenges for requests that
	// carry no credential of their own. If nil, such challenges get
	// the transport's default handling.
	Credentials CredentialProvider

	// Destination places downloaded files. If nil, DefaultDestination
	// is used.
	Destination Destination

	// CollectsMetrics must be true if the transport reports metrics for
	// every task. An attempt then completes only after both its
	// completion and its metrics have been reported.
	CollectsMetrics bool

	// Handlers is the group of event handlers installed in the session.
	// It must not be modified after the session is constructed.
	Handlers *HandlerGroup

	// Logger receives the session's log records. If nil, nothing is
	// logged.
	Logger *slog.Logger
}

// A Session executes requests over a Transport.
//
// A Session is the Delegate of every task it creates: the transport
// reports task events to it, and it routes each event to the Request
// that owns the task.
type Session struct {
	transport   Transport
	chain       *interceptor.Chain
	timeout     timeout.Policy
	trust       *trust.Manager
	redirect    RedirectHandler
	cache       CachedResponseHandler
	credentials CredentialProvider
	destination Destination
	handlers    *HandlerGroup
	logger      *slog.Logger

	registry *registry.Registry[Handle, *Request]

	mu          sync.Mutex
	live        map[uuid.UUID]*Request
	waiting     map[Handle]func()
	invalidated error
}

// NewSession returns a session that executes requests over t.
func NewSession(t Transport, cfg Config) *Session {
	if t == nil {
		panic("sessionx: nil transport")
	}
	s := &Session{
		transport:   t,
		chain:       interceptor.NewChain(cfg.Interceptor),
		timeout:     cfg.Timeout,
		trust:       cfg.Trust,
		redirect:    cfg.Redirect,
		cache:       cfg.Cache,
		credentials: cfg.Credentials,
		destination: cfg.Destination,
		handlers:    cfg.Handlers,
		logger:      cfg.Logger,
		registry:    registry.New[Handle, *Request](cfg.CollectsMetrics),
		live:        make(map[uuid.UUID]*Request),
		waiting:     make(map[Handle]func()),
	}
	if s.timeout == nil {
		s.timeout = timeout.Default()
	}
	if s.destination == nil {
		s.destination = DefaultDestination
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Submit starts executing p and returns the request executing it.
//
// The request ends when p's context ends, in which case it is
// cancelled with the context's cause.
func (s *Session) Submit(p *request.Plan, opts ...Option) *Request {
	if p == nil {
		panic("sessionx: nil plan")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	r := newRequest(s, p, o)

	s.mu.Lock()
	invalidated := s.invalidated
	if invalidated == nil {
		s.live[r.id] = r
	}
	s.mu.Unlock()

	r.logger.Info("request submitted", "method", p.Method, "url", p.URL, "kind", p.Kind)
	s.handlers.run(RequestSubmitted, r)
	if invalidated != nil {
		r.abort(invalidated)
		return r
	}
	go r.run()
	return r
}

// Do submits p and waits for the request to end. It returns the final
// execution, which is never nil, and the request's terminal error.
func (s *Session) Do(p *request.Plan, opts ...Option) (*request.Execution, error) {
	return s.Submit(p, opts...).Wait(context.Background())
}

// Cancel cancels the live request with the given identifier. It
// returns false if there is no such request.
func (s *Session) Cancel(id uuid.UUID) bool {
	s.mu.Lock()
	r := s.live[id]
	s.mu.Unlock()
	if r == nil {
		return false
	}
	return r.abort(nil)
}

// Len returns the number of live requests.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Invalidate ends the session: every live request is cancelled with a
// cause matching ErrSessionInvalidated and wrapping cause, and requests
// submitted afterwards are cancelled at once. Only the first call has
// any effect.
func (s *Session) Invalidate(cause error) {
	if cause == nil {
		s.invalidate(ErrSessionInvalidated)
	} else {
		s.invalidate(fmt.Errorf("%w: %w", ErrSessionInvalidated, cause))
	}
}

func (s *Session) invalidate(cause error) {
	s.mu.Lock()
	if s.invalidated != nil {
		s.mu.Unlock()
		return
	}
	s.invalidated = cause
	s.registry.Drain()
	clear(s.waiting)
	live := make([]*Request, 0, len(s.live))
	for _, r := range s.live {
		live = append(live, r)
	}
	s.mu.Unlock()

	s.logger.Warn("session invalidated", "cause", cause, "live", len(live))
	for _, r := range live {
		r.abort(cause)
	}
}

func (s *Session) lookup(h Handle) *Request {
	r, _ := s.registry.Value(h)
	return r
}

// release forcibly removes the registry entry of h together with any
// parked completion.
func (s *Session) release(h Handle) {
	s.mu.Lock()
	s.registry.Release(h)
	delete(s.waiting, h)
	s.mu.Unlock()
}

func (s *Session) forget(r *Request) {
	s.mu.Lock()
	delete(s.live, r.id)
	s.mu.Unlock()
}

// signalled handles the outcome of a registry transition for h. A
// transition on an unknown handle is a late event for a task that was
// already released, and is dropped. Any other failure fails the attempt
// of r.
func (s *Session) signalled(h Handle, r *Request, signal string, err error) {
	if errors.Is(err, registry.ErrUnknownHandle) {
		s.logger.Debug("late event suppressed", "handle", uint64(h), "signal", signal)
		return
	}
	s.logger.Error("inconsistent task signal", "handle", uint64(h), "signal", signal, "error", err)
	s.release(h)
	if r != nil {
		r.didCompleteTask(h, &request.Error{Kind: request.KindConsistencyViolation, Err: err})
	}
}

// OnChallenge implements Delegate.
func (s *Session) OnChallenge(h Handle, c *Challenge) (Disposition, *Credential) {
	r := s.lookup(h)
	s.handlers.run(ChallengeReceived, r)
	if r == nil {
		return CancelChallenge, nil
	}
	return r.resolveChallenge(h, c)
}

// OnUploadProgress implements Delegate.
func (s *Session) OnUploadProgress(h Handle, _, totalSent, totalExpected int64) {
	r := s.lookup(h)
	s.handlers.run(UploadProgressed, r)
	if r != nil {
		r.didSendBodyData(h, totalSent, totalExpected)
	}
}

// OnRedirect implements Delegate.
func (s *Session) OnRedirect(h Handle, resp *http.Response, next *http.Request) *http.Request {
	r := s.lookup(h)
	s.handlers.run(RedirectProposed, r)
	if r == nil {
		return nil
	}
	return r.resolveRedirect(resp, next)
}

// OnCachePolicyQuery implements Delegate.
func (s *Session) OnCachePolicyQuery(h Handle, proposed *CachedResponse) *CachedResponse {
	r := s.lookup(h)
	s.handlers.run(CachePolicyQueried, r)
	if r == nil {
		return nil
	}
	return r.resolveCache(proposed)
}

// OnResponse implements Delegate.
func (s *Session) OnResponse(h Handle, resp *http.Response) {
	r := s.lookup(h)
	s.handlers.run(ResponseReceived, r)
	if r != nil {
		r.didReceiveResponse(h, resp)
	}
}

// OnDataReceived implements Delegate.
func (s *Session) OnDataReceived(h Handle, data []byte) {
	r := s.lookup(h)
	s.handlers.run(DataReceived, r)
	if r != nil {
		r.didReceiveData(h, data)
	}
}

// OnDownloadResumed implements Delegate.
func (s *Session) OnDownloadResumed(h Handle, offset, expectedTotal int64) {
	r := s.lookup(h)
	s.handlers.run(DownloadResumed, r)
	if r != nil {
		r.didResumeDownload(h, offset, expectedTotal)
	}
}

// OnDownloadProgress implements Delegate.
func (s *Session) OnDownloadProgress(h Handle, _, totalWritten, totalExpected int64) {
	r := s.lookup(h)
	s.handlers.run(DownloadProgressed, r)
	if r != nil {
		r.didWriteData(h, totalWritten, totalExpected)
	}
}

// OnDownloadFinished implements Delegate.
func (s *Session) OnDownloadFinished(h Handle, tempPath string) {
	r := s.lookup(h)
	s.handlers.run(DownloadFinished, r)
	if r != nil {
		r.didFinishDownload(h, tempPath)
	}
}

// OnMetricsGathered implements Delegate.
func (s *Session) OnMetricsGathered(h Handle, m *request.Metrics) {
	r := s.lookup(h)
	s.handlers.run(MetricsGathered, r)
	if r != nil {
		r.didGatherMetrics(h, m)
	}

	s.mu.Lock()
	released, err := s.registry.MetricsGathered(h)
	var complete func()
	if released {
		complete = s.waiting[h]
		delete(s.waiting, h)
	}
	s.mu.Unlock()

	if err != nil {
		s.signalled(h, r, "metrics", err)
	} else if complete != nil {
		complete()
	}
}

// OnCompleted implements Delegate.
func (s *Session) OnCompleted(h Handle, err error) {
	r := s.lookup(h)
	s.handlers.run(TaskCompleted, r)
	if r != nil {
		r.didReportTask(h)
	}

	s.mu.Lock()
	released, rerr := s.registry.Completed(h)
	if rerr == nil && !released {
		s.waiting[h] = func() { r.didCompleteTask(h, err) }
	}
	s.mu.Unlock()

	switch {
	case rerr != nil:
		s.signalled(h, r, "completion", rerr)
	case released && r != nil:
		r.didCompleteTask(h, err)
	}
}

// OnInvalidated implements Delegate.
func (s *Session) OnInvalidated(err error) {
	s.handlers.run(SessionInvalidated, nil)
	s.Invalidate(err)
}
