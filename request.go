// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/request"
	"github.com/google/uuid"
)

// A State is a stage in the lifecycle of a Request.
type State int

const (
	// Initialized is the state of a request that has been created but
	// whose first attempt has not begun.
	Initialized State = iota
	// Adapting means the interceptor chain is adapting the request for
	// an attempt.
	Adapting
	// Executing means a transport task is running the attempt.
	Executing
	// Completing means the attempt ended and its outcome is being
	// evaluated.
	Completing
	// RetryScheduled means the attempt failed and another attempt will
	// follow, possibly after a delay.
	RetryScheduled
	// Finished is the terminal state of a request that ran to an end,
	// successfully or not.
	Finished
	// Cancelled is the terminal state of a request that was cancelled.
	Cancelled
)

var stateNames = []string{"Initialized", "Adapting", "Executing", "Completing", "RetryScheduled", "Finished", "Cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Finished or Cancelled.
func (s State) Terminal() bool {
	return s == Finished || s == Cancelled
}

// errDetached is returned by an attempt that ended because the request
// left the attempt's state from under it, which only cancellation does.
var errDetached = errors.New("sessionx: attempt detached")

// errNoResponse is returned by the built-in validators when a
// successful attempt delivered no response.
var errNoResponse = errors.New("sessionx: no response")

// A Request is one plan submitted to a Session. It runs its attempts on
// its own goroutine until it reaches a terminal state.
//
// All methods are safe for concurrent use.
type Request struct {
	id      uuid.UUID
	session *Session
	plan    *request.Plan
	opts    options
	chain   *interceptor.Chain
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	// completions carries the outcome of the attempt to the run loop.
	// At most one value is sent per attempt.
	completions chan error

	mu       sync.Mutex
	state    State
	exec     request.Execution
	handle   Handle
	attached bool
	earlyErr error
	// reported is set once the transport reports completion of the
	// current task, even if the session holds it back for metrics.
	reported bool
}

func newRequest(s *Session, p *request.Plan, o options) *Request {
	ctx, cancel := context.WithCancelCause(p.Context())
	r := &Request{
		id:          uuid.Must(uuid.NewV7()),
		session:     s,
		plan:        p,
		opts:        o,
		chain:       s.chain,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		completions: make(chan error, 1),
	}
	if o.interceptor != nil {
		r.chain = interceptor.NewChain(o.interceptor, s.chain)
	}
	r.logger = s.logger.With("request_id", r.id.String())
	r.exec.ID = r.id
	r.exec.Plan = p
	r.exec.Start = time.Now()
	return r
}

// ID returns the identifier assigned to the request at submission.
func (r *Request) ID() uuid.UUID {
	return r.id
}

// Plan returns the plan the request executes.
func (r *Request) Plan() *request.Plan {
	return r.plan
}

// State returns the current state of the request.
func (r *Request) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Execution returns a snapshot of the request's execution.
func (r *Request) Execution() *request.Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.exec
	return &e
}

// UploadProgress returns the bytes sent in the current attempt.
func (r *Request) UploadProgress() request.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exec.Upload
}

// DownloadProgress returns the bytes received in the current attempt of
// a Download plan.
func (r *Request) DownloadProgress() request.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exec.Download
}

// Done returns a channel that is closed when the request reaches a
// terminal state.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait waits until the request reaches a terminal state or ctx ends.
// Once the request has ended, Wait returns the final execution and its
// error, which is nil on success. If ctx ends first, Wait returns a nil
// execution and the context's error, and the request carries on.
func (r *Request) Wait(ctx context.Context) (*request.Execution, error) {
	select {
	case <-r.done:
		e := r.Execution()
		return e, e.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel cancels the request. The request ends in the Cancelled state
// with a *request.CancelledError, unless it already ended. Calling
// Cancel more than once has no further effect.
func (r *Request) Cancel() {
	r.abort(nil)
}

func (r *Request) run() {
	for {
		err := r.attempt()
		if r.stopped() {
			r.abort(context.Cause(r.ctx))
			return
		}
		if err == nil {
			r.finish(nil)
			return
		}
		if request.KindOf(err) == request.KindConsistencyViolation {
			r.logger.Error("consistency violation", "error", err)
			r.finish(err)
			return
		}

		r.mu.Lock()
		r.exec.Err = err
		snapshot := r.exec
		r.mu.Unlock()
		d := r.chain.Retry(r.ctx, &snapshot, err)
		r.mu.Lock()
		r.exec.CopyValues(&snapshot)
		r.mu.Unlock()
		if r.stopped() {
			r.abort(context.Cause(r.ctx))
			return
		}

		switch d.Action {
		case interceptor.ActionRetry, interceptor.ActionRetryWithDelay:
			if !r.transition(RetryScheduled) {
				return
			}
			r.logger.Debug("retry scheduled", "attempt", snapshot.Attempt, "delay", d.Delay, "error", err)
			r.session.handlers.run(RetryDecided, r)
			if !r.sleep(d.Delay) {
				r.abort(context.Cause(r.ctx))
				return
			}
			r.mu.Lock()
			r.exec.Attempt++
			r.mu.Unlock()
		case interceptor.ActionDoNotRetryWithError:
			r.finish(&request.Error{Kind: request.KindRetryVetoed, Err: d.Err})
			return
		default:
			r.finish(err)
			return
		}
	}
}

// attempt runs one attempt and returns its outcome. The caller checks
// for cancellation before interpreting the result.
func (r *Request) attempt() error {
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return errDetached
	}
	previous := r.exec
	r.exec.Reset()
	r.state = Adapting
	r.earlyErr = nil
	r.mu.Unlock()

	d := r.session.timeout.Timeout(&previous)
	ctx, cancel := r.ctx, context.CancelFunc(func() {})
	if d > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, d)
	}
	defer cancel()

	r.logger.Debug("attempt started", "attempt", previous.Attempt, "timeout", d)
	r.session.handlers.run(AttemptStarted, r)

	req := r.plan.ToRequest(ctx)
	if r.plan.Kind == request.Download && r.plan.ResumeOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", r.plan.ResumeOffset))
	}
	r.mu.Lock()
	snapshot := r.exec
	r.mu.Unlock()
	req, err := r.chain.Adapt(ctx, req, &snapshot)
	r.mu.Lock()
	r.exec.CopyValues(&snapshot)
	if err == nil {
		r.exec.Request = req
	}
	r.mu.Unlock()
	if err != nil {
		return &request.Error{Kind: request.KindAdaptationFailed, Err: err}
	}
	if r.stopped() {
		return errDetached
	}

	t := r.session.transport
	h, err := t.NewTask(ctx, req, r.plan.Kind, r.session)
	if err != nil {
		return &request.Error{Kind: request.KindTransportFailed, Err: err}
	}
	if err = r.attach(h); err != nil {
		return err
	}
	r.logger.Debug("task started", "attempt", previous.Attempt, "handle", uint64(h))
	t.Resume(h)

	select {
	case err = <-r.completions:
		return r.settle(err)
	case <-ctx.Done():
	}
	if r.ctx.Err() != nil {
		return errDetached
	}
	switch r.expire(h) {
	case Completing:
		select {
		case err = <-r.completions:
			return r.settle(err)
		case <-r.ctx.Done():
			return errDetached
		}
	case Executing:
		t.Cancel(h)
		r.logger.Debug("attempt timed out", "attempt", previous.Attempt, "handle", uint64(h), "timeout", d)
		return &request.Error{Kind: request.KindTransportFailed, Err: context.DeadlineExceeded}
	default:
		return errDetached
	}
}

// attach associates the request with the task h, provided the request
// is still adapting. Otherwise the task is cancelled unstarted.
func (r *Request) attach(h Handle) error {
	r.mu.Lock()
	if r.state != Adapting {
		r.mu.Unlock()
		r.session.transport.Cancel(h)
		return errDetached
	}
	if err := r.session.registry.Associate(h, r); err != nil {
		r.mu.Unlock()
		r.session.transport.Cancel(h)
		return &request.Error{Kind: request.KindConsistencyViolation, Err: err}
	}
	r.state = Executing
	r.handle = h
	r.attached = true
	r.reported = false
	r.mu.Unlock()
	return nil
}

// expire claims the attempt on task h for its deadline. It returns
// Executing if the claim succeeded, and otherwise the state that
// prevented it. A task whose transport already reported completion
// cannot be claimed; expire returns Completing and the attempt belongs
// to that completion once its metrics arrive.
func (r *Request) expire(h Handle) State {
	r.mu.Lock()
	state := r.state
	if state != Executing || r.handle != h {
		r.mu.Unlock()
		return state
	}
	if r.reported {
		r.mu.Unlock()
		return Completing
	}
	r.state = Completing
	r.attached = false
	r.exec.AttemptTimeouts++
	r.mu.Unlock()
	r.session.release(h)
	return Executing
}

// settle turns the outcome of a completed task into the outcome of the
// attempt.
func (r *Request) settle(err error) error {
	if err != nil {
		if request.KindOf(err) == request.KindTransportFailed && errors.Is(err, context.DeadlineExceeded) && r.ctx.Err() == nil {
			r.mu.Lock()
			r.exec.AttemptTimeouts++
			r.mu.Unlock()
		}
		return err
	}
	v := r.opts.validator
	if v == nil {
		return nil
	}
	r.mu.Lock()
	resp, body := r.exec.Response, r.exec.Body
	r.mu.Unlock()
	if err = v(resp, body); err != nil {
		return &request.Error{Kind: request.KindValidationFailed, Err: err}
	}
	return nil
}

func (r *Request) sleep(d time.Duration) bool {
	if d <= 0 {
		return r.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Request) stopped() bool {
	if r.ctx.Err() != nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Terminal()
}

// transition moves a live request to state. It returns false if the
// request already ended.
func (r *Request) transition(state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = state
	return true
}

// finish moves the request to Finished with err as its terminal error.
func (r *Request) finish(err error) {
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return
	}
	r.state = Finished
	r.exec.Err = err
	r.exec.End = time.Now()
	attempt := r.exec.Attempt
	r.mu.Unlock()

	r.cancel(nil)
	r.session.forget(r)
	r.logger.Info("request finished", "attempt", attempt, "error", err)
	r.session.handlers.run(RequestFinished, r)
	close(r.done)
}

// abort moves the request to Cancelled, cancelling the task of the
// current attempt. It does nothing if the request already ended.
func (r *Request) abort(cause error) bool {
	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return false
	}
	err := &request.CancelledError{Cause: cause}
	r.state = Cancelled
	r.exec.Err = err
	r.exec.End = time.Now()
	h, attached := r.handle, r.attached
	r.attached = false
	r.mu.Unlock()

	if attached {
		r.session.release(h)
		r.session.transport.Cancel(h)
	}
	r.cancel(err)
	r.session.forget(r)
	r.logger.Info("request cancelled", "cause", cause)
	r.session.handlers.run(RequestCancelled, r)
	close(r.done)
	return true
}

// current reports whether h is the task of the executing attempt. The
// caller holds r.mu.
func (r *Request) current(h Handle) bool {
	return r.state == Executing && r.handle == h
}

// didReportTask records that the transport finished task h, so its
// deadline can no longer claim the attempt.
func (r *Request) didReportTask(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.reported = true
	}
}

// didCompleteTask claims the attempt for the completion of task h and
// hands its outcome to the run loop. Completions of other tasks, and
// completions arriving after the attempt was claimed, are ignored.
func (r *Request) didCompleteTask(h Handle, err error) {
	r.mu.Lock()
	if !r.current(h) {
		r.mu.Unlock()
		return
	}
	r.state = Completing
	r.attached = false
	switch {
	case request.KindOf(err) == request.KindConsistencyViolation:
	case r.earlyErr != nil:
		err = r.earlyErr
	case err != nil:
		err = &request.Error{Kind: request.KindTransportFailed, Err: err}
	}
	r.mu.Unlock()
	r.completions <- err
}

func (r *Request) didSendBodyData(h Handle, totalSent, totalExpected int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Upload = request.Progress{Completed: totalSent, Total: totalExpected}
	}
}

func (r *Request) didReceiveResponse(h Handle, resp *http.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Response = resp
	}
}

func (r *Request) didReceiveData(h Handle, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Body = append(r.exec.Body, data...)
	}
}

func (r *Request) didResumeDownload(h Handle, offset, expectedTotal int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Download = request.Progress{Completed: offset, Total: expectedTotal}
	}
}

func (r *Request) didWriteData(h Handle, totalWritten, totalExpected int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Download = request.Progress{Completed: totalWritten, Total: totalExpected}
	}
}

func (r *Request) didGatherMetrics(h Handle, m *request.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current(h) {
		r.exec.Metrics = m
	}
}

// didFinishDownload moves the downloaded file into place. A placement
// failure becomes the outcome of the attempt, whatever the transport
// reports on completion.
func (r *Request) didFinishDownload(h Handle, tempPath string) {
	r.mu.Lock()
	if !r.current(h) {
		r.mu.Unlock()
		return
	}
	resp := r.exec.Response
	r.mu.Unlock()

	dst := r.opts.destination
	if dst == nil {
		dst = r.session.destination
	}
	dest, err := place(tempPath, resp, dst)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.current(h) {
		return
	}
	if err != nil {
		r.earlyErr = &request.Error{Kind: request.KindFilePlacementFailed, Err: err, Source: tempPath, Destination: dest}
		return
	}
	r.exec.Destination = dest
}

func (r *Request) resolveChallenge(h Handle, c *Challenge) (Disposition, *Credential) {
	r.mu.Lock()
	ok := r.current(h)
	r.mu.Unlock()
	if !ok {
		return CancelChallenge, nil
	}

	switch c.Kind {
	case ServerTrustChallenge:
		m := r.session.trust
		if m == nil {
			return PerformDefaultHandling, nil
		}
		ev, err := m.Evaluator(c.Host)
		if err == nil && ev == nil {
			return PerformDefaultHandling, nil
		}
		if err == nil {
			err = ev.Evaluate(c.TLS, c.Host)
		}
		if err == nil {
			return UseCredential, nil
		}
		r.mu.Lock()
		if r.current(h) {
			r.earlyErr = &request.Error{Kind: request.KindTrustEvaluationFailed, Err: err}
		}
		r.mu.Unlock()
		r.logger.Debug("server trust rejected", "host", c.Host, "error", err)
		return CancelChallenge, nil
	case CredentialChallenge:
		if c.PreviousFailureCount > 0 {
			return RejectProtectionSpace, nil
		}
		if cred := r.opts.credential; cred != nil {
			cp := *cred
			return UseCredential, &cp
		}
		if p := r.session.credentials; p != nil {
			if cred := p.Credential(r, c); cred != nil {
				return UseCredential, cred
			}
		}
		return PerformDefaultHandling, nil
	default:
		return PerformDefaultHandling, nil
	}
}

func (r *Request) resolveRedirect(resp *http.Response, next *http.Request) *http.Request {
	if h := r.opts.redirect; h != nil {
		return h.Redirect(r, resp, next)
	}
	if h := r.session.redirect; h != nil {
		return h.Redirect(r, resp, next)
	}
	return next
}

func (r *Request) resolveCache(proposed *CachedResponse) *CachedResponse {
	if h := r.opts.cache; h != nil {
		return h.CacheResponse(r, proposed)
	}
	if h := r.session.cache; h != nil {
		return h.CacheResponse(r, proposed)
	}
	return proposed
}
