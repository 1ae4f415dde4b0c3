// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gogama/sessionx"
	"github.com/gogama/sessionx/request"
	"github.com/gogama/sessionx/trust"
)

var (
	// ErrClosed is returned by NewTask after Close.
	ErrClosed = errors.New("sessionx/transport: closed")
	// ErrTrustRejected is the error of a task whose server trust
	// challenge was not answered with UseCredential, or whose server
	// failed default verification.
	ErrTrustRejected = errors.New("sessionx/transport: server trust rejected")
	// ErrChallengeCancelled is the error of a task whose credential
	// challenge was cancelled.
	ErrChallengeCancelled = errors.New("sessionx/transport: challenge cancelled")
)

// DefaultMaxRedirects is the number of redirects a task follows when
// HTTP.MaxRedirects is zero.
const DefaultMaxRedirects = 10

// HTTP is a sessionx.Transport over net/http. The zero value is ready
// to use. Exported fields must not be changed after the first call to
// NewTask.
type HTTP struct {
	// RoundTripper sends individual HTTP requests. If nil, a clone of
	// http.DefaultTransport is used.
	RoundTripper http.RoundTripper

	// Jar is the cookie jar shared by all tasks. It may be nil.
	Jar http.CookieJar

	// DelegateTrust hands server certificate evaluation to the
	// delegate, once per new TLS connection, through a
	// ServerTrustChallenge. It only applies when RoundTripper is nil.
	DelegateTrust bool

	// RootCAs are the roots used when the delegate answers a server
	// trust challenge with PerformDefaultHandling. If nil, the system
	// roots are used.
	RootCAs *x509.CertPool

	// CollectMetrics makes every task report its metrics after its
	// completion. The session must be configured to expect them.
	CollectMetrics bool

	// Cache, if not nil, serves GET requests and stores the responses
	// the delegate approves.
	Cache *MemoryCache

	// TempDir is where Download tasks write their files. If empty,
	// os.TempDir() is used.
	TempDir string

	// MaxRedirects limits the redirects one task follows. If zero,
	// DefaultMaxRedirects applies.
	MaxRedirects int

	once sync.Once
	rt   http.RoundTripper

	mu        sync.Mutex
	next      sessionx.Handle
	tasks     map[sessionx.Handle]*task
	delegates map[sessionx.Delegate]struct{}
	closed    bool
}

type taskKey struct{}

// NewTask implements sessionx.Transport.
func (t *HTTP) NewTask(ctx context.Context, req *http.Request, kind request.Kind, d sessionx.Delegate) (sessionx.Handle, error) {
	if req == nil || req.URL == nil {
		return 0, errors.New("sessionx/transport: nil request URL")
	}
	if d == nil {
		panic("sessionx/transport: nil delegate")
	}
	t.once.Do(t.init)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	if t.tasks == nil {
		t.tasks = make(map[sessionx.Handle]*task)
		t.delegates = make(map[sessionx.Delegate]struct{})
	}
	t.next++
	k := &task{
		transport: t,
		handle:    t.next,
		req:       req,
		kind:      kind,
		delegate:  d,
	}
	k.ctx, k.cancel = context.WithCancel(context.WithValue(ctx, taskKey{}, k))
	t.tasks[k.handle] = k
	t.delegates[d] = struct{}{}
	return k.handle, nil
}

// Resume implements sessionx.Transport.
func (t *HTTP) Resume(h sessionx.Handle) {
	t.mu.Lock()
	k := t.tasks[h]
	if k == nil || k.started {
		t.mu.Unlock()
		return
	}
	k.started = true
	t.mu.Unlock()
	go k.run()
}

// Cancel implements sessionx.Transport. A task cancelled before it
// was resumed is discarded without reporting anything.
func (t *HTTP) Cancel(h sessionx.Handle) {
	t.mu.Lock()
	k := t.tasks[h]
	if k != nil && !k.started {
		delete(t.tasks, h)
	}
	t.mu.Unlock()
	if k != nil {
		k.cancel()
	}
}

// Close refuses new tasks, invalidates every delegate the transport
// has served, and then cancels every remaining task. It returns
// ErrClosed if the transport was already closed.
func (t *HTTP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	tasks := make([]*task, 0, len(t.tasks))
	for _, k := range t.tasks {
		tasks = append(tasks, k)
	}
	delegates := make([]sessionx.Delegate, 0, len(t.delegates))
	for d := range t.delegates {
		delegates = append(delegates, d)
	}
	t.mu.Unlock()

	for _, d := range delegates {
		d.OnInvalidated(nil)
	}
	for _, k := range tasks {
		k.cancel()
	}
	if ic, ok := t.rt.(interface{ CloseIdleConnections() }); ok {
		ic.CloseIdleConnections()
	}
	return nil
}

// Len returns the number of tasks that have not ended.
func (t *HTTP) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

func (t *HTTP) done(h sessionx.Handle) {
	t.mu.Lock()
	delete(t.tasks, h)
	t.mu.Unlock()
}

func (t *HTTP) maxRedirects() int {
	if t.MaxRedirects > 0 {
		return t.MaxRedirects
	}
	return DefaultMaxRedirects
}

func (t *HTTP) init() {
	if t.RoundTripper != nil {
		t.rt = t.RoundTripper
		return
	}
	rt := http.DefaultTransport.(*http.Transport).Clone()
	if t.DelegateTrust {
		rt.DialTLSContext = t.dialTLS
		rt.ForceAttemptHTTP2 = true
	}
	t.rt = rt
}

// dialTLS dials a TLS connection without verifying the server, then
// asks the delegate of the task that caused the dial whether to trust
// it.
func (t *HTTP) dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	var dialer net.Dialer
	raw, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	conn := tls.Client(raw, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
		NextProtos:         []string{"h2", "http/1.1"},
	})
	if err = conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	state := conn.ConnectionState()
	if err = t.evaluate(ctx, host, &state); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (t *HTTP) evaluate(ctx context.Context, host string, state *tls.ConnectionState) error {
	k, _ := ctx.Value(taskKey{}).(*task)
	disposition := sessionx.PerformDefaultHandling
	if k != nil {
		disposition, _ = k.delegate.OnChallenge(k.handle, &sessionx.Challenge{
			Kind: sessionx.ServerTrustChallenge,
			Host: host,
			TLS:  state,
		})
	}
	switch disposition {
	case sessionx.UseCredential:
		return nil
	case sessionx.PerformDefaultHandling:
		if err := trust.Default(t.RootCAs).Evaluate(state, host); err != nil {
			return fmt.Errorf("%w: %w", ErrTrustRejected, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrTrustRejected, disposition)
	}
}
