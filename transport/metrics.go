// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"crypto/tls"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/gogama/sessionx/request"
)

// A recorder gathers the timing of one task. Trace hooks may run on
// other goroutines, so every access holds mu.
type recorder struct {
	mu           sync.Mutex
	m            request.Metrics
	dnsStart     time.Time
	connectStart time.Time
	tlsStart     time.Time
}

func newRecorder(start time.Time) *recorder {
	return &recorder{m: request.Metrics{Start: start}}
}

func (r *recorder) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			r.mu.Lock()
			r.dnsStart = time.Now()
			r.mu.Unlock()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			r.mu.Lock()
			r.m.DNS += time.Since(r.dnsStart)
			r.mu.Unlock()
		},
		ConnectStart: func(string, string) {
			r.mu.Lock()
			r.connectStart = time.Now()
			r.mu.Unlock()
		},
		ConnectDone: func(string, string, error) {
			r.mu.Lock()
			r.m.Connect += time.Since(r.connectStart)
			r.mu.Unlock()
		},
		TLSHandshakeStart: func() {
			r.mu.Lock()
			r.tlsStart = time.Now()
			r.mu.Unlock()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			r.mu.Lock()
			r.m.TLS += time.Since(r.tlsStart)
			r.mu.Unlock()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			r.mu.Lock()
			r.m.Reused = r.m.Reused || info.Reused
			r.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			r.mu.Lock()
			if r.m.FirstByte == 0 {
				r.m.FirstByte = time.Since(r.m.Start)
			}
			r.mu.Unlock()
		},
	}
}

func (r *recorder) redirected() {
	r.mu.Lock()
	r.m.Redirects++
	r.mu.Unlock()
}

func (r *recorder) sent(n int64) {
	r.mu.Lock()
	r.m.BytesSent += n
	r.mu.Unlock()
}

func (r *recorder) received(n int64) {
	r.mu.Lock()
	r.m.BytesReceived += n
	r.mu.Unlock()
}

// end stamps the end time and returns a copy of the metrics.
func (r *recorder) end() *request.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m.End = time.Now()
	m := r.m
	return &m
}
