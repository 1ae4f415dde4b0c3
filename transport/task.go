// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/sessionx"
	"github.com/gogama/sessionx/request"
)

const (
	chunkSize = 32 << 10

	// maxAuthAttempts bounds the credential challenges answered within
	// one task.
	maxAuthAttempts = 5
)

type task struct {
	transport *HTTP
	handle    sessionx.Handle
	req       *http.Request
	kind      request.Kind
	delegate  sessionx.Delegate
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	rec       *recorder
}

func (k *task) run() {
	defer k.transport.done(k.handle)
	defer k.cancel()

	k.rec = newRecorder(time.Now())
	err := k.execute()
	m := k.rec.end()
	k.delegate.OnCompleted(k.handle, err)
	if k.transport.CollectMetrics {
		k.delegate.OnMetricsGathered(k.handle, m)
	}
}

func (k *task) execute() error {
	key := CacheKey(k.req)
	if c := k.transport.Cache; c != nil && k.kind != request.Download && k.req.Method == http.MethodGet {
		if e, ok := c.Load(key); ok {
			k.serveCached(e)
			return nil
		}
	}

	resp, err := k.send()
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	view := *resp
	view.Body = http.NoBody
	k.delegate.OnResponse(k.handle, &view)
	if k.kind == request.Download {
		return k.download(resp)
	}
	return k.receive(resp, &view, key)
}

func (k *task) serveCached(e *sessionx.CachedResponse) {
	view := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	if e.Response != nil {
		cp := *e.Response
		view = &cp
	}
	view.Body = http.NoBody
	k.delegate.OnResponse(k.handle, view)
	if len(e.Body) > 0 {
		k.delegate.OnDataReceived(k.handle, e.Body)
	}
}

// send sends the request, following redirects, and answers Basic
// authentication challenges through the delegate.
func (k *task) send() (*http.Response, error) {
	client := &http.Client{
		Transport:     k.transport.rt,
		Jar:           k.transport.Jar,
		CheckRedirect: k.checkRedirect,
	}
	req := k.req.WithContext(httptrace.WithClientTrace(k.ctx, k.rec.trace()))
	for failures := 0; ; failures++ {
		k.countUpload(req)
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized || failures >= maxAuthAttempts {
			return resp, nil
		}
		scheme, realm, ok := basicChallenge(resp.Header.Get("WWW-Authenticate"))
		if !ok {
			return resp, nil
		}
		disposition, cred := k.delegate.OnChallenge(k.handle, &sessionx.Challenge{
			Kind:                 sessionx.CredentialChallenge,
			Host:                 req.URL.Hostname(),
			Scheme:               scheme,
			Realm:                realm,
			PreviousFailureCount: failures,
		})
		if disposition == sessionx.CancelChallenge {
			discard(resp)
			return nil, ErrChallengeCancelled
		}
		if disposition != sessionx.UseCredential || cred == nil {
			return resp, nil
		}
		next, err := replay(req)
		if err != nil {
			return resp, nil
		}
		discard(resp)
		next.SetBasicAuth(cred.Username, cred.Password)
		req = next
	}
}

func (k *task) checkRedirect(next *http.Request, via []*http.Request) error {
	if limit := k.transport.maxRedirects(); len(via) >= limit {
		return fmt.Errorf("sessionx/transport: stopped after %d redirects", limit)
	}
	alt := k.delegate.OnRedirect(k.handle, next.Response, next)
	if alt == nil {
		return http.ErrUseLastResponse
	}
	if alt != next {
		next.URL = alt.URL
		next.Host = alt.Host
		next.Header = alt.Header
	}
	k.rec.redirected()
	return nil
}

func (k *task) countUpload(req *http.Request) {
	if req.Body == nil || req.Body == http.NoBody {
		return
	}
	total := req.ContentLength
	if total <= 0 {
		total = -1
	}
	req.Body = &progressReader{
		rc:    req.Body,
		total: total,
		report: func(n, sent, total int64) {
			k.rec.sent(n)
			k.delegate.OnUploadProgress(k.handle, n, sent, total)
		},
	}
}

func (k *task) receive(resp *http.Response, view *http.Response, key string) error {
	propose := k.transport.Cache != nil && cacheable(k.req, resp.StatusCode)
	var body []byte
	buf := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			k.rec.received(int64(n))
			k.delegate.OnDataReceived(k.handle, buf[:n])
			if propose {
				body = append(body, buf[:n]...)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	if propose {
		proposed := &sessionx.CachedResponse{Key: key, Response: view, Body: body, StoredAt: time.Now()}
		if e := k.delegate.OnCachePolicyQuery(k.handle, proposed); e != nil {
			k.transport.Cache.Store(e)
		}
	}
	return nil
}

// download writes the body to a temporary file and hands it to the
// delegate. Whatever the delegate leaves at the temporary path is
// removed.
func (k *task) download(resp *http.Response) error {
	offset, expected := int64(0), resp.ContentLength
	if resp.StatusCode == http.StatusPartialContent {
		if start, size, ok := contentRange(resp.Header.Get("Content-Range")); ok {
			offset, expected = start, size
			k.delegate.OnDownloadResumed(k.handle, offset, expected)
		}
	}

	f, err := os.CreateTemp(k.transport.TempDir, "sessionx-download-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	written := offset
	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, err = f.Write(buf[:n]); err != nil {
				_ = f.Close()
				return err
			}
			written += int64(n)
			k.rec.received(int64(n))
			k.delegate.OnDownloadProgress(k.handle, int64(n), written, expected)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			_ = f.Close()
			return rerr
		}
	}
	if err = f.Close(); err != nil {
		return err
	}
	k.delegate.OnDownloadFinished(k.handle, f.Name())
	return nil
}

type progressReader struct {
	rc     io.ReadCloser
	total  int64
	sent   int64
	report func(n, sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.rc.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(int64(n), p.sent, p.total)
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.rc.Close()
}

// replay returns a copy of req whose body can be sent again.
func replay(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("sessionx/transport: body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, chunkSize))
	_ = resp.Body.Close()
}

// basicChallenge parses a WWW-Authenticate header value of the form
// `Basic realm="..."`.
func basicChallenge(v string) (scheme, realm string, ok bool) {
	scheme, params, _ := strings.Cut(strings.TrimSpace(v), " ")
	if !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}
	for _, p := range strings.Split(params, ",") {
		name, value, found := strings.Cut(strings.TrimSpace(p), "=")
		if found && strings.EqualFold(name, "realm") {
			realm = strings.Trim(value, `"`)
		}
	}
	return "Basic", realm, true
}

// contentRange parses a Content-Range header value of the form
// "bytes start-end/size", where size may be "*".
func contentRange(v string) (start, size int64, ok bool) {
	rest, found := strings.CutPrefix(v, "bytes ")
	if !found {
		return 0, 0, false
	}
	span, total, found := strings.Cut(rest, "/")
	if !found {
		return 0, 0, false
	}
	first, _, found := strings.Cut(span, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if total == "*" {
		return start, -1, true
	}
	size, err = strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return start, size, true
}
