// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gogama/sessionx/interceptor"
	"github.com/gogama/sessionx/request"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTransport records the tasks a session creates and leaves it to
// the test to report their events.
type fakeTransport struct {
	mu         sync.Mutex
	next       Handle
	requests   map[Handle]*http.Request
	kinds      map[Handle]request.Kind
	cancelled  map[Handle]bool
	newTaskErr error
	resumed    chan Handle
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		requests:  make(map[Handle]*http.Request),
		kinds:     make(map[Handle]request.Kind),
		cancelled: make(map[Handle]bool),
		resumed:   make(chan Handle, 16),
	}
}

func (f *fakeTransport) NewTask(_ context.Context, req *http.Request, kind request.Kind, _ Delegate) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.newTaskErr != nil {
		return 0, f.newTaskErr
	}
	f.next++
	f.requests[f.next] = req
	f.kinds[f.next] = kind
	return f.next, nil
}

func (f *fakeTransport) Resume(h Handle) {
	f.resumed <- h
}

func (f *fakeTransport) Cancel(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled[h] = true
}

func (f *fakeTransport) request(h Handle) *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[h]
}

func (f *fakeTransport) wasCancelled(h Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled[h]
}

func (f *fakeTransport) tasks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int(f.next)
}

func awaitTask(t *testing.T, f *fakeTransport) Handle {
	t.Helper()
	select {
	case h := <-f.resumed:
		return h
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no task resumed")
		return 0
	}
}

func awaitEnd(t *testing.T, r *Request) (*request.Execution, error) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		require.FailNow(t, "request did not end", "state: %s", r.State())
	}
	return r.Wait(context.Background())
}

func newPlan(t *testing.T, method, url string) *request.Plan {
	t.Helper()
	p, err := request.NewPlan(method, url, nil)
	require.NoError(t, err)
	return p
}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Header: http.Header{}}
}

// eventRecorder records the events of a session in order.
type eventRecorder struct {
	mu   sync.Mutex
	evts []Event
}

func (rec *eventRecorder) Handle(evt Event, _ *Request) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.evts = append(rec.evts, evt)
}

func (rec *eventRecorder) events() []Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Event(nil), rec.evts...)
}

func (rec *eventRecorder) count(evt Event) int {
	n := 0
	for _, e := range rec.events() {
		if e == evt {
			n++
		}
	}
	return n
}

type mockRetrier struct {
	mock.Mock
}

func newMockRetrier(t *testing.T) *mockRetrier {
	m := &mockRetrier{}
	m.Test(t)
	return m
}

func (m *mockRetrier) Retry(ctx context.Context, e *request.Execution, err error) interceptor.Decision {
	args := m.Called(ctx, e, err)
	return args.Get(0).(interceptor.Decision)
}
