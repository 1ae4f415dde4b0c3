// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerGroup(t *testing.T) {
	var evts []string
	var reqs []*Request
	h1 := &testHandler{seq: 1, evts: &evts, reqs: &reqs}
	h2 := &testHandler{seq: 2, evts: &evts, reqs: &reqs}
	g := &HandlerGroup{}
	t.Run("PushBack", func(t *testing.T) {
		assert.PanicsWithValue(t, "sessionx: nil handler", func() { g.PushBack(RequestSubmitted, nil) })
		assert.PanicsWithValue(t, "sessionx: invalid event", func() { g.PushBack(Event(123), h1) })
		g.PushBack(RequestSubmitted, h1)
		g.PushBack(RequestSubmitted, h2)
		g.PushBack(TaskCompleted, h1)
	})
	t.Run("run", func(t *testing.T) {
		r1 := &Request{}
		r2 := &Request{}
		g.run(RetryDecided, r1)
		assert.Empty(t, evts)
		g.run(RequestSubmitted, r1)
		assert.Equal(t, []string{"1.RequestSubmitted", "2.RequestSubmitted"}, evts)
		assert.Equal(t, []*Request{r1, r1}, reqs)
		evts, reqs = evts[:0], reqs[:0]
		g.run(TaskCompleted, r2)
		assert.Equal(t, []string{"1.TaskCompleted"}, evts)
		assert.Equal(t, []*Request{r2}, reqs)
	})
	t.Run("nil group", func(t *testing.T) {
		var nilGroup *HandlerGroup
		assert.NotPanics(t, func() { nilGroup.run(RequestSubmitted, nil) })
	})
	t.Run("PushBackAll", func(t *testing.T) {
		var count int
		all := &HandlerGroup{}
		all.PushBackAll(HandlerFunc(func(Event, *Request) { count++ }))
		for _, evt := range Events() {
			all.run(evt, nil)
		}
		assert.Equal(t, numEvents, count)
	})
}

type testHandler struct {
	seq  int
	evts *[]string
	reqs *[]*Request
}

func (h *testHandler) Handle(evt Event, r *Request) {
	*h.evts = append(*h.evts, fmt.Sprintf("%d.%s", h.seq, evt))
	*h.reqs = append(*h.reqs, r)
}

func TestHandlerFunc(t *testing.T) {
	var gotEvt Event
	var gotReq *Request
	h := HandlerFunc(func(evt Event, r *Request) {
		gotEvt = evt
		gotReq = r
	})
	r := &Request{}
	h.Handle(DataReceived, r)

	assert.Equal(t, DataReceived, gotEvt)
	assert.Same(t, r, gotReq)
}
