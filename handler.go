// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

// A HandlerGroup is a group of event handler chains which can be
// installed in a Session.
//
// A HandlerGroup must not be modified after the session using it is
// constructed.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("sessionx: nil handler")
	}
	if evt < 0 || int(evt) >= numEvents {
		panic("sessionx: invalid event")
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

// PushBackAll adds h to the back of the chain of every event type.
func (g *HandlerGroup) PushBackAll(h Handler) {
	for _, evt := range Events() {
		g.PushBack(evt, h)
	}
}

func (g *HandlerGroup) run(evt Event, r *Request) {
	if g == nil {
		return
	}
	i := int(evt)
	if i < len(g.handlers) {
		for _, h := range g.handlers[i] {
			h.Handle(evt, r)
		}
	}
}

// A Handler handles the occurrence of an event.
//
// Handlers run synchronously on the goroutine that raised the event:
// a transport goroutine for transport events, and the request's own
// goroutine for most lifecycle events. They must be safe for concurrent
// use, should return quickly, and must not call back into the session
// for the same request except through the Request's read-only
// accessors.
//
// The request is nil for SessionInvalidated, and for transport events
// whose handle no longer belongs to any request.
type Handler interface {
	Handle(evt Event, r *Request)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers.
type HandlerFunc func(Event, *Request)

// Handle calls f(evt, r).
func (f HandlerFunc) Handle(evt Event, r *Request) {
	f(evt, r)
}
