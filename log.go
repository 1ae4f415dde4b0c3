// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"context"
	"log/slog"
)

// LogHandler returns a handler that logs every event it handles to
// logger. The event name becomes the message and the event's level the
// record level. Records for a request carry its identifier, attempt,
// state, and current task handle.
//
// Install it for all events with PushBackAll:
//
//	handlers := &sessionx.HandlerGroup{}
//	handlers.PushBackAll(sessionx.LogHandler(logger))
func LogHandler(logger *slog.Logger) Handler {
	if logger == nil {
		panic("sessionx: nil logger")
	}
	return &logHandler{logger: logger}
}

type logHandler struct {
	logger *slog.Logger
}

func (h *logHandler) Handle(evt Event, r *Request) {
	ctx := context.Background()
	if !h.logger.Enabled(ctx, evt.Level()) {
		return
	}
	if r == nil {
		h.logger.LogAttrs(ctx, evt.Level(), evt.Name())
		return
	}

	r.mu.Lock()
	attempt, state, handle, attached := r.exec.Attempt, r.state, r.handle, r.attached
	r.mu.Unlock()

	attrs := make([]slog.Attr, 0, 4)
	attrs = append(attrs,
		slog.String("request_id", r.id.String()),
		slog.Int("attempt", attempt),
		slog.String("state", state.String()),
	)
	if attached {
		attrs = append(attrs, slog.Uint64("handle", uint64(handle)))
	}
	h.logger.LogAttrs(ctx, evt.Level(), evt.Name(), attrs...)
}
