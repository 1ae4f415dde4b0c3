// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"fmt"
	"log/slog"
)

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Session to observe requests
// and the transport events routed to them.
//
// The first group of events mirrors the transport's entry points into
// the session, and fires before the session acts on the event. The
// second group marks request lifecycle transitions.
type Event int

const (
	// ChallengeReceived fires when the transport reports an
	// authentication or server trust challenge.
	ChallengeReceived Event = iota
	// UploadProgressed fires when the transport reports bytes sent.
	UploadProgressed
	// RedirectProposed fires when the transport proposes to follow a
	// redirect.
	RedirectProposed
	// CachePolicyQueried fires when the transport asks whether a
	// response may be cached.
	CachePolicyQueried
	// ResponseReceived fires when the transport has received the
	// response status and headers.
	ResponseReceived
	// DataReceived fires for each chunk of response data.
	DataReceived
	// DownloadResumed fires when a download continues from an offset.
	DownloadResumed
	// DownloadProgressed fires when the transport reports bytes
	// written to a download's temporary file.
	DownloadProgressed
	// DownloadFinished fires when the transport has finished writing a
	// download's temporary file.
	DownloadFinished
	// MetricsGathered fires when the transport reports the metrics of
	// an attempt.
	MetricsGathered
	// TaskCompleted fires when the transport reports that an attempt
	// completed, successfully or not.
	TaskCompleted
	// SessionInvalidated fires when the transport invalidates the
	// session. The request passed to handlers is nil.
	SessionInvalidated

	// RequestSubmitted fires once, when a request is submitted.
	RequestSubmitted
	// AttemptStarted fires before the interceptor chain adapts each
	// attempt.
	AttemptStarted
	// RetryDecided fires when the interceptor chain decided to retry
	// a failed attempt, before any retry delay.
	RetryDecided
	// RequestFinished fires once, when a request reaches the Finished
	// state, successfully or not.
	RequestFinished
	// RequestCancelled fires once, when a request reaches the
	// Cancelled state.
	RequestCancelled

	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"ChallengeReceived",
	"UploadProgressed",
	"RedirectProposed",
	"CachePolicyQueried",
	"ResponseReceived",
	"DataReceived",
	"DownloadResumed",
	"DownloadProgressed",
	"DownloadFinished",
	"MetricsGathered",
	"TaskCompleted",
	"SessionInvalidated",
	"RequestSubmitted",
	"AttemptStarted",
	"RetryDecided",
	"RequestFinished",
	"RequestCancelled",
}

// Events returns a slice containing all events, transport events first
// and then lifecycle events.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}
	return evts
}

// Name returns the name of the event.
func (evt Event) Name() string {
	if evt < 0 || int(evt) >= numEvents {
		return fmt.Sprintf("Event(%d)", int(evt))
	}
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}

// Transport reports whether evt is one of the transport events.
func (evt Event) Transport() bool {
	return evt <= SessionInvalidated
}

// Level returns the log level LogHandler uses for evt: debug for the
// high-volume transport events, info for lifecycle events.
func (evt Event) Level() slog.Level {
	switch evt {
	case SessionInvalidated:
		return slog.LevelWarn
	case RequestSubmitted, RetryDecided, RequestFinished, RequestCancelled:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
