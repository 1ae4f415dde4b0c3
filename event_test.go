// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents(t *testing.T) {
	assert.Len(t, eventNames, numEvents)
	events := Events()
	assert.Len(t, events, numEvents)
	for i, evt := range events {
		assert.Equal(t, Event(i), evt)
		assert.Equal(t, eventNames[i], evt.Name())
		assert.Equal(t, evt.Name(), evt.String())
	}
}

func TestEvent_Name(t *testing.T) {
	assert.Equal(t, "ChallengeReceived", ChallengeReceived.Name())
	assert.Equal(t, "SessionInvalidated", SessionInvalidated.Name())
	assert.Equal(t, "RequestCancelled", RequestCancelled.Name())
	assert.Equal(t, "Event(99)", Event(99).Name())
}

func TestEvent_Transport(t *testing.T) {
	assert.True(t, ChallengeReceived.Transport())
	assert.True(t, TaskCompleted.Transport())
	assert.True(t, SessionInvalidated.Transport())
	assert.False(t, RequestSubmitted.Transport())
	assert.False(t, RequestFinished.Transport())
}

func TestEvent_Level(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, DataReceived.Level())
	assert.Equal(t, slog.LevelDebug, AttemptStarted.Level())
	assert.Equal(t, slog.LevelInfo, RetryDecided.Level())
	assert.Equal(t, slog.LevelInfo, RequestFinished.Level())
	assert.Equal(t, slog.LevelWarn, SessionInvalidated.Level())
}
