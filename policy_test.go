// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectHandlers(t *testing.T) {
	next := &http.Request{}
	assert.Same(t, next, FollowRedirects().Redirect(nil, nil, next))
	assert.Nil(t, DoNotFollowRedirects().Redirect(nil, nil, next))
}

func TestCacheNothing(t *testing.T) {
	assert.Nil(t, CacheNothing().CacheResponse(nil, &CachedResponse{Key: "k"}))
}

func TestAcceptStatus(t *testing.T) {
	v := AcceptStatus(200, 204)
	assert.NoError(t, v(&http.Response{StatusCode: 200}, nil))
	assert.NoError(t, v(&http.Response{StatusCode: 204}, nil))
	err := v(&http.Response{StatusCode: 201}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 201, se.StatusCode)
	assert.EqualError(t, err, "sessionx: unacceptable status code 201")
	assert.ErrorIs(t, v(nil, nil), errNoResponse)
}

func TestAcceptStatusRange(t *testing.T) {
	assert.PanicsWithValue(t, "sessionx: invalid status range", func() {
		AcceptStatusRange(300, 200)
	})
	v := AcceptStatusRange(200, 299)
	testCases := []struct {
		status int
		ok     bool
	}{
		{199, false},
		{200, true},
		{250, true},
		{299, true},
		{300, false},
	}
	for _, testCase := range testCases {
		err := v(&http.Response{StatusCode: testCase.status}, nil)
		if testCase.ok {
			assert.NoError(t, err, "status %d", testCase.status)
		} else {
			assert.Error(t, err, "status %d", testCase.status)
		}
	}
	assert.ErrorIs(t, v(nil, nil), errNoResponse)
}

func TestOptions(t *testing.T) {
	t.Run("nil panics", func(t *testing.T) {
		assert.PanicsWithValue(t, "sessionx: nil interceptor", func() { WithInterceptor(nil) })
		assert.PanicsWithValue(t, "sessionx: nil redirect handler", func() { WithRedirectHandler(nil) })
		assert.PanicsWithValue(t, "sessionx: nil cached response handler", func() { WithCachedResponseHandler(nil) })
		assert.PanicsWithValue(t, "sessionx: nil destination", func() { WithDestination(nil) })
		assert.PanicsWithValue(t, "sessionx: nil validator", func() { WithValidator(nil) })
	})
	t.Run("applied", func(t *testing.T) {
		var o options
		for _, opt := range []Option{
			WithRedirectHandler(FollowRedirects()),
			WithCachedResponseHandler(CacheNothing()),
			WithCredential("user", "pass"),
			WithDestination(DefaultDestination),
			WithValidator(AcceptStatus(200)),
		} {
			opt(&o)
		}
		assert.NotNil(t, o.redirect)
		assert.NotNil(t, o.cache)
		assert.Equal(t, &Credential{Username: "user", Password: "pass"}, o.credential)
		assert.NotNil(t, o.destination)
		assert.NotNil(t, o.validator)
		assert.Nil(t, o.interceptor)
	})
}

func TestTransportEnums(t *testing.T) {
	assert.Equal(t, "ServerTrust", ServerTrustChallenge.String())
	assert.Equal(t, "Credential", CredentialChallenge.String())
	assert.Equal(t, "ChallengeKind(9)", ChallengeKind(9).String())
	assert.Equal(t, "PerformDefaultHandling", PerformDefaultHandling.String())
	assert.Equal(t, "RejectProtectionSpace", RejectProtectionSpace.String())
	assert.Equal(t, "Disposition(-1)", Disposition(-1).String())
}

func TestState(t *testing.T) {
	assert.Equal(t, "Initialized", Initialized.String())
	assert.Equal(t, "RetryScheduled", RetryScheduled.String())
	assert.Equal(t, "Cancelled", Cancelled.String())
	assert.Equal(t, "State(42)", State(42).String())
	for _, s := range []State{Initialized, Adapting, Executing, Completing, RetryScheduled} {
		assert.False(t, s.Terminal(), s.String())
	}
	assert.True(t, Finished.Terminal())
	assert.True(t, Cancelled.Terminal())
}
