// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanWithContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")

	testCases := []struct {
		name   string
		method string
		url    string
		body   interface{}
		check  func(t *testing.T, p *Plan)
		err    string
	}{
		{
			name: "blank method means GET",
			url:  "https://foo.com",
			check: func(t *testing.T, p *Plan) {
				assert.Equal(t, "GET", p.Method)
				assert.Equal(t, "https://foo.com", p.URL.String())
				assert.Equal(t, "foo.com", p.Host)
				assert.Nil(t, p.Body)
				assert.NotNil(t, p.Header)
				assert.Equal(t, Data, p.Kind)
			},
		},
		{
			name:   "extension method",
			method: "Fake",
			url:    "http://baz.com",
			check: func(t *testing.T, p *Plan) {
				assert.Equal(t, "Fake", p.Method)
			},
		},
		{
			name:   "empty port removed",
			method: "GET",
			url:    "http://ham:",
			check: func(t *testing.T, p *Plan) {
				assert.Equal(t, "ham", p.Host)
				assert.Equal(t, "ham", p.URL.Host)
				u, err := url.Parse("http://ham:")
				require.NoError(t, err)
				assert.Equal(t, "ham:", u.Host, "url.Parse now strips the empty port; removeEmptyPort can go")
			},
		},
		{
			name:   "string body",
			method: "PUT",
			url:    "str",
			body:   "str",
			check: func(t *testing.T, p *Plan) {
				assert.Equal(t, []byte("str"), p.Body)
			},
		},
		{
			name:   "reader body",
			method: "POST",
			url:    "reader",
			body:   io.NopCloser(strings.NewReader("reader")),
			check: func(t *testing.T, p *Plan) {
				assert.Equal(t, []byte("reader"), p.Body)
			},
		},
		{
			name:   "invalid method",
			method: "\tGET",
			url:    "eggs",
			err:    `sessionx/request: invalid method "\tGET"`,
		},
		{
			name:   "invalid URL",
			method: "GET",
			url:    ":::",
			err:    `parse ":::": missing protocol scheme`,
		},
		{
			name:   "invalid body type",
			method: "POST",
			url:    "spam",
			body:   map[string]int{},
			err:    badBodyTypeMsg,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			p, err := NewPlanWithContext(ctx, testCase.method, testCase.url, testCase.body)
			if testCase.err != "" {
				assert.Nil(t, p)
				assert.EqualError(t, err, testCase.err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Same(t, ctx, p.Context())
			testCase.check(t, p)
		})
	}
	t.Run("nil context", func(t *testing.T) {
		p, err := NewPlanWithContext(nil, "GET", "foo", nil)
		assert.Nil(t, p)
		assert.EqualError(t, err, nilCtxMsg)
	})
}

func TestNewPlan(t *testing.T) {
	p, err := NewPlan("DELETE", "http://managemystuff.com/stuff/1", nil)
	require.NoError(t, err)
	assert.Equal(t, context.Background(), p.Context())
	assert.Equal(t, context.Background(), (&Plan{}).Context())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Data", Data.String())
	assert.Equal(t, "Upload", Upload.String())
	assert.Equal(t, "Download", Download.String())
	assert.Equal(t, "Kind(3)", Kind(3).String())
	assert.Equal(t, "Kind(-1)", Kind(-1).String())
}

func TestPlan_SetBasicAuth(t *testing.T) {
	p, err := NewPlan("", "http://superdoopersecure.com", nil)
	require.NoError(t, err)
	r, err := http.NewRequest("", "http://superdoopersecure.com", nil)
	require.NoError(t, err)

	for _, creds := range [][2]string{{"", ""}, {"patsy", "password"}} {
		p.SetBasicAuth(creds[0], creds[1])
		r.SetBasicAuth(creds[0], creds[1])
		assert.Equal(t, r.Header["Authorization"], p.Header["Authorization"])
	}
	assert.Equal(t, "Basic cGF0c3k6cGFzc3dvcmQ=", p.Header.Get("Authorization"))
}

func TestPlan_ToRequest(t *testing.T) {
	t.Run("method", func(t *testing.T) {
		p, err := NewPlan("HEAD", "test", nil)
		require.NoError(t, err)
		assert.Equal(t, "HEAD", p.ToRequest(context.Background()).Method)
		p.Method = ""
		assert.Equal(t, "GET", p.ToRequest(context.Background()).Method)
	})
	t.Run("context", func(t *testing.T) {
		p, err := NewPlan("PUT", "test", "body")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		assert.Same(t, ctx, p.ToRequest(ctx).Context())
		assert.Equal(t, context.Background(), p.ToRequest(context.Background()).Context())
	})
	t.Run("header cloned", func(t *testing.T) {
		p, err := NewPlan("GET", "test", nil)
		require.NoError(t, err)
		p.Header.Set("X-Plan", "1")
		r := p.ToRequest(context.Background())
		r.Header.Set("X-Attempt", "1")
		r.Header.Set("X-Plan", "2")
		assert.Equal(t, http.Header{"X-Plan": {"1"}}, p.Header)

		p.Header = nil
		r = p.ToRequest(context.Background())
		assert.NotNil(t, r.Header)
	})
	t.Run("fields copied", func(t *testing.T) {
		p, err := NewPlan("GET", "http://host:8080/path", nil)
		require.NoError(t, err)
		p.Close = true
		p.Host = "other"
		r := p.ToRequest(context.Background())
		assert.Same(t, p.URL, r.URL)
		assert.True(t, r.Close)
		assert.Equal(t, "other", r.Host)
	})
	t.Run("body empty", func(t *testing.T) {
		for _, body := range []interface{}{nil, "", []byte{}, strings.NewReader("")} {
			p, err := NewPlan("DELETE", "test", body)
			require.NoError(t, err)
			r := p.ToRequest(context.Background())
			assert.Nil(t, r.Body)
			assert.Nil(t, r.GetBody)
			assert.Equal(t, int64(0), r.ContentLength)
		}
	})
	t.Run("body replayable", func(t *testing.T) {
		p, err := NewPlan("POST", "test", "foo")
		require.NoError(t, err)
		r := p.ToRequest(context.Background())
		assert.Equal(t, int64(3), r.ContentLength)
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "foo", string(b))
		rc, err := r.GetBody()
		require.NoError(t, err)
		b, err = io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "foo", string(b))
	})
}

func TestPlan_WithContext(t *testing.T) {
	p, err := NewPlan("PATCH", "test", "body")
	require.NoError(t, err)
	p.Kind = Download
	p.ResumeOffset = 7

	assert.PanicsWithValue(t, nilCtxMsg, func() {
		p.WithContext(nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := p.WithContext(ctx)
	assert.NotSame(t, p, q)
	assert.Equal(t, context.Background(), p.Context())
	assert.Same(t, ctx, q.Context())
	assert.Equal(t, Download, q.Kind)
	assert.Equal(t, int64(7), q.ResumeOffset)
	assert.Equal(t, p.Body, q.Body)
	assert.Same(t, p.URL, q.URL)
}
