// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"net/url"

	"github.com/gogama/sessionx/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do executes an HTTP request plan, waits for it to end, and returns the
// final execution state (and error, if any). Session implements the
// Doer interface, and any other Doer implementation must behave
// substantially the same as Session.Do.
type Doer interface {
	Do(p *request.Plan, opts ...Option) (*request.Execution, error)
}

// Get uses the specified Doer to issue a GET to the specified URL.
//
// To make a request plan with custom headers, use request.NewPlan and
// d.Do.
func Get(d Doer, url string, opts ...Option) (*request.Execution, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p, opts...)
}

// Head uses the specified Doer to issue a HEAD to the specified URL.
func Head(d Doer, url string, opts ...Option) (*request.Execution, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p, opts...)
}

// Post uses the specified Doer to upload body to the specified URL
// with a POST.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.NewPlan and request.BodyBytes, namely:
// string; []byte; io.Reader; and io.ReadCloser.
func Post(d Doer, url, contentType string, body interface{}, opts ...Option) (*request.Execution, error) {
	b, err := request.BodyBytes(body)
	if err != nil {
		return nil, err
	}
	p, err := request.NewPlan("POST", url, b)
	if err != nil {
		return nil, err
	}
	p.Kind = request.Upload
	p.Header.Set("Content-Type", contentType)
	return d.Do(p, opts...)
}

// PostForm uses the specified Doer to issue a POST to the specified URL,
// with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func PostForm(d Doer, url string, data url.Values, opts ...Option) (*request.Execution, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode(), opts...)
}

// Download uses the specified Doer to download the resource at the
// specified URL into a file placed by dst. The final location of the
// file is in the returned execution's Destination field.
//
// If dst is nil, the Doer's default destination is used.
func Download(d Doer, url string, dst Destination, opts ...Option) (*request.Execution, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	p.Kind = request.Download
	if dst != nil {
		opts = append([]Option{WithDestination(dst)}, opts...)
	}
	return d.Do(p, opts...)
}
