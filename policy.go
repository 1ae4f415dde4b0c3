// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"fmt"
	"net/http"
)

// A RedirectHandler decides whether a request follows a redirect.
//
// Redirect returns the request to send in place of next, which may be
// next itself, or nil to stop and deliver resp as the final response.
type RedirectHandler interface {
	Redirect(r *Request, resp *http.Response, next *http.Request) *http.Request
}

// The RedirectHandlerFunc type is an adapter to allow the use of
// ordinary functions as RedirectHandlers.
type RedirectHandlerFunc func(r *Request, resp *http.Response, next *http.Request) *http.Request

// Redirect calls f(r, resp, next).
func (f RedirectHandlerFunc) Redirect(r *Request, resp *http.Response, next *http.Request) *http.Request {
	return f(r, resp, next)
}

// FollowRedirects returns a redirect handler that follows every
// redirect the transport proposes.
func FollowRedirects() RedirectHandler {
	return RedirectHandlerFunc(func(_ *Request, _ *http.Response, next *http.Request) *http.Request {
		return next
	})
}

// DoNotFollowRedirects returns a redirect handler that never follows a
// redirect.
func DoNotFollowRedirects() RedirectHandler {
	return RedirectHandlerFunc(func(*Request, *http.Response, *http.Request) *http.Request {
		return nil
	})
}

// A CachedResponseHandler decides whether a response is cached.
//
// CacheResponse returns the entry to store, which may be proposed
// itself or a modified copy, or nil to store nothing.
type CachedResponseHandler interface {
	CacheResponse(r *Request, proposed *CachedResponse) *CachedResponse
}

// The CachedResponseHandlerFunc type is an adapter to allow the use of
// ordinary functions as CachedResponseHandlers.
type CachedResponseHandlerFunc func(r *Request, proposed *CachedResponse) *CachedResponse

// CacheResponse calls f(r, proposed).
func (f CachedResponseHandlerFunc) CacheResponse(r *Request, proposed *CachedResponse) *CachedResponse {
	return f(r, proposed)
}

// CacheNothing returns a cached response handler that stores nothing.
func CacheNothing() CachedResponseHandler {
	return CachedResponseHandlerFunc(func(*Request, *CachedResponse) *CachedResponse {
		return nil
	})
}

// A CredentialProvider supplies credentials for credential challenges
// when the request carries none of its own. A nil return value leaves
// the challenge to the transport's default handling.
type CredentialProvider interface {
	Credential(r *Request, c *Challenge) *Credential
}

// The CredentialProviderFunc type is an adapter to allow the use of
// ordinary functions as CredentialProviders.
type CredentialProviderFunc func(r *Request, c *Challenge) *Credential

// Credential calls f(r, c).
func (f CredentialProviderFunc) Credential(r *Request, c *Challenge) *Credential {
	return f(r, c)
}

// A Validator inspects the response of an attempt that the transport
// completed successfully. A non-nil error fails the attempt, which then
// enters the retry decision like any other failure.
//
// The body is nil for Download requests.
type Validator func(resp *http.Response, body []byte) error

// AcceptStatus returns a validator that accepts only the listed status
// codes.
func AcceptStatus(codes ...int) Validator {
	accepted := make(map[int]bool, len(codes))
	for _, c := range codes {
		accepted[c] = true
	}
	return func(resp *http.Response, _ []byte) error {
		if resp == nil {
			return errNoResponse
		}
		if !accepted[resp.StatusCode] {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}
}

// AcceptStatusRange returns a validator that accepts status codes from
// lo to hi inclusive.
func AcceptStatusRange(lo, hi int) Validator {
	if lo > hi {
		panic("sessionx: invalid status range")
	}
	return func(resp *http.Response, _ []byte) error {
		if resp == nil {
			return errNoResponse
		}
		if resp.StatusCode < lo || resp.StatusCode > hi {
			return &StatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}
}

// A StatusError is returned by the built-in validators for an
// unacceptable status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sessionx: unacceptable status code %d", e.StatusCode)
}
