// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import "github.com/gogama/sessionx/interceptor"

// An Option overrides a session setting for one submitted request.
type Option func(*options)

type options struct {
	interceptor interceptor.Interceptor
	redirect    RedirectHandler
	cache       CachedResponseHandler
	credential  *Credential
	destination Destination
	validator   Validator
}

// WithInterceptor adds an interceptor to the request. Its adapter runs
// before the session's adapters, and its retrier is asked before the
// session's retriers.
func WithInterceptor(i interceptor.Interceptor) Option {
	if i == nil {
		panic("sessionx: nil interceptor")
	}
	return func(o *options) {
		o.interceptor = i
	}
}

// WithRedirectHandler makes h decide the request's redirects instead of
// the session's redirect handler.
func WithRedirectHandler(h RedirectHandler) Option {
	if h == nil {
		panic("sessionx: nil redirect handler")
	}
	return func(o *options) {
		o.redirect = h
	}
}

// WithCachedResponseHandler makes h decide whether the request's
// response is cached, instead of the session's handler.
func WithCachedResponseHandler(h CachedResponseHandler) Option {
	if h == nil {
		panic("sessionx: nil cached response handler")
	}
	return func(o *options) {
		o.cache = h
	}
}

// WithCredential answers the request's first credential challenge for
// each protection space with username and password.
func WithCredential(username, password string) Option {
	return func(o *options) {
		o.credential = &Credential{Username: username, Password: password}
	}
}

// WithDestination makes d choose where the request's download goes,
// instead of the session's destination.
func WithDestination(d Destination) Option {
	if d == nil {
		panic("sessionx: nil destination")
	}
	return func(o *options) {
		o.destination = d
	}
}

// WithValidator makes v validate each response the transport delivers
// successfully.
func WithValidator(v Validator) Option {
	if v == nil {
		panic("sessionx: nil validator")
	}
	return func(o *options) {
		o.validator = v
	}
}
