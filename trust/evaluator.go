// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trust

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrNoCertificates is returned by the built-in evaluators when the
// server presented no certificates.
var ErrNoCertificates = errors.New("sessionx/trust: no peer certificates")

// ErrNotPinned is returned by a Pinned evaluator when no certificate in
// the presented chain is pinned.
var ErrNotPinned = errors.New("sessionx/trust: certificate not pinned")

// An Evaluator judges the certificate chain a server presented for
// host. A nil error means the server is trusted.
//
// Implementations of Evaluator must be safe for concurrent use by
// multiple goroutines.
type Evaluator interface {
	Evaluate(state *tls.ConnectionState, host string) error
}

// The EvaluatorFunc type is an adapter to allow the use of ordinary
// functions as Evaluators.
type EvaluatorFunc func(state *tls.ConnectionState, host string) error

// Evaluate calls f(state, host).
func (f EvaluatorFunc) Evaluate(state *tls.ConnectionState, host string) error {
	return f(state, host)
}

// Default returns an evaluator that verifies the chain against roots,
// and the leaf against host. A nil roots pool means the system roots.
func Default(roots *x509.CertPool) Evaluator {
	return defaultEvaluator{roots: roots}
}

type defaultEvaluator struct {
	roots *x509.CertPool
}

func (d defaultEvaluator) Evaluate(state *tls.ConnectionState, host string) error {
	return verify(state, host, d.roots)
}

func verify(state *tls.ConnectionState, host string, roots *x509.CertPool) error {
	if state == nil || len(state.PeerCertificates) == 0 {
		return ErrNoCertificates
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		DNSName:       host,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range state.PeerCertificates[1:] {
		opts.Intermediates.AddCert(c)
	}
	if _, err := state.PeerCertificates[0].Verify(opts); err != nil {
		return fmt.Errorf("sessionx/trust: %s: %w", host, err)
	}
	return nil
}

// Pinned returns an evaluator that trusts a server only if one of the
// certificates it presented is byte-for-byte equal to one of certs. The
// chain is not otherwise validated, so a pinned self-signed
// certificate is trusted.
func Pinned(certs ...*x509.Certificate) Evaluator {
	if len(certs) == 0 {
		panic("sessionx/trust: no pinned certificates")
	}
	raw := make([][]byte, len(certs))
	for i, c := range certs {
		raw[i] = c.Raw
	}
	return pinnedEvaluator{raw: raw}
}

type pinnedEvaluator struct {
	raw [][]byte
}

func (p pinnedEvaluator) Evaluate(state *tls.ConnectionState, host string) error {
	if state == nil || len(state.PeerCertificates) == 0 {
		return ErrNoCertificates
	}
	for _, presented := range state.PeerCertificates {
		for _, pinned := range p.raw {
			if bytes.Equal(presented.Raw, pinned) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrNotPinned, host)
}

// Disabled returns an evaluator that trusts every server. Use it only
// for development hosts.
func Disabled() Evaluator {
	return EvaluatorFunc(func(*tls.ConnectionState, string) error {
		return nil
	})
}
