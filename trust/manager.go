// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package trust

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// ErrNoEvaluator is returned by Manager.Evaluator when the manager
// requires every host to be evaluated and has no evaluator for the
// host.
var ErrNoEvaluator = errors.New("sessionx/trust: no evaluator for host")

// A Manager holds the evaluators for a set of hosts.
//
// Keys are host names without port. A key of the form "*.example.com"
// matches any host with at least one label in front of
// "example.com", but not "example.com" itself. An exact key takes
// precedence over a wildcard, and a longer wildcard over a shorter one.
//
// A Manager is immutable once constructed and safe for concurrent use.
type Manager struct {
	evaluators map[string]Evaluator
	allHosts   bool
}

// NewManager constructs a manager from host keys to evaluators. If
// allHostsMustBeEvaluated is true, a host without an evaluator is an
// error rather than a request for default handling.
func NewManager(evaluators map[string]Evaluator, allHostsMustBeEvaluated bool) (*Manager, error) {
	m := &Manager{
		evaluators: make(map[string]Evaluator, len(evaluators)),
		allHosts:   allHostsMustBeEvaluated,
	}
	for key, e := range evaluators {
		if e == nil {
			return nil, fmt.Errorf("sessionx/trust: nil evaluator for %q", key)
		}
		wildcard := strings.HasPrefix(key, "*.")
		host, err := normalize(strings.TrimPrefix(key, "*."))
		if err != nil {
			return nil, fmt.Errorf("sessionx/trust: invalid host %q: %w", key, err)
		}
		if wildcard {
			host = "*." + host
		}
		if _, dup := m.evaluators[host]; dup {
			return nil, fmt.Errorf("sessionx/trust: duplicate host %q", key)
		}
		m.evaluators[host] = e
	}
	return m, nil
}

// Evaluator returns the evaluator for host, which may carry a port.
//
// If there is no evaluator for host, Evaluator returns nil and a nil
// error, unless the manager requires every host to be evaluated, in
// which case it returns ErrNoEvaluator.
func (m *Manager) Evaluator(host string) (Evaluator, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	h, err := normalize(host)
	if err != nil {
		return nil, fmt.Errorf("sessionx/trust: invalid host %q: %w", host, err)
	}
	if e, ok := m.evaluators[h]; ok {
		return e, nil
	}
	for i := strings.IndexByte(h, '.'); i >= 0; i = strings.IndexByte(h, '.') {
		h = h[i+1:]
		if e, ok := m.evaluators["*."+h]; ok {
			return e, nil
		}
	}
	if m.allHosts {
		return nil, fmt.Errorf("%w: %s", ErrNoEvaluator, host)
	}
	return nil, nil
}

// Len returns the number of host keys.
func (m *Manager) Len() int {
	return len(m.evaluators)
}

func normalize(host string) (string, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return "", errors.New("empty host")
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return ip.String(), nil
	}
	return idna.Lookup.ToASCII(host)
}
