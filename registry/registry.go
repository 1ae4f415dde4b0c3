// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInconsistent is wrapped by every error a Registry returns. It
// indicates a defect in the caller: a signal that cannot legally occur
// in the current state of the registry.
var ErrInconsistent = errors.New("sessionx/registry: inconsistent state")

var (
	// ErrUnknownHandle is returned by a transition on a handle that
	// has no live association, for example because the entry was
	// already released.
	ErrUnknownHandle = fmt.Errorf("%w: unknown handle", ErrInconsistent)
	// ErrDuplicateSignal is returned when the same completion signal
	// is reported twice for one handle.
	ErrDuplicateSignal = fmt.Errorf("%w: duplicate signal", ErrInconsistent)
	// ErrAlreadyAssociated is returned by Associate when either side
	// of the new association is already live.
	ErrAlreadyAssociated = fmt.Errorf("%w: already associated", ErrInconsistent)
)

// A Registry associates handles of type H with values of type V one to
// one, and tracks the two completion signals of each handle.
//
// Registry is safe for concurrent use by multiple goroutines. Every
// method is a single critical section, so the two directional maps and
// the completion record of an entry always change together.
type Registry[H comparable, V comparable] struct {
	metrics bool

	lock     sync.Mutex
	byHandle map[H]*entry[V]
	byValue  map[V]H
}

type entry[V comparable] struct {
	value     V
	completed bool
	gathered  bool
}

// New constructs an empty registry.
//
// If metrics is false, the registry assumes the metrics signal is never
// produced, and Completed alone releases an entry.
func New[H comparable, V comparable](metrics bool) *Registry[H, V] {
	return &Registry[H, V]{
		metrics:  metrics,
		byHandle: make(map[H]*entry[V]),
		byValue:  make(map[V]H),
	}
}

// Metrics reports whether the registry waits for the metrics signal.
func (r *Registry[H, V]) Metrics() bool {
	return r.metrics
}

// Associate records a new association between h and v with neither
// completion signal received.
//
// Associate returns ErrAlreadyAssociated if h is already registered or
// if v already has a live association.
func (r *Registry[H, V]) Associate(h H, v V) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byHandle[h]; ok {
		return fmt.Errorf("%w: handle %v", ErrAlreadyAssociated, h)
	}
	if old, ok := r.byValue[v]; ok {
		return fmt.Errorf("%w: value held by handle %v", ErrAlreadyAssociated, old)
	}

	r.byHandle[h] = &entry[V]{value: v}
	r.byValue[v] = h
	return nil
}

// Value returns the value associated with h, if any.
func (r *Registry[H, V]) Value(h H) (V, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if e, ok := r.byHandle[h]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Handle returns the handle associated with v, if any.
func (r *Registry[H, V]) Handle(v V) (H, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	h, ok := r.byValue[v]
	return h, ok
}

// MetricsGathered records the metrics signal for h. It returns true if
// the completion signal had already been recorded, in which case the
// entry is removed.
func (r *Registry[H, V]) MetricsGathered(h H) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.byHandle[h]
	if !ok {
		return false, fmt.Errorf("%w: metrics for %v", ErrUnknownHandle, h)
	}
	if e.gathered {
		return false, fmt.Errorf("%w: metrics for %v", ErrDuplicateSignal, h)
	}
	if !e.completed {
		e.gathered = true
		return false, nil
	}

	r.remove(h, e)
	return true, nil
}

// Completed records the completion signal for h. It returns true if
// the entry was removed, which happens when the metrics signal had
// already been recorded or when the registry does not track metrics.
func (r *Registry[H, V]) Completed(h H) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.byHandle[h]
	if !ok {
		return false, fmt.Errorf("%w: completion for %v", ErrUnknownHandle, h)
	}
	if e.completed {
		return false, fmt.Errorf("%w: completion for %v", ErrDuplicateSignal, h)
	}
	if r.metrics && !e.gathered {
		e.completed = true
		return false, nil
	}

	r.remove(h, e)
	return true, nil
}

// Release removes the entry for h regardless of which signals have
// been recorded. It returns false if h was not registered.
func (r *Registry[H, V]) Release(h H) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	e, ok := r.byHandle[h]
	if !ok {
		return false
	}
	r.remove(h, e)
	return true
}

// Drain removes every entry and returns the values that were
// registered, in no particular order.
func (r *Registry[H, V]) Drain() []V {
	r.lock.Lock()
	defer r.lock.Unlock()

	vs := make([]V, 0, len(r.byHandle))
	for _, e := range r.byHandle {
		vs = append(vs, e.value)
	}
	r.byHandle = make(map[H]*entry[V])
	r.byValue = make(map[V]H)
	return vs
}

// Len returns the number of live associations.
func (r *Registry[H, V]) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(r.byHandle) != len(r.byValue) {
		panic("sessionx/registry: map cardinality mismatch")
	}
	return len(r.byHandle)
}

func (r *Registry[H, V]) remove(h H, e *entry[V]) {
	delete(r.byHandle, h)
	delete(r.byValue, e.value)
}
