// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package registry provides Registry, a consistency-checked bidirectional
association between transport task handles and the logical requests
they belong to.

A single physical attempt may report that it has completed, and that its
metrics have been gathered, via two independent notifications which can
arrive in either order. Registry turns "this attempt is fully finished"
into an exactly-once event regardless of arrival order: each transition
method reports whether the entry was released, and only one call per
handle ever reports true.

	reg := registry.New[uint64, *Thing](true)
	err := reg.Associate(7, thing)
	...
	released, err := reg.Completed(7)        // false: waiting on metrics
	released, err = reg.MetricsGathered(7)   // true: entry removed

A registry constructed with metrics disabled releases the entry on
completion alone.
*/
package registry
