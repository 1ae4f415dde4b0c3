// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient sorts attempt errors into transience categories.
// Retry deciders use the categories to tell a failure worth retrying
// from a permanent one, and metrics use them as a low-cardinality error
// label.
//
// The package depends only on the standard library, so it can be
// imported on its own.
package transient
