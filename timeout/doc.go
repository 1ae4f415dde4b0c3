// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for choosing the deadline of each
// transport attempt of a request, including retries. A session asks
// its Policy for a timeout immediately before every attempt, while the
// execution still describes how the previous attempt ended.
package timeout
