// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package trust decides whether a server's TLS certificate chain is
trusted, on a per-host basis.

A Manager maps host names to Evaluators. When a transport reports a
server trust challenge, the session asks the Manager for the evaluator
of the challenged host. No evaluator means the transport's default
handling applies; otherwise the evaluator's verdict is final:

	m, err := trust.NewManager(map[string]trust.Evaluator{
		"api.example.com": trust.Pinned(leaf),
		"*.internal.test": trust.Default(corpRoots),
		"localhost":       trust.Disabled(),
	}, false)

Host names are normalized with IDNA, so "BÜCHER.example" and
"xn--bcher-kva.example" name the same host.
*/
package trust
