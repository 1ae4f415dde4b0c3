// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package sessionx

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gogama/sessionx/request"
)

// A Handle identifies one transport task, that is one physical attempt.
// Handles are issued by the Transport, must be unique for the lifetime
// of the session, and are only ever compared for equality.
type Handle uint64

// A Transport executes individual attempts and reports on them
// asynchronously through a Delegate.
//
// The package transport provides an implementation over net/http.
type Transport interface {
	// NewTask prepares a task for req without starting it. The task
	// must report every event for the returned handle to d, and must
	// not report any event before Resume is called. The task should
	// end when ctx ends.
	NewTask(ctx context.Context, req *http.Request, kind request.Kind, d Delegate) (Handle, error)
	// Resume starts a task prepared by NewTask.
	Resume(h Handle)
	// Cancel stops a task. The task may still report completion
	// afterwards. Cancel on an unknown or finished handle does nothing.
	Cancel(h Handle)
}

// A Delegate receives the events of transport tasks. *Session
// implements Delegate, and is the only implementation a Transport
// needs to deal with.
//
// For one handle, events other than OnMetricsGathered must be reported
// sequentially in the order they occur, and OnCompleted must be the
// last of them. OnMetricsGathered may arrive before or after
// OnCompleted. Events for different handles may be concurrent.
type Delegate interface {
	// OnChallenge asks how to answer an authentication challenge.
	OnChallenge(h Handle, c *Challenge) (Disposition, *Credential)
	// OnUploadProgress reports sent bytes: sent in this step, and
	// totalSent of totalExpected overall (-1 if unknown).
	OnUploadProgress(h Handle, sent, totalSent, totalExpected int64)
	// OnRedirect asks whether to follow a redirect. It returns the
	// request to send instead of next, or nil to stop and deliver resp
	// as the final response.
	OnRedirect(h Handle, resp *http.Response, next *http.Request) *http.Request
	// OnCachePolicyQuery asks whether to store a response in the
	// transport's cache. It returns the entry to store, or nil.
	OnCachePolicyQuery(h Handle, proposed *CachedResponse) *CachedResponse
	// OnResponse reports the response status and headers. The body
	// arrives via OnDataReceived or as a download.
	OnResponse(h Handle, resp *http.Response)
	// OnDataReceived reports a chunk of the response body of a Data or
	// Upload task. The delegate does not retain data after returning.
	OnDataReceived(h Handle, data []byte)
	// OnDownloadResumed reports that a Download task continues at
	// offset of expectedTotal bytes (-1 if unknown).
	OnDownloadResumed(h Handle, offset, expectedTotal int64)
	// OnDownloadProgress reports bytes written to the temporary file of
	// a Download task.
	OnDownloadProgress(h Handle, written, totalWritten, totalExpected int64)
	// OnDownloadFinished reports the complete temporary file of a
	// Download task. The delegate moves the file before returning; the
	// transport may delete whatever remains at tempPath afterwards.
	OnDownloadFinished(h Handle, tempPath string)
	// OnMetricsGathered reports the metrics of a task.
	OnMetricsGathered(h Handle, m *request.Metrics)
	// OnCompleted reports that a task ended, with a nil error on
	// success.
	OnCompleted(h Handle, err error)
	// OnInvalidated reports that the transport can no longer execute
	// tasks. A nil err means orderly shutdown.
	OnInvalidated(err error)
}

// A ChallengeKind tells the kinds of Challenge apart.
type ChallengeKind int

const (
	// ServerTrustChallenge asks whether the server's TLS certificate
	// chain is trusted.
	ServerTrustChallenge ChallengeKind = iota
	// CredentialChallenge asks for credentials for a protection space,
	// for example HTTP Basic authentication.
	CredentialChallenge
)

func (k ChallengeKind) String() string {
	switch k {
	case ServerTrustChallenge:
		return "ServerTrust"
	case CredentialChallenge:
		return "Credential"
	default:
		return fmt.Sprintf("ChallengeKind(%d)", int(k))
	}
}

// A Challenge is an authentication challenge raised by the transport
// during an attempt.
type Challenge struct {
	Kind ChallengeKind

	// Host is the host, without port, that raised the challenge.
	Host string

	// TLS is the connection state of a ServerTrustChallenge.
	TLS *tls.ConnectionState

	// Scheme and Realm describe the protection space of a
	// CredentialChallenge, for example "Basic" and "api".
	Scheme, Realm string

	// PreviousFailureCount counts earlier failed answers to the same
	// protection space within the attempt.
	PreviousFailureCount int
}

// A Disposition is the answer to a Challenge.
type Disposition int

const (
	// PerformDefaultHandling lets the transport answer as it would
	// without a delegate.
	PerformDefaultHandling Disposition = iota
	// UseCredential answers with the returned credential, or for a
	// ServerTrustChallenge trusts the server.
	UseCredential
	// CancelChallenge cancels the challenge, which fails the attempt.
	CancelChallenge
	// RejectProtectionSpace declines this protection space. For a
	// credential challenge the response that raised it is delivered
	// as is.
	RejectProtectionSpace
)

var dispositionNames = []string{"PerformDefaultHandling", "UseCredential", "CancelChallenge", "RejectProtectionSpace"}

func (d Disposition) String() string {
	if d < 0 || int(d) >= len(dispositionNames) {
		return fmt.Sprintf("Disposition(%d)", int(d))
	}
	return dispositionNames[d]
}

// A Credential answers a CredentialChallenge.
type Credential struct {
	Username string
	Password string
}

// A CachedResponse is a response a transport proposes to cache.
type CachedResponse struct {
	// Key identifies the cached request, typically its method and URL.
	Key string
	// Response carries status and headers. Its Body is not used.
	Response *http.Response
	// Body is the complete response body.
	Body []byte
	// StoredAt is when the response was received.
	StoredAt time.Time
}
