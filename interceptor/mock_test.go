// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package interceptor

import (
	"context"
	"net/http"

	"github.com/gogama/sessionx/request"
	"github.com/stretchr/testify/mock"
)

type mockAdapter struct {
	mock.Mock
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{}
}

func (m *mockAdapter) Adapt(ctx context.Context, req *http.Request, e *request.Execution) (*http.Request, error) {
	args := m.Called(ctx, req, e)
	r, _ := args.Get(0).(*http.Request)
	return r, args.Error(1)
}

type mockRetrier struct {
	mock.Mock
}

func newMockRetrier() *mockRetrier {
	return &mockRetrier{}
}

func (m *mockRetrier) Retry(ctx context.Context, e *request.Execution, err error) Decision {
	args := m.Called(ctx, e, err)
	return args.Get(0).(Decision)
}
