// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBodyBytes(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		testCases := []struct {
			name string
			body interface{}
			want []byte
		}{
			{"nil", nil, nil},
			{"string", "foo", []byte("foo")},
			{"bytes", []byte("bar"), []byte("bar")},
			{"reader", strings.NewReader("baz"), []byte("baz")},
			{"read closer", io.NopCloser(strings.NewReader("qux")), []byte("qux")},
		}
		for _, testCase := range testCases {
			t.Run(testCase.name, func(t *testing.T) {
				b, err := BodyBytes(testCase.body)
				assert.NoError(t, err)
				assert.Equal(t, testCase.want, b)
			})
		}
	})
	t.Run("bad type", func(t *testing.T) {
		b, err := BodyBytes(10)
		assert.Nil(t, b)
		assert.EqualError(t, err, badBodyTypeMsg)
	})
	t.Run("reader errors", func(t *testing.T) {
		expectedErr := errors.New("ham")
		t.Run("Read", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(10, expectedErr).Once()
			b, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
		t.Run("Close", func(t *testing.T) {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.Anything).Return(0, io.EOF).Once()
			m.On("Close").Return(expectedErr).Once()
			b, err := BodyBytes(m)
			assert.Nil(t, b)
			assert.Same(t, expectedErr, err)
			m.AssertExpectations(t)
		})
	})
}

type mockReadCloser struct {
	mock.Mock
}

func (m *mockReadCloser) Read(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockReadCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
