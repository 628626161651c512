// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, values map[string]interface{}) *Store {
	t.Helper()
	s, err := New(Static(values))
	require.NoError(t, err)
	return s
}

func TestStoreGet(t *testing.T) {
	s := newTestStore(t, map[string]interface{}{
		"db": map[string]interface{}{
			"host": "localhost",
			"port": 5432,
		},
		"app.name": "orders",
	})

	t.Run("nested lookup", func(t *testing.T) {
		v, err := s.Get("db.host")
		require.NoError(t, err)
		assert.Equal(t, "localhost", v.String())
	})

	t.Run("dotted static keys build nested paths", func(t *testing.T) {
		v, err := s.Get("app.name")
		require.NoError(t, err)
		assert.Equal(t, "orders", v.String())
	})

	t.Run("subtree lookup returns the map", func(t *testing.T) {
		v, err := s.Get("db")
		require.NoError(t, err)
		_, ok := v.Raw().(map[string]interface{})
		assert.True(t, ok)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := s.Get("db.password")
		var kerr *UnknownKeyError
		require.ErrorAs(t, err, &kerr)
		assert.Equal(t, "db.password", kerr.Key)
		assert.Equal(t, "db", kerr.Parent)
	})

	t.Run("has", func(t *testing.T) {
		assert.True(t, s.Has("db.host"))
		assert.False(t, s.Has("db.password"))
	})
}

func TestStoreInterpolation(t *testing.T) {
	s := newTestStore(t, map[string]interface{}{
		"a":    "1",
		"b":    "${a}-${a}",
		"c":    "${b}!",
		"port": 5432,
		"addr": "host:${port}",
	})

	t.Run("expands references", func(t *testing.T) {
		v, err := s.Get("b")
		require.NoError(t, err)
		assert.Equal(t, "1-1", v.String())
	})

	t.Run("expands nested templates", func(t *testing.T) {
		v, err := s.Get("c")
		require.NoError(t, err)
		assert.Equal(t, "1-1!", v.String())
	})

	t.Run("stringifies non-string references", func(t *testing.T) {
		v, err := s.Get("addr")
		require.NoError(t, err)
		assert.Equal(t, "host:5432", v.String())
	})

	t.Run("unknown reference", func(t *testing.T) {
		s := newTestStore(t, map[string]interface{}{"x": "${missing}"})
		_, err := s.Get("x")
		var kerr *UnknownKeyError
		require.ErrorAs(t, err, &kerr)
	})

	t.Run("cycle", func(t *testing.T) {
		s := newTestStore(t, map[string]interface{}{
			"x": "${y}",
			"y": "${x}",
		})
		_, err := s.Get("x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}

func TestStoreSetInvalidatesDependents(t *testing.T) {
	s := newTestStore(t, map[string]interface{}{
		"a": "1",
		"b": "${a}-${a}",
		"c": "static",
	})

	v, err := s.Get("b")
	require.NoError(t, err)
	require.Equal(t, "1-1", v.String())

	s.Set("a", "2")

	v, err = s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "2-2", v.String(), "changing a referenced key must drop dependent cache entries")

	v, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "2", v.String())

	t.Run("set creates nested paths", func(t *testing.T) {
		s.Set("new.nested.key", true)
		v, err := s.Get("new.nested.key")
		require.NoError(t, err)
		b, err := v.Bool()
		require.NoError(t, err)
		assert.True(t, b)
	})
}

func TestStoreExpand(t *testing.T) {
	s := newTestStore(t, map[string]interface{}{
		"host": "localhost",
		"port": 8080,
	})

	out, err := s.Expand("${host}:${port}")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", out)

	_, err = s.Expand("${nope}")
	var kerr *UnknownKeyError
	require.ErrorAs(t, err, &kerr)
}

func TestSourceMerging(t *testing.T) {
	s, err := New(
		Static(map[string]interface{}{
			"db.host": "localhost",
			"db.port": 5432,
		}),
		Static(map[string]interface{}{
			"db.host": "replica",
		}),
	)
	require.NoError(t, err)

	v, err := s.Get("db.host")
	require.NoError(t, err)
	assert.Equal(t, "replica", v.String(), "later sources shadow earlier ones")

	v, err = s.Get("db.port")
	require.NoError(t, err)
	n, err := v.Int()
	require.NoError(t, err)
	assert.Equal(t, 5432, n, "sibling keys from earlier sources survive the merge")
}
