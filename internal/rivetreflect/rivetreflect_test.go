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

package rivetreflect

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func someConstructor() int { return 0 }

type widget struct{}

func TestFuncName(t *testing.T) {
	name := FuncName(someConstructor)
	assert.Contains(t, name, "rivetreflect.someConstructor")
	assert.Contains(t, name, "()")

	assert.Equal(t, "int", FuncName(42), "non-functions fall back to their type")
}

func TestTypeName(t *testing.T) {
	cases := []struct {
		give reflect.Type
		want string
	}{
		{reflect.TypeOf(widget{}), "go.uber.org/rivet/internal/rivetreflect.widget"},
		{reflect.TypeOf(&widget{}), "*go.uber.org/rivet/internal/rivetreflect.widget"},
		{reflect.TypeOf([]widget{}), "[]go.uber.org/rivet/internal/rivetreflect.widget"},
		{reflect.TypeOf(map[string]widget{}), "map[string]go.uber.org/rivet/internal/rivetreflect.widget"},
		{reflect.TypeOf(0), "int"},
		{nil, "<nil>"},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, TypeName(tt.give))
	}
}

func TestCaller(t *testing.T) {
	assert.Contains(t, Caller(), "rivetreflect.TestCaller")
}
