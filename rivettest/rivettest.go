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

// Package rivettest builds containers for unit tests: construction errors
// fail the test immediately and the container closes itself during test
// cleanup.
package rivettest

import (
	"go.uber.org/rivet"
)

// TB is the subset of testing.TB the package needs.
type TB interface {
	Errorf(format string, args ...interface{})
	FailNow()
	Cleanup(func())
}

// New builds a container, failing the test on any registration or
// validation error, and registers a Cleanup that closes it. Cleanup errors
// fail the test too, so a leaked resource in a constructor's cleanup
// surfaces without any assertion in the test body.
func New(tb TB, opts ...rivet.Option) *rivet.Container {
	c, err := rivet.New(opts...)
	if err != nil {
		tb.Errorf("container did not build: %v", err)
		tb.FailNow()
	}
	tb.Cleanup(func() {
		if err := c.Close(); err != nil {
			tb.Errorf("container did not close cleanly: %v", err)
		}
	})
	return c
}

// NewScope opens a scope on c, failing the test on error, and registers a
// Cleanup that closes it before the container's own cleanup runs.
func NewScope(tb TB, c *rivet.Container) *rivet.Scope {
	sc, err := c.BeginScope()
	if err != nil {
		tb.Errorf("scope did not open: %v", err)
		tb.FailNow()
	}
	tb.Cleanup(func() {
		if err := sc.Close(); err != nil {
			tb.Errorf("scope did not close cleanly: %v", err)
		}
	})
	return sc
}

// Override installs an override and registers its restore as a test
// Cleanup.
func Override(tb TB, c *rivet.Container, target, value interface{}, opts ...rivet.ResolveOption) {
	restore, err := c.Override(target, value, opts...)
	if err != nil {
		tb.Errorf("override failed: %v", err)
		tb.FailNow()
	}
	tb.Cleanup(restore)
}
