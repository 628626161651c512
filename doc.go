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

// Package rivet is a dependency injection container built around constructor
// registration and ahead-of-time graph validation.
//
// A container is assembled once from a set of registrations:
//
//	c, err := rivet.New(
//		rivet.WithConfig(store),
//		rivet.Provide(config.NewRepository),
//		rivet.Provide(server.New, rivet.WithLifetime(rivet.Scoped)),
//		rivet.Supply(mailerClient),
//	)
//
// New validates the whole dependency graph up front: duplicate identities,
// unknown dependencies, unknown configuration keys, lifetime violations, and
// cycles are all reported before any service is built. Each registered
// identity then gets a resolver specialized during compilation, so steady
// state resolution does no graph search.
//
// Services are identified by their constructor's produced type plus an
// optional qualifier, and carry one of three lifetimes: Singleton (one
// instance per container, the default), Scoped (one instance per scope), or
// Transient (a fresh instance per resolution). Scopes are opened with
// BeginScope and drain their cleanups LIFO on Close; the container does the
// same for singletons.
//
// Constructors may end with a cleanup function and an error:
//
//	func NewConn(addr string) (*Conn, func() error, error)
//
// Constructors that take a context.Context mark their whole dependency chain
// context-bound; such services resolve only through the ctx-taking entry
// points (GetCtx, ResolveCtx, InvokeCtx).
package rivet // import "go.uber.org/rivet"
