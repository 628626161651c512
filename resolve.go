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

package rivet

import "context"

// Resolver is the resolution surface shared by Container and Scope.
type Resolver interface {
	Get(target interface{}, opts ...ResolveOption) error
	GetCtx(ctx context.Context, target interface{}, opts ...ResolveOption) error
}

var (
	_ Resolver = (*Container)(nil)
	_ Resolver = (*Scope)(nil)
)

// Resolve returns a service by type:
//
//	db, err := rivet.Resolve[*Database](c)
func Resolve[T any](r Resolver, opts ...ResolveOption) (T, error) {
	var out T
	err := r.Get(&out, opts...)
	return out, err
}

// ResolveCtx is Resolve with a context passed through to context-taking
// constructors.
func ResolveCtx[T any](ctx context.Context, r Resolver, opts ...ResolveOption) (T, error) {
	var out T
	err := r.GetCtx(ctx, &out, opts...)
	return out, err
}

// MustResolve is Resolve but panics on error. Intended for program setup
// where a resolution failure is unrecoverable.
func MustResolve[T any](r Resolver, opts ...ResolveOption) T {
	out, err := Resolve[T](r, opts...)
	if err != nil {
		panic(err)
	}
	return out
}
