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

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"go.uber.org/rivet/rivetevent"
)

// Scope is a resolution context with its own object cache and exit stack.
// Scoped services resolve to one instance per scope; transient services are
// built fresh on every resolution but their cleanups still attach to the
// enclosing scope. Closing a scope runs its exit stack in reverse
// registration order.
//
// Scopes nest. A child scope caches its own scoped instances; it does not
// inherit the parent's, and closing the child leaves the parent untouched.
type Scope struct {
	id     string
	c      *Container
	parent *Scope

	mu      sync.Mutex
	objects map[serviceKey]reflect.Value
	locks   map[serviceKey]*sync.Mutex
	exits   []exitEntry
	closed  bool
}

// BeginScope opens a new scope on the container.
func (c *Container) BeginScope() (*Scope, error) {
	if c.isClosed() {
		return nil, ErrContainerClosed
	}
	sc := newScope(c, nil)
	c.log.LogEvent(&rivetevent.ScopeOpened{ScopeID: sc.id})
	return sc, nil
}

// BeginScope opens a child scope. The child resolves against the same
// container but keeps its own scoped cache and exit stack.
func (s *Scope) BeginScope() (*Scope, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	child := newScope(s.c, s)
	s.c.log.LogEvent(&rivetevent.ScopeOpened{ScopeID: child.id, ParentID: s.id})
	return child, nil
}

func newScope(c *Container, parent *Scope) *Scope {
	return &Scope{
		id:      uuid.NewString(),
		c:       c,
		parent:  parent,
		objects: make(map[serviceKey]reflect.Value),
		locks:   make(map[serviceKey]*sync.Mutex),
	}
}

// ID returns the scope's unique identifier, as reported in scope events.
func (s *Scope) ID() string { return s.id }

// Get resolves a service into target within this scope. Singletons still
// come from the container's cache; scoped and transient services resolve
// here.
func (s *Scope) Get(target interface{}, opts ...ResolveOption) error {
	return s.getInto(nil, target, opts)
}

// GetCtx is Get with a context passed through to context-taking
// constructors.
func (s *Scope) GetCtx(ctx context.Context, target interface{}, opts ...ResolveOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.getInto(ctx, target, opts)
}

func (s *Scope) getInto(ctx context.Context, target interface{}, opts []ResolveOption) error {
	if err := s.check(); err != nil {
		return err
	}
	cfg := newResolveConfig(opts)
	key, err := keyOf(target, cfg.qualifier)
	if err != nil {
		return err
	}
	v, err := s.c.resolveKey(ctx, key, s)
	if err != nil {
		return err
	}
	reflect.ValueOf(target).Elem().Set(v)
	return nil
}

// Close drains the scope's exit stack in reverse registration order,
// aggregating cleanup errors into a CloseError. Like Container.Close, it
// fails with a ContextRequiredError, draining nothing, if any pending
// cleanup takes a context.Context.
func (s *Scope) Close() error {
	return s.closeWith(nil)
}

// CloseCtx is Close with a context passed through to context-taking
// cleanups.
func (s *Scope) CloseCtx(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.closeWith(ctx)
}

func (s *Scope) closeWith(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if ctx == nil {
		for _, e := range s.exits {
			if e.needsCtx {
				s.mu.Unlock()
				return &ContextRequiredError{Op: "close"}
			}
		}
		ctx = context.Background()
	}
	s.closed = true
	exits := s.exits
	s.exits = nil
	s.mu.Unlock()

	err := drainExits(ctx, exits)
	s.c.log.LogEvent(&rivetevent.ScopeClosed{ScopeID: s.id, Err: err})
	return err
}

func (s *Scope) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrScopeClosed
	}
	return nil
}

func (s *Scope) cachedObject(key serviceKey) (reflect.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.objects[key]
	return v, ok
}

func (s *Scope) storeObject(key serviceKey, v reflect.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = v
}

// objectLock returns the lazily-created per-identity construction lock used
// when concurrent scoped access is enabled.
func (s *Scope) objectLock(key serviceKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[key]
	if !ok {
		mu = new(sync.Mutex)
		s.locks[key] = mu
	}
	return mu
}

func (s *Scope) pushExit(e exitEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exits = append(s.exits, e)
}
