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
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/rivet/rivetevent"
)

// overrideStore holds per-identity stacks of replacement values. Overrides
// nest: the newest push wins, and restoring pops one entry.
//
// The active counter lets resolution skip the read lock entirely when no
// override is installed, which is the common case outside tests.
type overrideStore struct {
	active atomic.Int64

	mu     sync.RWMutex
	stacks map[serviceKey][]reflect.Value
}

func newOverrideStore() *overrideStore {
	return &overrideStore{stacks: make(map[serviceKey][]reflect.Value)}
}

// get returns the newest override for key, if any. Called on every
// resolution, including compiled dependency edges, so overrides are seen by
// dependents of the overridden service as well as direct callers.
func (o *overrideStore) get(key serviceKey) (reflect.Value, bool) {
	if o.active.Load() == 0 {
		return reflect.Value{}, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	stack := o.stacks[key]
	if len(stack) == 0 {
		return reflect.Value{}, false
	}
	return stack[len(stack)-1], true
}

func (o *overrideStore) push(key serviceKey, v reflect.Value) {
	o.mu.Lock()
	o.stacks[key] = append(o.stacks[key], v)
	o.mu.Unlock()
	o.active.Add(1)
}

func (o *overrideStore) pop(key serviceKey) {
	o.mu.Lock()
	stack := o.stacks[key]
	if n := len(stack); n > 0 {
		o.stacks[key] = stack[:n-1]
	}
	o.mu.Unlock()
	o.active.Add(-1)
}

// Override replaces a registered identity with a fixed value until the
// returned restore function is called. The target names the identity the
// same way Get does, a pointer to the registered type:
//
//	restore, err := c.Override((*Mailer)(nil), fakeMailer)
//	defer restore()
//
// The value must be assignable to the registered type. Overriding an
// identity that was never registered fails with an UnknownOverrideError.
// Overrides stack; restore functions undo the newest entry for their
// identity.
func (c *Container) Override(target interface{}, value interface{}, opts ...ResolveOption) (func(), error) {
	cfg := newResolveConfig(opts)
	typ := reflect.TypeOf(target)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return nil, &InvalidFactoryError{Factory: target, Reason: "Override target must be a pointer to the registered type"}
	}
	key := serviceKey{typ: typ.Elem(), qualifier: cfg.qualifier}

	if _, ok := c.factories[key]; !ok {
		return nil, &UnknownOverrideError{Type: key.typ, Qualifier: key.qualifier}
	}

	v := reflect.ValueOf(value)
	if !v.IsValid() || !v.Type().AssignableTo(key.typ) {
		return nil, &InvalidFactoryError{
			Factory: value,
			Reason:  "override value is not assignable to " + key.typ.String(),
		}
	}

	// Overrides are keyed by the identity as named: overriding an interface
	// replaces interface-typed resolution and dependencies, not resolution
	// of the bound concrete type, whose consumers may need the real thing.
	c.overrides.push(key, v)
	c.log.LogEvent(&rivetevent.Overridden{TypeName: key.typ.String(), Qualifier: key.qualifier})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.overrides.pop(key)
			c.log.LogEvent(&rivetevent.OverrideRestored{TypeName: key.typ.String(), Qualifier: key.qualifier})
		})
	}, nil
}

// OverrideKey names an identity for OverrideMany.
type OverrideKey struct {
	// Target is a pointer to the registered type, e.g. (*Mailer)(nil).
	Target interface{}
	// Qualifier distinguishes same-type registrations; nil for the
	// unqualified identity.
	Qualifier interface{}
}

// OverrideMany installs a batch of overrides atomically: either every entry
// applies, or none does and the first error is returned. The returned
// restore function undoes the whole batch.
func (c *Container) OverrideMany(values map[OverrideKey]interface{}) (func(), error) {
	restores := make([]func(), 0, len(values))
	for k, v := range values {
		var opts []ResolveOption
		if k.Qualifier != nil {
			opts = append(opts, Qualified(k.Qualifier))
		}
		restore, err := c.Override(k.Target, v, opts...)
		if err != nil {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
			return nil, err
		}
		restores = append(restores, restore)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(restores) - 1; i >= 0; i-- {
				restores[i]()
			}
		})
	}, nil
}
