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

// Package rivetevent defines the events emitted by a rivet container while it
// is built, resolved against, scoped, overridden, and closed, along with
// Logger implementations that render them.
package rivetevent

// Event defines an event emitted by rivet.
type Event interface {
	event() // Only rivet can implement this interface.
}

// Passing events by type to make Event hashable in the future.
func (*Provided) event()         {}
func (*Supplied) event()         {}
func (*Abstracted) event()       {}
func (*Validated) event()        {}
func (*ScopeOpened) event()      {}
func (*ScopeClosed) event()      {}
func (*Overridden) event()       {}
func (*OverrideRestored) event() {}
func (*Closed) event()           {}

// Provided is emitted for each constructor registered with the container.
type Provided struct {
	// ConstructorName is the name of the registered constructor.
	ConstructorName string
	// OutputTypeName is the name of the type the constructor produces.
	OutputTypeName string
	// Lifetime is the registered lifetime ("singleton", "scoped",
	// "transient").
	Lifetime string
	// Qualifier is the registration qualifier, if any.
	Qualifier interface{}
	// ModuleName is the enclosing Module's name, if the registration came
	// from one.
	ModuleName string
	// Err is non-nil if the registration failed.
	Err error
}

// Supplied is emitted for each pre-built value registered via Supply.
type Supplied struct {
	TypeName   string
	Qualifier  interface{}
	ModuleName string
	Err        error
}

// Abstracted is emitted for each interface declared via Abstract.
type Abstracted struct {
	InterfaceName string
}

// Validated is emitted after the dependency graph has been validated and
// compiled, right before New returns.
type Validated struct {
	// Services is the number of compiled identities.
	Services int
	Err      error
}

// ScopeOpened is emitted when a scope is begun.
type ScopeOpened struct {
	// ScopeID uniquely identifies the scope for correlating open/close pairs.
	ScopeID string
	// ParentID is the enclosing scope's ID, or empty when the parent is the
	// root container.
	ParentID string
}

// ScopeClosed is emitted when a scope has been closed and its exit stack
// drained.
type ScopeClosed struct {
	ScopeID string
	Err     error
}

// Overridden is emitted when a registration is replaced with a fixed value.
type Overridden struct {
	TypeName  string
	Qualifier interface{}
}

// OverrideRestored is emitted when an override is undone.
type OverrideRestored struct {
	TypeName  string
	Qualifier interface{}
}

// Closed is emitted after the container's global exit stack has been drained.
type Closed struct {
	Err error
}
