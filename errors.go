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
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/rivet/internal/rivetreflect"
)

// Every error in this file describes a programmer or configuration mistake,
// not an expected runtime condition. Structural errors (duplicates, missing
// dependencies, cycles, lifetime violations) are returned by New, never
// deferred to first resolution. Resolution-time errors (unknown service,
// scope mismatch) go straight to the caller of Get. Cleanup errors are
// aggregated into a CloseError rather than discarding all but the first.

var (
	// ErrContainerClosed is returned when resolving through a container that
	// has already been closed.
	ErrContainerClosed = errors.New("rivet: container is closed")

	// ErrScopeClosed is returned when resolving through a scope that has
	// already been closed.
	ErrScopeClosed = errors.New("rivet: scope is closed")
)

// DuplicateRegistrationError reports that the same (type, qualifier) pair was
// registered twice.
type DuplicateRegistrationError struct {
	Type      reflect.Type
	Qualifier interface{}
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("rivet: %s is already registered",
		serviceKey{typ: e.Type, qualifier: e.Qualifier})
}

// DuplicateQualifierError reports that two implementations were bound to the
// same interface under the same qualifier.
type DuplicateQualifierError struct {
	Interface reflect.Type
	Qualifier interface{}
	First     reflect.Type
	Second    reflect.Type
}

func (e *DuplicateQualifierError) Error() string {
	return fmt.Sprintf("rivet: interface %s already has %s bound as %s; cannot also bind %s",
		rivetreflect.TypeName(e.Interface),
		rivetreflect.TypeName(e.First),
		serviceKey{typ: e.Interface, qualifier: e.Qualifier},
		rivetreflect.TypeName(e.Second))
}

// InvalidFactoryError reports a constructor whose signature the container
// cannot use: no produced value, multiple produced values, variadic
// parameters, or an As binding the produced type does not satisfy.
type InvalidFactoryError struct {
	Factory interface{}
	Reason  string
}

func (e *InvalidFactoryError) Error() string {
	return fmt.Sprintf("rivet: invalid factory %s: %s",
		rivetreflect.FuncName(e.Factory), e.Reason)
}

// UnknownServiceError reports a resolution or dependency on an identity that
// was never registered.
type UnknownServiceError struct {
	Type      reflect.Type
	Qualifier interface{}

	// Dependent names the registered service whose dependency could not be
	// satisfied, when the error surfaced during graph validation.
	Dependent string
}

func (e *UnknownServiceError) Error() string {
	msg := fmt.Sprintf("rivet: %s is not registered",
		serviceKey{typ: e.Type, qualifier: e.Qualifier})
	if e.Dependent != "" {
		msg += fmt.Sprintf(" (required by %s)", e.Dependent)
	}
	return msg
}

// UnknownQualifierError reports a resolution of a known interface under a
// qualifier that has no binding. Available lists the qualifiers that do.
type UnknownQualifierError struct {
	Interface reflect.Type
	Qualifier interface{}
	Available []interface{}
}

func (e *UnknownQualifierError) Error() string {
	avail := make([]string, len(e.Available))
	for i, q := range e.Available {
		avail[i] = fmt.Sprintf("%v", q)
	}
	return fmt.Sprintf("rivet: no implementation of %s bound for qualifier %v; available qualifiers: [%s]",
		rivetreflect.TypeName(e.Interface), e.Qualifier, strings.Join(avail, ", "))
}

// LifetimeError reports a singleton that depends, directly or transitively,
// on a scoped or transient service. Singletons outlive every scope, so such
// an edge would let a cached singleton hold a dead dependency.
type LifetimeError struct {
	Dependent           reflect.Type
	DependentQualifier  interface{}
	Dependency          reflect.Type
	DependencyQualifier interface{}
	DependencyLifetime  Lifetime
}

func (e *LifetimeError) Error() string {
	return fmt.Sprintf("rivet: singleton %s cannot depend on %s %s",
		serviceKey{typ: e.Dependent, qualifier: e.DependentQualifier},
		e.DependencyLifetime,
		serviceKey{typ: e.Dependency, qualifier: e.DependencyQualifier})
}

// ScopeError reports a scoped or transient service resolved through the root
// container. Non-singleton services need a scope to own their cache and
// cleanup; resolve them through Container.BeginScope.
type ScopeError struct {
	Type      reflect.Type
	Qualifier interface{}
	Lifetime  Lifetime
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("rivet: %s %s can only be resolved inside a scope; use BeginScope",
		e.Lifetime, serviceKey{typ: e.Type, qualifier: e.Qualifier})
}

// CycleError reports a dependency cycle found during graph validation. Path
// holds the rendered identities along the cycle, first repeated last.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("rivet: dependency cycle detected: %s",
		strings.Join(e.Path, " -> "))
}

// ContextRequiredError reports a context-bound operation attempted through a
// context-less entry point: resolving a service whose constructor (or any
// transitive dependency's constructor) takes a context.Context via Get
// instead of GetCtx, or calling Close when a registered cleanup takes a
// context.Context.
type ContextRequiredError struct {
	Type      reflect.Type
	Qualifier interface{}

	// Op is "resolve" or "close".
	Op string
}

func (e *ContextRequiredError) Error() string {
	if e.Op == "close" {
		return "rivet: Close called but registered cleanups take a context.Context; use CloseCtx"
	}
	return fmt.Sprintf("rivet: %s is context-bound; resolve it with GetCtx or ResolveCtx",
		serviceKey{typ: e.Type, qualifier: e.Qualifier})
}

// UnknownOverrideError reports an override of an identity that was never
// registered.
type UnknownOverrideError struct {
	Type      reflect.Type
	Qualifier interface{}
}

func (e *UnknownOverrideError) Error() string {
	return fmt.Sprintf("rivet: cannot override %s: not registered",
		serviceKey{typ: e.Type, qualifier: e.Qualifier})
}

// CloseError aggregates every error raised while draining an exit stack.
// Close keeps running cleanups after a failure, doing a best-effort release,
// and returns everything it saw.
type CloseError struct {
	err error
}

func newCloseError(errs []error) *CloseError {
	return &CloseError{err: multierr.Combine(errs...)}
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("rivet: errors while closing: %v", e.err)
}

// Errors returns the individual cleanup errors.
func (e *CloseError) Errors() []error {
	return multierr.Errors(e.err)
}

func (e *CloseError) Unwrap() error {
	return e.err
}
