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
)

// provide is one pending registration: a constructor plus the declaration
// metadata the options attached to it.
type provide struct {
	Target    interface{}
	Lifetime  Lifetime
	Qualifier interface{}
	As        []reflect.Type
	Module    string

	// IsSupply marks registrations whose constructor was synthesized from a
	// pre-built value.
	IsSupply   bool
	SupplyType reflect.Type
}

// A ProvideOption modifies a single registration.
type ProvideOption interface {
	applyProvide(*provide)
}

type provideOptionFunc func(*provide)

func (f provideOptionFunc) applyProvide(p *provide) { f(p) }

// WithLifetime sets the registration's lifetime. The default is Singleton.
func WithLifetime(l Lifetime) ProvideOption {
	return provideOptionFunc(func(p *provide) {
		p.Lifetime = l
	})
}

// WithQualifier distinguishes this registration from other registrations of
// the same type. Qualifiers must be comparable.
func WithQualifier(qualifier interface{}) ProvideOption {
	return provideOptionFunc(func(p *provide) {
		p.Qualifier = qualifier
	})
}

// As additionally binds the registration to an interface it implements, e.g.
// rivet.As(new(Repository)). The produced type must satisfy the interface;
// New fails otherwise.
func As(iface interface{}) ProvideOption {
	t := reflect.TypeOf(iface)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		panic("rivet: As expects a pointer to an interface, e.g. rivet.As(new(Repository))")
	}
	return provideOptionFunc(func(p *provide) {
		p.As = append(p.As, t.Elem())
	})
}

// Provide registers a constructor with the container. The constructor's
// parameters are its dependencies; it may optionally take a context.Context
// first, or a single struct embedding In for annotated dependencies. It must
// return the produced value, optionally followed by a cleanup function
// (func(), func() error, or func(context.Context) error) and an error:
//
//	rivet.Provide(func(cfg *Config) (*DB, func() error, error) { ... },
//		rivet.WithLifetime(rivet.Scoped))
func Provide(constructor interface{}, opts ...ProvideOption) Option {
	p := provide{Target: constructor, Lifetime: Singleton}
	for _, opt := range opts {
		opt.applyProvide(&p)
	}
	return optionFunc(func(s *settings) {
		p.Module = s.curModule
		s.provides = append(s.provides, p)
	})
}

// Supply registers a pre-built value as a singleton, as if by
// rivet.Provide(func() T { return value }). Supply panics if the value is an
// untyped nil or an error.
func Supply(value interface{}, opts ...ProvideOption) Option {
	p := provide{
		Target:     newSupplyConstructor(value),
		Lifetime:   Singleton,
		IsSupply:   true,
		SupplyType: reflect.TypeOf(value),
	}
	for _, opt := range opts {
		opt.applyProvide(&p)
	}
	return optionFunc(func(s *settings) {
		p.Module = s.curModule
		s.provides = append(s.provides, p)
	})
}

// Abstract declares an interface as a service with no implementation of its
// own: rivet.Abstract(new(Repository)). Registrations whose produced type
// satisfies the interface bind to it automatically, each under its own
// qualifier; resolving the interface picks the binding for the requested
// qualifier.
func Abstract(iface interface{}) Option {
	t := reflect.TypeOf(iface)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		panic("rivet: Abstract expects a pointer to an interface, e.g. rivet.Abstract(new(Repository))")
	}
	return optionFunc(func(s *settings) {
		s.abstracts = append(s.abstracts, t.Elem())
	})
}

// Returns a function that takes no parameters, and returns the given value.
func newSupplyConstructor(value interface{}) interface{} {
	switch value.(type) {
	case nil:
		panic("untyped nil passed to rivet.Supply")
	case error:
		panic("error value passed to rivet.Supply")
	}

	returnTypes := []reflect.Type{reflect.TypeOf(value)}
	returnValues := []reflect.Value{reflect.ValueOf(value)}

	ft := reflect.FuncOf([]reflect.Type{}, returnTypes, false)
	fv := reflect.MakeFunc(ft, func([]reflect.Value) []reflect.Value {
		return returnValues
	})

	return fv.Interface()
}
