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

	"go.uber.org/rivet/config"
	"go.uber.org/rivet/rivetevent"
)

// An Option configures a Container during New.
type Option interface {
	apply(*settings)
}

// settings collects everything the options declared before the registry is
// built.
type settings struct {
	provides         []provide
	abstracts        []reflect.Type
	store            *config.Store
	logger           rivetevent.Logger
	concurrentScoped bool

	// curModule is the name of the Module currently applying its children.
	curModule string
}

type optionFunc func(*settings)

func (f optionFunc) apply(s *settings) { f(s) }

// Options composes multiple Options into one.
func Options(opts ...Option) Option {
	return optionFunc(func(s *settings) {
		for _, opt := range opts {
			opt.apply(s)
		}
	})
}

// Module is a named group of zero or more Options. The name is carried on
// the events emitted for the module's registrations, which keeps large
// graphs diagnosable.
func Module(name string, opts ...Option) Option {
	return optionFunc(func(s *settings) {
		prev := s.curModule
		if prev != "" {
			s.curModule = prev + "." + name
		} else {
			s.curModule = name
		}
		for _, opt := range opts {
			opt.apply(s)
		}
		s.curModule = prev
	})
}

// WithConfig attaches a configuration store to the container. Constructor
// parameters tagged config:"key" resolve against it; the keys they name are
// checked eagerly during New.
func WithConfig(store *config.Store) Option {
	return optionFunc(func(s *settings) {
		s.store = store
	})
}

// WithLogger sets the event logger for the container. The default is a
// console logger on stderr.
func WithLogger(logger rivetevent.Logger) Option {
	return optionFunc(func(s *settings) {
		s.logger = logger
	})
}

// ConcurrentScopedAccess makes first access to a scoped service within one
// scope race-free, guarding construction with a per-identity lock exactly as
// singleton construction is guarded.
//
// This is off by default: without it, concurrent first access to the same
// scoped service within a single scope may construct more than one instance,
// with the last one winning the cache slot. Scopes are typically owned by a
// single request goroutine, so the default trades that documented race for
// not paying lock overhead on every scoped resolution.
func ConcurrentScopedAccess() Option {
	return optionFunc(func(s *settings) {
		s.concurrentScoped = true
	})
}

// A ResolveOption modifies a single resolution, override, or injection
// target.
type ResolveOption interface {
	applyResolve(*resolveConfig)
}

type resolveConfig struct {
	qualifier interface{}
}

type resolveOptionFunc func(*resolveConfig)

func (f resolveOptionFunc) applyResolve(c *resolveConfig) { f(c) }

// Qualified selects a specific registration when multiple registrations of
// the requested type exist.
func Qualified(qualifier interface{}) ResolveOption {
	return resolveOptionFunc(func(c *resolveConfig) {
		c.qualifier = qualifier
	})
}

func newResolveConfig(opts []ResolveOption) resolveConfig {
	var cfg resolveConfig
	for _, opt := range opts {
		opt.applyResolve(&cfg)
	}
	return cfg
}
