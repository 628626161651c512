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
	"strings"
	"sync"

	"go.uber.org/rivet/config"
	"go.uber.org/rivet/internal/rivetlog"
	"go.uber.org/rivet/rivetevent"
)

// Container is the root resolution context. It owns the compiled factory
// table, the singleton cache and its exit stack, and the override state
// shared with every scope.
//
// The registry and factories are built once by New and immutable afterwards;
// registration is closed. Only the caches mutate, and only under the
// container's locks.
type Container struct {
	reg       *registry
	factories map[serviceKey]*compiledFactory
	overrides *overrideStore
	store     *config.Store
	log       rivetevent.Logger

	concurrentScoped bool

	mu         sync.RWMutex
	singletons map[serviceKey]reflect.Value
	locks      map[serviceKey]*sync.Mutex
	exits      []exitEntry
	closed     bool
}

// New builds a container from the given options: it registers every
// declaration, validates the dependency graph, and compiles one specialized
// resolver per identity. All structural errors -- duplicates, unknown
// dependencies, unknown config keys, lifetime violations, cycles -- are
// returned here, never deferred to first resolution.
func New(opts ...Option) (*Container, error) {
	var s settings
	for _, opt := range opts {
		opt.apply(&s)
	}
	log := s.logger
	if log == nil {
		log = rivetlog.Default()
	}

	reg := newRegistry(s.store)
	for _, iface := range s.abstracts {
		if err := reg.registerAbstract(iface); err != nil {
			return nil, err
		}
		log.LogEvent(&rivetevent.Abstracted{InterfaceName: iface.String()})
	}
	for _, p := range s.provides {
		svc, err := reg.register(p)
		if p.IsSupply {
			ev := &rivetevent.Supplied{
				Qualifier:  p.Qualifier,
				ModuleName: p.Module,
				Err:        err,
			}
			if p.SupplyType != nil {
				ev.TypeName = p.SupplyType.String()
			}
			log.LogEvent(ev)
		} else {
			ev := &rivetevent.Provided{
				Lifetime:   p.Lifetime.String(),
				Qualifier:  p.Qualifier,
				ModuleName: p.Module,
				Err:        err,
			}
			if svc != nil {
				ev.ConstructorName = svc.ctorName
				ev.OutputTypeName = svc.key.typ.String()
			}
			log.LogEvent(ev)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := reg.validate(); err != nil {
		log.LogEvent(&rivetevent.Validated{Err: err})
		return nil, err
	}

	factories := compile(reg, s.concurrentScoped)
	log.LogEvent(&rivetevent.Validated{Services: len(reg.services)})

	return &Container{
		reg:              reg,
		factories:        factories,
		overrides:        newOverrideStore(),
		store:            s.store,
		log:              log,
		concurrentScoped: s.concurrentScoped,
		singletons:       make(map[serviceKey]reflect.Value),
		locks:            make(map[serviceKey]*sync.Mutex),
	}, nil
}

// Get resolves a service into target, which must be a pointer:
//
//	var db *Database
//	err := c.Get(&db)
//
// Get is the context-less entry point; resolving a context-bound service
// through it fails with a ContextRequiredError.
func (c *Container) Get(target interface{}, opts ...ResolveOption) error {
	return c.getInto(nil, target, opts)
}

// GetCtx is Get with a context passed through to context-taking
// constructors.
func (c *Container) GetCtx(ctx context.Context, target interface{}, opts ...ResolveOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.getInto(ctx, target, opts)
}

// getInto resolves into the target pointer. A nil ctx marks the context-less
// path.
func (c *Container) getInto(ctx context.Context, target interface{}, opts []ResolveOption) error {
	cfg := newResolveConfig(opts)
	key, err := keyOf(target, cfg.qualifier)
	if err != nil {
		return err
	}
	v, err := c.resolveKey(ctx, key, nil)
	if err != nil {
		return err
	}
	reflect.ValueOf(target).Elem().Set(v)
	return nil
}

// resolveKey is the shared resolution path for the container and its scopes:
// overrides first, then the identity's compiled factory (which consults its
// cache itself).
func (c *Container) resolveKey(ctx context.Context, key serviceKey, sc *Scope) (reflect.Value, error) {
	if c.isClosed() {
		return reflect.Value{}, ErrContainerClosed
	}

	if v, ok := c.overrides.get(key); ok {
		return v, nil
	}
	cf, err := c.lookupFactory(key)
	if err != nil {
		return reflect.Value{}, err
	}
	if ctx == nil {
		if cf.ctxBound {
			return reflect.Value{}, &ContextRequiredError{
				Type:      key.typ,
				Qualifier: key.qualifier,
				Op:        "resolve",
			}
		}
		ctx = context.Background()
	}
	if sc == nil {
		return cf.root(ctx, c, nil)
	}
	return cf.scoped(ctx, c, sc)
}

// lookupFactory finds the compiled factory for an identity, distinguishing
// "type never registered" from "interface known but qualifier unbound" for
// diagnosability.
func (c *Container) lookupFactory(key serviceKey) (*compiledFactory, error) {
	if cf, ok := c.factories[key]; ok {
		return cf, nil
	}
	if impls, ok := c.reg.interfaces[key.typ]; ok {
		return nil, &UnknownQualifierError{
			Interface: key.typ,
			Qualifier: key.qualifier,
			Available: sortedQualifiers(impls),
		}
	}
	return nil, &UnknownServiceError{Type: key.typ, Qualifier: key.qualifier}
}

// Invoke resolves fn's parameters and calls it once. If any parameter is
// scoped or transient, the call runs inside a temporary scope that closes
// when fn returns; otherwise no scope is entered. If fn's last return value
// is an error, Invoke returns it.
func (c *Container) Invoke(fn interface{}) error {
	return c.invoke(nil, fn)
}

// InvokeCtx is Invoke with a context passed through to context-taking
// constructors and to fn itself if it takes one.
func (c *Container) InvokeCtx(ctx context.Context, fn interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.invoke(ctx, fn)
}

func (c *Container) invoke(ctx context.Context, fn interface{}) (err error) {
	fnT := reflect.TypeOf(fn)
	if fnT == nil || fnT.Kind() != reflect.Func {
		return &InvalidFactoryError{Factory: fn, Reason: "Invoke requires a function"}
	}

	startArg := 0
	takesCtx := fnT.NumIn() > 0 && fnT.In(0) == contextType
	if takesCtx {
		startArg = 1
	}
	params, inArg, aerr := analyzeParams(fnT, startArg)
	if aerr != nil {
		return aerr
	}

	needsScope := false
	for _, p := range params {
		if p.configExpr != "" {
			continue
		}
		cf, lerr := c.lookupFactory(serviceKey{typ: p.typ, qualifier: p.qualifier})
		if lerr != nil {
			if p.optional {
				continue
			}
			return lerr
		}
		if cf.lifetime != Singleton {
			needsScope = true
		}
	}

	var sc *Scope
	if needsScope {
		var serr error
		sc, serr = c.BeginScope()
		if serr != nil {
			return serr
		}
		defer func() {
			cerr := sc.closeWith(ctx)
			if err == nil {
				err = cerr
			}
		}()
	}

	args := make([]reflect.Value, fnT.NumIn())
	if takesCtx {
		callCtx := ctx
		if callCtx == nil {
			callCtx = context.Background()
		}
		args[0] = reflect.ValueOf(callCtx)
	}
	if inArg >= 0 {
		in := reflect.New(fnT.In(inArg)).Elem()
		for _, p := range params {
			v, rerr := c.resolveAdHoc(ctx, p, sc)
			if rerr != nil {
				return rerr
			}
			in.Field(p.fieldIndex).Set(v)
		}
		args[inArg] = in
	} else {
		for _, p := range params {
			v, rerr := c.resolveAdHoc(ctx, p, sc)
			if rerr != nil {
				return rerr
			}
			args[p.argIndex] = v
		}
	}

	outs := reflect.ValueOf(fn).Call(args)
	if n := len(outs); n > 0 && fnT.Out(n-1) == errorType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

// resolveAdHoc resolves one parameter of a function that wasn't part of the
// compiled graph (Invoke targets, injection wrappers): config through the
// store, services through the shared resolution path, missing optionals as
// zero values.
func (c *Container) resolveAdHoc(ctx context.Context, p param, sc *Scope) (reflect.Value, error) {
	if p.configExpr != "" {
		if c.store == nil {
			return reflect.Value{}, &config.UnknownKeyError{Key: p.configExpr}
		}
		if strings.Contains(p.configExpr, "$") {
			expanded, err := c.store.Expand(p.configExpr)
			if err != nil {
				return reflect.Value{}, err
			}
			return convertConfigValue(config.NewValue(p.configExpr, expanded), p.typ)
		}
		v, err := c.store.Get(p.configExpr)
		if err != nil {
			return reflect.Value{}, err
		}
		return convertConfigValue(v, p.typ)
	}

	v, err := c.resolveKey(ctx, serviceKey{typ: p.typ, qualifier: p.qualifier}, sc)
	if err != nil {
		if p.optional {
			return reflect.Zero(p.typ), nil
		}
		return reflect.Value{}, err
	}
	return v, nil
}

// Close drains the container's global exit stack, releasing every singleton
// that registered a cleanup, in reverse construction order. Errors from
// individual cleanups are aggregated into a CloseError. Close fails with a
// ContextRequiredError, draining nothing, if any cleanup takes a
// context.Context; use CloseCtx.
func (c *Container) Close() error {
	return c.closeExits(nil)
}

// CloseCtx is Close with a context passed through to context-taking
// cleanups.
func (c *Container) CloseCtx(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.closeExits(ctx)
}

func (c *Container) closeExits(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if ctx == nil {
		for _, e := range c.exits {
			if e.needsCtx {
				c.mu.Unlock()
				return &ContextRequiredError{Op: "close"}
			}
		}
		ctx = context.Background()
	}
	c.closed = true
	exits := c.exits
	c.exits = nil
	c.mu.Unlock()

	err := drainExits(ctx, exits)
	c.log.LogEvent(&rivetevent.Closed{Err: err})
	if err != nil {
		return err
	}
	return nil
}

// drainExits runs cleanups newest-first, collecting every error instead of
// stopping at the first so a failed release doesn't leak the rest.
func drainExits(ctx context.Context, exits []exitEntry) error {
	var errs []error
	for i := len(exits) - 1; i >= 0; i-- {
		if err := exits[i].run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return newCloseError(errs)
	}
	return nil
}

func (c *Container) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Container) cachedSingleton(key serviceKey) (reflect.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.singletons[key]
	return v, ok
}

func (c *Container) storeSingleton(key serviceKey, v reflect.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.singletons[key] = v
}

// singletonLock returns the lazily-created per-identity construction lock.
func (c *Container) singletonLock(key serviceKey) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	mu, ok := c.locks[key]
	if !ok {
		mu = new(sync.Mutex)
		c.locks[key] = mu
	}
	return mu
}

func (c *Container) pushExit(e exitEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exits = append(c.exits, e)
}
