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
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/rivet/config"
)

// The compiler turns the validated registry into one specialized resolver
// per identity. All per-resolution decisions that don't depend on runtime
// state -- which cache to consult, whether the constructor takes a context,
// where cleanups go, how each dependency resolves -- are taken here, once,
// so the resolvers themselves run without generic dispatch.

// resolverFunc resolves one identity. sc is nil when resolving through the
// root container.
type resolverFunc func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error)

// depEdge produces the value for one constructor parameter.
type depEdge func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error)

// compiledFactory is the specialized resolver pair for one identity: the
// root variant used without a scope, and the scoped variant. For
// non-singleton lifetimes the root variant unconditionally fails with a
// ScopeError, which enforces "no scoped resolution outside a scope" without
// a per-call check.
type compiledFactory struct {
	key      serviceKey
	lifetime Lifetime
	ctxBound bool

	root   resolverFunc
	scoped resolverFunc
}

// exitEntry is one pending cleanup, pushed when a constructor returns a
// cleanup function and drained in reverse order when the owning scope (or
// the container, for singletons) closes.
type exitEntry struct {
	key        serviceKey
	fn         reflect.Value
	needsCtx   bool
	returnsErr bool
}

func (e exitEntry) run(ctx context.Context) error {
	var outs []reflect.Value
	if e.needsCtx {
		outs = e.fn.Call([]reflect.Value{reflect.ValueOf(ctx)})
	} else {
		outs = e.fn.Call(nil)
	}
	if e.returnsErr && !outs[0].IsNil() {
		return fmt.Errorf("rivet: closing %s: %w", e.key, outs[0].Interface().(error))
	}
	return nil
}

type compiler struct {
	reg              *registry
	store            *config.Store
	concurrentScoped bool
	factories        map[serviceKey]*compiledFactory
}

// compile builds the full resolver table. Shells are allocated first so
// dependency edges can capture their children directly, then every shell is
// filled, then interface identities are aliased onto their bound concrete
// factories so interface and concrete resolution share one cache slot.
func compile(reg *registry, concurrentScoped bool) map[serviceKey]*compiledFactory {
	cp := &compiler{
		reg:              reg,
		store:            reg.store,
		concurrentScoped: concurrentScoped,
		factories:        make(map[serviceKey]*compiledFactory, len(reg.services)),
	}

	for _, key := range reg.order {
		svc := reg.services[key]
		cp.factories[key] = &compiledFactory{
			key:      key,
			lifetime: svc.lifetime,
			ctxBound: svc.ctxBound,
		}
	}
	for _, key := range reg.order {
		cp.build(reg.services[key])
	}

	for iface, impls := range reg.interfaces {
		for qualifier, impl := range impls {
			alias := serviceKey{typ: iface, qualifier: qualifier}
			if _, taken := reg.services[alias]; taken {
				continue
			}
			cp.factories[alias] = cp.factories[impl]
		}
	}
	return cp.factories
}

func (cp *compiler) build(svc *service) {
	cf := cp.factories[svc.key]
	switch svc.lifetime {
	case Singleton:
		// Singleton dependencies are themselves singletons (validated), so
		// one constructor built against root edges serves both variants.
		construct := cp.construct(svc, false)
		resolver := cp.singletonResolver(svc, construct)
		cf.root = resolver
		cf.scoped = resolver
	case Scoped:
		cf.root = scopeMismatch(svc)
		cf.scoped = cp.scopedResolver(svc, cp.construct(svc, true))
	case Transient:
		cf.root = scopeMismatch(svc)
		cf.scoped = cp.construct(svc, true)
	}
}

func scopeMismatch(svc *service) resolverFunc {
	err := &ScopeError{
		Type:      svc.key.typ,
		Qualifier: svc.key.qualifier,
		Lifetime:  svc.lifetime,
	}
	return func(context.Context, *Container, *Scope) (reflect.Value, error) {
		return reflect.Value{}, err
	}
}

// singletonResolver guards the double-checked "miss, construct, store"
// section with a per-identity lock so N concurrent first resolutions perform
// exactly one construction.
func (cp *compiler) singletonResolver(svc *service, construct resolverFunc) resolverFunc {
	key := svc.key
	return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
		if v, ok := c.cachedSingleton(key); ok {
			return v, nil
		}
		mu := c.singletonLock(key)
		mu.Lock()
		defer mu.Unlock()
		if v, ok := c.cachedSingleton(key); ok {
			return v, nil
		}
		v, err := construct(ctx, c, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		c.storeSingleton(key, v)
		return v, nil
	}
}

func (cp *compiler) scopedResolver(svc *service, construct resolverFunc) resolverFunc {
	key := svc.key
	if cp.concurrentScoped {
		return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
			if v, ok := sc.cachedObject(key); ok {
				return v, nil
			}
			mu := sc.objectLock(key)
			mu.Lock()
			defer mu.Unlock()
			if v, ok := sc.cachedObject(key); ok {
				return v, nil
			}
			v, err := construct(ctx, c, sc)
			if err != nil {
				return reflect.Value{}, err
			}
			sc.storeObject(key, v)
			return v, nil
		}
	}

	// Default mode: cache reads and writes are still map-safe, but two
	// goroutines missing at once will both construct, last store winning.
	// See ConcurrentScopedAccess.
	return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
		if v, ok := sc.cachedObject(key); ok {
			return v, nil
		}
		v, err := construct(ctx, c, sc)
		if err != nil {
			return reflect.Value{}, err
		}
		sc.storeObject(key, v)
		return v, nil
	}
}

// construct builds the "call the constructor" core: wire each dependency
// through its precomputed edge, invoke, unpack the produced value, register
// any cleanup with the owning exit stack.
func (cp *compiler) construct(svc *service, scoped bool) resolverFunc {
	edges := make([]depEdge, len(svc.params))
	for i, p := range svc.params {
		edges[i] = cp.edge(p, scoped)
	}

	var (
		key          = svc.key
		ctor         = svc.ctor
		numIn        = svc.ctorType.NumIn()
		takesCtx     = svc.takesCtx
		inArg        = svc.inArg
		inType       reflect.Type
		params       = svc.params
		outIndex     = svc.outIndex
		errIndex     = svc.errIndex
		cleanupIndex = svc.cleanupIndex
		needsCtx     = svc.cleanupNeedsCtx
		returnsErr   = svc.cleanupReturnsErr
		singleton    = svc.lifetime == Singleton
	)
	if inArg >= 0 {
		inType = svc.ctorType.In(inArg)
	}

	return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
		args := make([]reflect.Value, numIn)
		if takesCtx {
			args[0] = reflect.ValueOf(ctx)
		}
		if inArg >= 0 {
			in := reflect.New(inType).Elem()
			for i, edge := range edges {
				v, err := edge(ctx, c, sc)
				if err != nil {
					return reflect.Value{}, err
				}
				in.Field(params[i].fieldIndex).Set(v)
			}
			args[inArg] = in
		} else {
			for i, edge := range edges {
				v, err := edge(ctx, c, sc)
				if err != nil {
					return reflect.Value{}, err
				}
				args[params[i].argIndex] = v
			}
		}

		outs := ctor.Call(args)
		if errIndex >= 0 && !outs[errIndex].IsNil() {
			return reflect.Value{}, fmt.Errorf("rivet: constructing %s: %w",
				key, outs[errIndex].Interface().(error))
		}

		if cleanupIndex >= 0 && !outs[cleanupIndex].IsNil() {
			entry := exitEntry{
				key:        key,
				fn:         outs[cleanupIndex],
				needsCtx:   needsCtx,
				returnsErr: returnsErr,
			}
			if singleton {
				c.pushExit(entry)
			} else {
				sc.pushExit(entry)
			}
		}
		return outs[outIndex], nil
	}
}

// edge compiles one dependency: a zero value for dropped optionals, a config
// fetch, or a direct call into the dependency's own compiled resolver --
// checked against active overrides first so overriding a type also affects
// everything that depends on it.
func (cp *compiler) edge(p param, scoped bool) depEdge {
	if p.skip {
		zero := reflect.Zero(p.typ)
		return func(context.Context, *Container, *Scope) (reflect.Value, error) {
			return zero, nil
		}
	}
	if p.configExpr != "" {
		return cp.configEdge(p)
	}

	child := cp.factories[p.dep]
	// Overrides match the dependency as declared, so a constructor asking
	// for an interface sees an override of that interface even though the
	// edge below is bound to the concrete factory.
	depKey := serviceKey{typ: p.typ, qualifier: p.qualifier}
	if scoped {
		return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
			if v, ok := c.overrides.get(depKey); ok {
				return v, nil
			}
			return child.scoped(ctx, c, sc)
		}
	}
	return func(ctx context.Context, c *Container, sc *Scope) (reflect.Value, error) {
		if v, ok := c.overrides.get(depKey); ok {
			return v, nil
		}
		return child.root(ctx, c, sc)
	}
}

func (cp *compiler) configEdge(p param) depEdge {
	store := cp.store
	expr := p.configExpr
	typ := p.typ

	if strings.Contains(expr, "$") {
		return func(context.Context, *Container, *Scope) (reflect.Value, error) {
			expanded, err := store.Expand(expr)
			if err != nil {
				return reflect.Value{}, err
			}
			return convertConfigValue(config.NewValue(expr, expanded), typ)
		}
	}
	return func(context.Context, *Container, *Scope) (reflect.Value, error) {
		v, err := store.Get(expr)
		if err != nil {
			return reflect.Value{}, err
		}
		return convertConfigValue(v, typ)
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// convertConfigValue coerces a configuration value into the parameter's
// type. Structs, maps, and slices decode via Populate.
func convertConfigValue(v config.Value, t reflect.Type) (reflect.Value, error) {
	switch {
	case t == durationType:
		d, err := v.Duration()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil
	case t.Kind() == reflect.String:
		return reflect.ValueOf(v.String()).Convert(t), nil
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Int64:
		n, err := v.Int()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case t.Kind() >= reflect.Uint && t.Kind() <= reflect.Uint64:
		n, err := v.Int()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n).Convert(t), nil
	case t.Kind() == reflect.Bool:
		b, err := v.Bool()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		f, err := v.Float64()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	default:
		out := reflect.New(t)
		if err := v.Populate(out.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return out.Elem(), nil
	}
}
