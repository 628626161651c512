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
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/rivet/config"
	"go.uber.org/rivet/internal/rivetreflect"
)

// service is one validated registration: the constructor, its analyzed
// signature, and its dependency metadata. Services are built once during New
// and immutable afterwards.
type service struct {
	key      serviceKey
	lifetime Lifetime

	ctor     reflect.Value
	ctorType reflect.Type
	ctorName string
	module   string
	supplied bool

	takesCtx bool
	inArg    int // index of the In-struct argument, -1 if none
	params   []param

	outIndex          int
	errIndex          int
	cleanupIndex      int
	cleanupNeedsCtx   bool
	cleanupReturnsErr bool

	// ctxBound is true when this constructor, or any constructor it
	// transitively depends on, takes a context.Context. Context-bound
	// services can only be resolved through the context-aware entry points.
	ctxBound bool
}

// registry holds every registration and the interface binding table, and
// validates the dependency graph eagerly so misconfiguration surfaces during
// New, not in a request path.
type registry struct {
	services map[serviceKey]*service
	order    []serviceKey

	// interfaces maps a declared or As-bound interface to its concrete
	// binding per qualifier.
	interfaces map[reflect.Type]map[interface{}]serviceKey
	abstracts  map[reflect.Type]struct{}

	store *config.Store
}

func newRegistry(store *config.Store) *registry {
	return &registry{
		services:   make(map[serviceKey]*service),
		interfaces: make(map[reflect.Type]map[interface{}]serviceKey),
		abstracts:  make(map[reflect.Type]struct{}),
		store:      store,
	}
}

// registerAbstract declares an interface as a resolvable identity with no
// implementation of its own.
func (r *registry) registerAbstract(t reflect.Type) error {
	if t.Kind() != reflect.Interface {
		return fmt.Errorf("rivet: Abstract requires an interface, got %s", rivetreflect.TypeName(t))
	}
	r.abstracts[t] = struct{}{}
	if _, ok := r.interfaces[t]; !ok {
		r.interfaces[t] = make(map[interface{}]serviceKey)
	}
	return nil
}

// register analyzes one constructor and stores its metadata. It computes the
// produced type, rejects duplicate identities, binds declared interfaces,
// and normalizes the constructor's parameters into dependency metadata.
func (r *registry) register(p provide) (*service, error) {
	ctorType := reflect.TypeOf(p.Target)
	if ctorType == nil || ctorType.Kind() != reflect.Func {
		return nil, &InvalidFactoryError{Factory: p.Target, Reason: "constructor must be a function"}
	}
	if ctorType.IsVariadic() {
		return nil, &InvalidFactoryError{Factory: p.Target, Reason: "variadic constructors are not supported"}
	}

	svc := &service{
		lifetime:     p.Lifetime,
		ctor:         reflect.ValueOf(p.Target),
		ctorType:     ctorType,
		module:       p.Module,
		supplied:     p.IsSupply,
		inArg:        -1,
		outIndex:     -1,
		errIndex:     -1,
		cleanupIndex: -1,
	}
	if p.IsSupply {
		svc.ctorName = rivetreflect.TypeName(p.SupplyType)
	} else {
		svc.ctorName = rivetreflect.FuncName(p.Target)
	}

	// Classify the returns: the produced value, then optionally a cleanup
	// function, then optionally an error last.
	for i := 0; i < ctorType.NumOut(); i++ {
		out := ctorType.Out(i)
		switch {
		case out == errorType:
			if i != ctorType.NumOut()-1 {
				return nil, &InvalidFactoryError{Factory: p.Target, Reason: "error must be the last return value"}
			}
			svc.errIndex = i
		case svc.outIndex >= 0:
			if ok, needsCtx, returnsErr := isCleanupType(out); ok && svc.cleanupIndex < 0 {
				svc.cleanupIndex = i
				svc.cleanupNeedsCtx = needsCtx
				svc.cleanupReturnsErr = returnsErr
				continue
			}
			return nil, &InvalidFactoryError{Factory: p.Target, Reason: "constructor must produce exactly one value"}
		default:
			svc.outIndex = i
		}
	}
	if svc.outIndex < 0 {
		return nil, &InvalidFactoryError{Factory: p.Target, Reason: "constructor has no return value to register"}
	}

	startArg := 0
	if ctorType.NumIn() > 0 && ctorType.In(0) == contextType {
		svc.takesCtx = true
		startArg = 1
	}

	params, inArg, err := analyzeParams(ctorType, startArg)
	if err != nil {
		return nil, err
	}
	svc.params = params
	svc.inArg = inArg

	produced := ctorType.Out(svc.outIndex)
	svc.key = serviceKey{typ: produced, qualifier: p.Qualifier}
	if _, exists := r.services[svc.key]; exists {
		return nil, &DuplicateRegistrationError{Type: produced, Qualifier: p.Qualifier}
	}

	// Explicit As bindings first, then automatic binding against every
	// declared abstract the produced type satisfies.
	for _, iface := range p.As {
		if !produced.Implements(iface) {
			return nil, &InvalidFactoryError{
				Factory: p.Target,
				Reason: fmt.Sprintf("%s does not implement %s",
					rivetreflect.TypeName(produced), rivetreflect.TypeName(iface)),
			}
		}
		if err := r.bind(iface, svc.key); err != nil {
			return nil, err
		}
	}
	for iface := range r.abstracts {
		if produced != iface && produced.Implements(iface) && !containsType(p.As, iface) {
			if err := r.bind(iface, svc.key); err != nil {
				return nil, err
			}
		}
	}

	r.services[svc.key] = svc
	r.order = append(r.order, svc.key)
	return svc, nil
}

func (r *registry) bind(iface reflect.Type, impl serviceKey) error {
	m, ok := r.interfaces[iface]
	if !ok {
		m = make(map[interface{}]serviceKey)
		r.interfaces[iface] = m
	}
	if first, exists := m[impl.qualifier]; exists {
		return &DuplicateQualifierError{
			Interface: iface,
			Qualifier: impl.qualifier,
			First:     first.typ,
			Second:    impl.typ,
		}
	}
	m[impl.qualifier] = impl
	return nil
}

// resolveInterface returns the concrete identity bound to an interface under
// a qualifier.
func (r *registry) resolveInterface(iface reflect.Type, qualifier interface{}) (serviceKey, error) {
	m, ok := r.interfaces[iface]
	if !ok {
		return serviceKey{}, &UnknownServiceError{Type: iface, Qualifier: qualifier}
	}
	impl, ok := m[qualifier]
	if !ok {
		return serviceKey{}, &UnknownQualifierError{
			Interface: iface,
			Qualifier: qualifier,
			Available: sortedQualifiers(m),
		}
	}
	return impl, nil
}

// validate runs the eager graph checks: every config key must exist, every
// dependency must be registered (or optional), singletons may only depend on
// singletons, and the graph must be acyclic. It also computes the transitive
// context-bound flag for every service.
func (r *registry) validate() error {
	for _, key := range r.order {
		svc := r.services[key]
		kept := svc.params[:0]
		for _, p := range svc.params {
			resolved, err := r.resolveParam(svc, p)
			if err != nil {
				return err
			}
			kept = append(kept, resolved)
		}
		svc.params = kept
	}

	if err := r.checkLifetimes(); err != nil {
		return err
	}
	if err := r.checkCycles(); err != nil {
		return err
	}
	r.propagateCtxBound()
	return nil
}

// resolveParam classifies one dependency edge: a config injection, a known
// service (interfaces canonicalized to their binding), or a dropped optional.
func (r *registry) resolveParam(svc *service, p param) (param, error) {
	if p.configExpr != "" {
		if r.store == nil {
			return p, fmt.Errorf("rivet: %s parameter %s needs config %q but no store was attached; use rivet.WithConfig",
				svc.key, p.name, p.configExpr)
		}
		for _, ref := range templateRefs(p.configExpr) {
			if _, err := r.store.Get(ref); err != nil {
				return p, err
			}
		}
		return p, nil
	}

	direct := serviceKey{typ: p.typ, qualifier: p.qualifier}
	if _, ok := r.services[direct]; ok {
		p.isDep = true
		p.dep = direct
		return p, nil
	}
	if p.typ.Kind() == reflect.Interface {
		if m, ok := r.interfaces[p.typ]; ok && len(m) > 0 {
			impl, err := r.resolveInterface(p.typ, p.qualifier)
			if err != nil {
				if p.optional {
					p.skip = true
					return p, nil
				}
				return p, err
			}
			p.isDep = true
			p.dep = impl
			return p, nil
		}
	}
	if p.optional {
		p.skip = true
		return p, nil
	}
	return p, &UnknownServiceError{
		Type:      p.typ,
		Qualifier: p.qualifier,
		Dependent: svc.key.String(),
	}
}

// checkLifetimes rejects singleton services with non-singleton dependencies.
// The pairwise check is transitive: every node on a path out of a valid
// singleton is itself a checked singleton.
func (r *registry) checkLifetimes() error {
	for _, key := range r.order {
		svc := r.services[key]
		if svc.lifetime != Singleton {
			continue
		}
		for _, p := range svc.params {
			if !p.isDep || p.skip {
				continue
			}
			dep := r.services[p.dep]
			if dep.lifetime != Singleton {
				return &LifetimeError{
					Dependent:           svc.key.typ,
					DependentQualifier:  svc.key.qualifier,
					Dependency:          dep.key.typ,
					DependencyQualifier: dep.key.qualifier,
					DependencyLifetime:  dep.lifetime,
				}
			}
		}
	}
	return nil
}

// checkCycles runs a depth-first search over the dependency graph and
// renders the full path of any cycle it finds.
func (r *registry) checkCycles() error {
	const (
		white = iota // unvisited
		grey         // on the current path
		black        // fully explored
	)
	colors := make(map[serviceKey]int, len(r.services))

	var path []serviceKey
	var visit func(key serviceKey) error
	visit = func(key serviceKey) error {
		colors[key] = grey
		path = append(path, key)
		for _, p := range r.services[key].params {
			if !p.isDep || p.skip {
				continue
			}
			switch colors[p.dep] {
			case grey:
				cycle := append(pathFrom(path, p.dep), p.dep)
				rendered := make([]string, len(cycle))
				for i, k := range cycle {
					rendered[i] = k.String()
				}
				return &CycleError{Path: rendered}
			case white:
				if err := visit(p.dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		colors[key] = black
		return nil
	}

	for _, key := range r.order {
		if colors[key] == white {
			if err := visit(key); err != nil {
				return err
			}
		}
	}
	return nil
}

// propagateCtxBound marks every service whose constructor, or any transitive
// dependency's constructor, takes a context.Context.
func (r *registry) propagateCtxBound() {
	memo := make(map[serviceKey]bool, len(r.services))
	var bound func(key serviceKey) bool
	bound = func(key serviceKey) bool {
		if b, ok := memo[key]; ok {
			return b
		}
		svc := r.services[key]
		// Seed with the local flag so self-references settle; cycles were
		// ruled out above.
		memo[key] = svc.takesCtx
		b := svc.takesCtx
		for _, p := range svc.params {
			if p.isDep && !p.skip && bound(p.dep) {
				b = true
			}
		}
		memo[key] = b
		svc.ctxBound = b
		return b
	}
	for _, key := range r.order {
		bound(key)
	}
}

func pathFrom(path []serviceKey, start serviceKey) []serviceKey {
	for i, k := range path {
		if k == start {
			return append([]serviceKey(nil), path[i:]...)
		}
	}
	return append([]serviceKey(nil), path...)
}

func containsType(types []reflect.Type, t reflect.Type) bool {
	for _, c := range types {
		if c == t {
			return true
		}
	}
	return false
}

func sortedQualifiers(m map[interface{}]serviceKey) []interface{} {
	quals := make([]interface{}, 0, len(m))
	for q := range m {
		quals = append(quals, q)
	}
	sort.Slice(quals, func(i, j int) bool {
		return fmt.Sprint(quals[i]) < fmt.Sprint(quals[j])
	})
	return quals
}

// templateRefs returns the keys a config expression reads: the ${key}
// references of a template, or the expression itself when it is a plain key.
func templateRefs(expr string) []string {
	if !strings.Contains(expr, "$") {
		return []string{expr}
	}
	var refs []string
	os.Expand(expr, func(ref string) string {
		refs = append(refs, ref)
		return ""
	})
	return refs
}
