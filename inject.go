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
)

// injectPlan is the per-wrapper analysis computed once at wrap time: which
// of fn's parameters are injected, which pass through, and whether a call
// needs its own scope.
type injectPlan struct {
	fnT      reflect.Type
	fn       reflect.Value
	takesCtx bool
	inArg    int

	injected    []param
	passthrough []int // fn arg index per wrapper arg, ctx excluded

	needsScope bool
	ownsScope  bool
	errOut     bool
}

// Inject wraps fn into a function value whose signature retains only the
// parameters the container cannot supply: injectable parameters (registered
// service types, embedded In structs, config-tagged fields) are stripped and
// resolved on every call. A leading context.Context stays in the wrapper's
// signature and is forwarded to resolution.
//
//	handler, err := rivet.Inject(c, func(w http.ResponseWriter, db *Database) error { ... })
//	h := handler.(func(http.ResponseWriter) error)
//
// The wrapper's parameter analysis happens here, once; calls pay only for
// resolution. If every injected dependency is a singleton the wrapper binds
// against the container directly; otherwise each call opens a scope that
// closes when fn returns. Resolution errors flow to fn's trailing error
// return if it has one, and panic otherwise.
func Inject(c *Container, fn interface{}) (interface{}, error) {
	return injectWith(fn, c, func() (*Scope, error) { return c.BeginScope() }, true)
}

// MustInject is Inject but panics on analysis error. The wrapper is
// returned pre-asserted work for package-level wiring:
//
//	var handler = rivet.MustInject(c, listUsers).(func(http.ResponseWriter, *http.Request))
func MustInject(c *Container, fn interface{}) interface{} {
	w, err := Inject(c, fn)
	if err != nil {
		panic(err)
	}
	return w
}

// InjectSupplier is the late-bound variant of Inject for callers that only
// know the active scope at call time, such as request middleware that opens
// one scope per request. The supplier runs on every call of the wrapper and
// its scope is resolved against but not closed; the supplier's owner
// controls the scope's lifetime.
func InjectSupplier(c *Container, supplier func() (*Scope, error), fn interface{}) (interface{}, error) {
	return injectWith(fn, c, supplier, false)
}

// injectWith builds the wrapper. ownsScope tells the wrapper whether the
// scope it resolves in belongs to the call (open and close around fn) or to
// the supplier's owner.
func injectWith(fn interface{}, c *Container, supply func() (*Scope, error), ownsScope bool) (interface{}, error) {
	fnT := reflect.TypeOf(fn)
	if fnT == nil || fnT.Kind() != reflect.Func {
		return nil, &InvalidFactoryError{Factory: fn, Reason: "Inject requires a function"}
	}
	if fnT.IsVariadic() {
		return nil, &InvalidFactoryError{Factory: fn, Reason: "variadic functions cannot be wrapped"}
	}

	plan := &injectPlan{fnT: fnT, fn: reflect.ValueOf(fn), inArg: -1, ownsScope: ownsScope}
	start := 0
	if fnT.NumIn() > 0 && fnT.In(0) == contextType {
		plan.takesCtx = true
		start = 1
	}

	var wrapperIns []reflect.Type
	if plan.takesCtx {
		wrapperIns = append(wrapperIns, contextType)
	}
	for i := start; i < fnT.NumIn(); i++ {
		argT := fnT.In(i)
		if isInStruct(argT) {
			if plan.inArg >= 0 {
				return nil, &InvalidFactoryError{Factory: fn, Reason: "multiple In structs"}
			}
			params, err := analyzeInStruct(argT, i)
			if err != nil {
				return nil, err
			}
			plan.inArg = i
			plan.injected = append(plan.injected, params...)
			continue
		}
		// A plain parameter is injected iff its type is registered;
		// everything else passes through the wrapper untouched.
		if _, err := c.lookupFactory(serviceKey{typ: argT}); err == nil {
			plan.injected = append(plan.injected, param{typ: argT, argIndex: i, fieldIndex: -1})
			continue
		}
		plan.passthrough = append(plan.passthrough, i)
		wrapperIns = append(wrapperIns, argT)
	}

	for _, p := range plan.injected {
		if p.configExpr != "" {
			continue
		}
		cf, err := c.lookupFactory(serviceKey{typ: p.typ, qualifier: p.qualifier})
		if err != nil {
			if p.optional {
				continue
			}
			return nil, err
		}
		if cf.lifetime != Singleton {
			plan.needsScope = true
		}
	}

	outs := make([]reflect.Type, fnT.NumOut())
	for i := range outs {
		outs[i] = fnT.Out(i)
	}
	plan.errOut = len(outs) > 0 && outs[len(outs)-1] == errorType

	wrapperT := reflect.FuncOf(wrapperIns, outs, false)
	wrapper := reflect.MakeFunc(wrapperT, func(args []reflect.Value) []reflect.Value {
		return plan.call(c, supply, args)
	})
	return wrapper.Interface(), nil
}

func (plan *injectPlan) call(c *Container, supply func() (*Scope, error), wrapperArgs []reflect.Value) []reflect.Value {
	var ctx context.Context
	next := 0
	if plan.takesCtx {
		ctx, _ = wrapperArgs[0].Interface().(context.Context)
		next = 1
	}

	var sc *Scope
	if plan.needsScope {
		var err error
		sc, err = supply()
		if err != nil {
			return plan.fail(err)
		}
		if plan.ownsScope {
			defer func() {
				_ = sc.closeWith(ctx)
			}()
		}
	}

	args := make([]reflect.Value, plan.fnT.NumIn())
	if plan.takesCtx {
		callCtx := ctx
		if callCtx == nil {
			callCtx = context.Background()
		}
		args[0] = reflect.ValueOf(callCtx)
	}
	for _, argIdx := range plan.passthrough {
		args[argIdx] = wrapperArgs[next]
		next++
	}
	if plan.inArg >= 0 {
		args[plan.inArg] = reflect.New(plan.fnT.In(plan.inArg)).Elem()
	}
	for _, p := range plan.injected {
		v, err := c.resolveAdHoc(ctx, p, sc)
		if err != nil {
			return plan.fail(err)
		}
		if p.fieldIndex >= 0 {
			args[plan.inArg].Field(p.fieldIndex).Set(v)
		} else {
			args[p.argIndex] = v
		}
	}

	return plan.fn.Call(args)
}

// fail routes a resolution error out of the wrapper: through fn's trailing
// error return when it has one, by panic when it doesn't.
func (plan *injectPlan) fail(err error) []reflect.Value {
	if !plan.errOut {
		panic(err)
	}
	outs := make([]reflect.Value, plan.fnT.NumOut())
	for i := 0; i < len(outs)-1; i++ {
		outs[i] = reflect.Zero(plan.fnT.Out(i))
	}
	outs[len(outs)-1] = reflect.ValueOf(err)
	return outs
}
