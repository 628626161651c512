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
)

// In can be embedded in a constructor's sole parameter struct to annotate
// individual dependencies with struct tags:
//
//	type serverParams struct {
//		rivet.In
//
//		Primary Repository `qualifier:"primary"`
//		Replica Repository `qualifier:"replica" optional:"true"`
//		Addr    string     `config:"server.addr"`
//		Greet   string     `config:"${server.name} at ${server.addr}"`
//	}
//
//	func newServer(p serverParams) *Server { ... }
//
// The qualifier tag selects among multiple registrations of the field's
// type. The config tag injects a configuration value: either a plain dotted
// key or a ${key} template expanded against the store. The optional tag
// leaves the field zero if the dependency isn't registered instead of
// failing validation.
type In struct{}

var (
	inMarkerType = reflect.TypeOf(In{})
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// param is the canonical form of one dependency: the raw type plus the
// annotation metadata that governs how it resolves. Every parameter shape
// (plain argument, In-struct field) normalizes to this.
type param struct {
	name string
	typ  reflect.Type

	// argIndex is the constructor argument this param fills. For In-struct
	// fields it is the struct argument's position and fieldIndex names the
	// field within it; fieldIndex is -1 for plain arguments.
	argIndex   int
	fieldIndex int

	qualifier  interface{}
	configExpr string
	optional   bool

	// Set during validation: dep is the canonical identity this param
	// resolves (interfaces resolved to their bound concrete), and skip marks
	// optional params with no registration, injected as zero values.
	isDep bool
	dep   serviceKey
	skip  bool
}

// isInStruct reports whether t is a struct that embeds In.
func isInStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == inMarkerType {
			return true
		}
	}
	return false
}

// analyzeParams normalizes a function's dependency parameters. startArg
// skips a leading context.Context. When the sole remaining parameter is a
// struct embedding In, its fields become the params; otherwise each argument
// becomes a type-only param.
func analyzeParams(fnT reflect.Type, startArg int) (params []param, inStructArg int, err error) {
	inStructArg = -1

	if fnT.NumIn()-startArg == 1 && isInStruct(fnT.In(startArg)) {
		params, err = analyzeInStruct(fnT.In(startArg), startArg)
		return params, startArg, err
	}

	for i := startArg; i < fnT.NumIn(); i++ {
		if fnT.In(i) == contextType {
			return nil, -1, fmt.Errorf("rivet: context.Context is only accepted as the first parameter")
		}
		if isInStruct(fnT.In(i)) {
			return nil, -1, fmt.Errorf("rivet: a struct embedding rivet.In must be the only dependency parameter")
		}
		params = append(params, param{
			name:       fmt.Sprintf("arg%d", i),
			typ:        fnT.In(i),
			argIndex:   i,
			fieldIndex: -1,
		})
	}
	return params, inStructArg, nil
}

// analyzeInStruct normalizes the fields of a struct embedding In into
// params, recorded against the struct's argument position.
func analyzeInStruct(st reflect.Type, argIndex int) ([]param, error) {
	var params []param
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type == inMarkerType {
			continue
		}
		if f.PkgPath != "" {
			return nil, fmt.Errorf("rivet: unexported field %s.%s cannot be injected", st, f.Name)
		}
		p := param{
			name:       f.Name,
			typ:        f.Type,
			argIndex:   argIndex,
			fieldIndex: i,
			configExpr: f.Tag.Get("config"),
			optional:   f.Tag.Get("optional") == "true",
		}
		if q, ok := f.Tag.Lookup("qualifier"); ok {
			p.qualifier = q
		}
		params = append(params, p)
	}
	return params, nil
}

// isCleanupType reports whether t is one of the accepted cleanup function
// shapes, and whether that shape takes a context or returns an error.
func isCleanupType(t reflect.Type) (ok, needsCtx, returnsErr bool) {
	if t.Kind() != reflect.Func || t.IsVariadic() {
		return false, false, false
	}
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != contextType {
			return false, false, false
		}
		needsCtx = true
	default:
		return false, false, false
	}
	switch t.NumOut() {
	case 0:
		if needsCtx {
			// func(context.Context) with no error has no way to report a
			// failed release; require the error return.
			return false, false, false
		}
	case 1:
		if t.Out(0) != errorType {
			return false, false, false
		}
		returnsErr = true
	default:
		return false, false, false
	}
	return true, needsCtx, returnsErr
}
