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
	"reflect"

	"go.uber.org/rivet/internal/rivetreflect"
)

// serviceKey identifies one registration: a type plus an optional qualifier
// distinguishing multiple registrations of that type. Qualifiers must be
// comparable; they are used as map keys.
type serviceKey struct {
	typ       reflect.Type
	qualifier interface{}
}

func (k serviceKey) String() string {
	name := rivetreflect.TypeName(k.typ)
	if k.qualifier == nil {
		return name
	}
	return fmt.Sprintf("%s[qualifier=%v]", name, k.qualifier)
}

// keyOf extracts the service key from a resolution target: a pointer whose
// element type names the service, e.g. new(Database) or new(Repository).
func keyOf(target interface{}, qualifier interface{}) (serviceKey, error) {
	if target == nil {
		return serviceKey{}, fmt.Errorf("rivet: resolution target must be a non-nil pointer")
	}
	t := reflect.TypeOf(target)
	if t.Kind() != reflect.Ptr {
		return serviceKey{}, fmt.Errorf("rivet: resolution target must be a pointer, got %s", rivetreflect.TypeName(t))
	}
	return serviceKey{typ: t.Elem(), qualifier: qualifier}, nil
}
