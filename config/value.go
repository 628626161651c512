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

package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

var validate = validator.New()

// Value is a single configuration value, already interpolated if it was a
// string template.
type Value struct {
	key string
	raw interface{}
}

// NewValue wraps an already-resolved raw value. It is used by callers that
// expand templates themselves and still want Value's conversions.
func NewValue(key string, raw interface{}) Value {
	return Value{key: key, raw: raw}
}

// Key returns the dotted path this value was read from.
func (v Value) Key() string { return v.key }

// Raw returns the underlying value without conversion.
func (v Value) Raw() interface{} { return v.raw }

// String renders the value as a string.
func (v Value) String() string {
	return stringify(v.raw)
}

// Int converts the value to an int.
func (v Value) Int() (int, error) {
	switch t := v.raw.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, errors.Wrapf(err, "config: %q is not an int", v.key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("config: %q is %T, not an int", v.key, v.raw)
	}
}

// Bool converts the value to a bool.
func (v Value) Bool() (bool, error) {
	switch t := v.raw.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, errors.Wrapf(err, "config: %q is not a bool", v.key)
		}
		return b, nil
	default:
		return false, fmt.Errorf("config: %q is %T, not a bool", v.key, v.raw)
	}
}

// Float64 converts the value to a float64.
func (v Value) Float64() (float64, error) {
	switch t := v.raw.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "config: %q is not a float", v.key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("config: %q is %T, not a float", v.key, v.raw)
	}
}

// Duration converts the value to a time.Duration, accepting either a Go
// duration string ("250ms") or a number of seconds.
func (v Value) Duration() (time.Duration, error) {
	switch t := v.raw.(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, errors.Wrapf(err, "config: %q is not a duration", v.key)
		}
		return d, nil
	case int:
		return time.Duration(t) * time.Second, nil
	default:
		return 0, fmt.Errorf("config: %q is %T, not a duration", v.key, v.raw)
	}
}

// Populate decodes the value into target, which must be a non-nil pointer.
// Struct targets are decoded via their yaml tags and then validated with
// their validate tags.
func (v Value) Populate(target interface{}) error {
	t := reflect.ValueOf(target)
	if t.Kind() != reflect.Ptr || t.IsNil() {
		return fmt.Errorf("config: Populate target for %q must be a non-nil pointer", v.key)
	}

	// Round-trip through YAML so nested maps decode into struct fields with
	// the same tag conventions the YAML source uses.
	raw, err := yaml.Marshal(v.raw)
	if err != nil {
		return errors.Wrapf(err, "config: encode %q", v.key)
	}
	if err := yaml.Unmarshal(raw, target); err != nil {
		return errors.Wrapf(err, "config: decode %q into %T", v.key, target)
	}

	if t.Elem().Kind() == reflect.Struct {
		if err := validate.Struct(target); err != nil {
			return errors.Wrapf(err, "config: validate %q", v.key)
		}
	}
	return nil
}
