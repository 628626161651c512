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
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// UnknownKeyError reports a lookup of a key the store has no value for,
// directly or through a ${key} template. Parent carries the deepest path
// prefix that did resolve, which pinpoints where a nested lookup went wrong.
type UnknownKeyError struct {
	Key    string
	Parent string
}

func (e *UnknownKeyError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("config: unknown key %q (under %q)", e.Key, e.Parent)
	}
	return fmt.Sprintf("config: unknown key %q", e.Key)
}

// Store is a nested key-value store with lazy ${key} template interpolation.
// It is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]interface{}

	// expanded caches interpolated string values by key. refs maps a key to
	// the set of cached entries whose expansion read it, so Set can
	// invalidate exactly the entries a change affects.
	expanded map[string]string
	refs     map[string]map[string]struct{}
}

// New builds a store from the given sources, loaded in order. Values from
// later sources shadow values from earlier ones; nested maps are merged
// recursively.
func New(sources ...Source) (*Store, error) {
	data := make(map[string]interface{})
	for _, src := range sources {
		tree, err := src.Load()
		if err != nil {
			return nil, errors.Wrapf(err, "load config source %s", src.Name())
		}
		merge(data, tree)
	}
	return &Store{
		data:     data,
		expanded: make(map[string]string),
		refs:     make(map[string]map[string]struct{}),
	}, nil
}

// Has reports whether key resolves to a value.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.lookup(key)
	return err == nil
}

// Get returns the value at the dotted key path. String values have their
// ${key} templates expanded; the expansion is cached until a key it read is
// changed via Set.
func (s *Store) Get(key string) (Value, error) {
	s.mu.RLock()
	if cached, ok := s.expanded[key]; ok {
		s.mu.RUnlock()
		return Value{key: key, raw: cached}, nil
	}
	raw, err := s.lookup(key)
	s.mu.RUnlock()
	if err != nil {
		return Value{}, err
	}

	str, ok := raw.(string)
	if !ok || !strings.Contains(str, "$") {
		return Value{key: key, raw: raw}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	expanded, err := s.expandLocked(key, str)
	if err != nil {
		return Value{}, err
	}
	return Value{key: key, raw: expanded}, nil
}

// Expand interpolates ${key} references in a caller-supplied template
// against the store's current values. Unlike Get, the result is not cached:
// the template is not a stored value and has no key to invalidate by.
func (s *Store) Expand(template string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expanded, _, err := s.expandOne(template, map[string]bool{})
	return expanded, err
}

// Set stores a value at the dotted key path, creating intermediate maps as
// needed, and drops every cached expansion that read the changed key.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	setPath(s.data, key, normalize(value))
	delete(s.expanded, key)
	for dependent := range s.refs[key] {
		delete(s.expanded, dependent)
	}
	delete(s.refs, key)
}

// lookup walks the dotted path through nested maps. Callers hold s.mu.
func (s *Store) lookup(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	var node interface{} = s.data
	for i, part := range parts {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, &UnknownKeyError{Key: key, Parent: strings.Join(parts[:i], ".")}
		}
		node, ok = m[part]
		if !ok {
			return nil, &UnknownKeyError{Key: key, Parent: strings.Join(parts[:i], ".")}
		}
	}
	return node, nil
}

// expandLocked interpolates ${ref} templates in the value at key, records
// every key the expansion read for targeted invalidation, and caches the
// result. Callers hold s.mu for writing.
func (s *Store) expandLocked(key, template string) (string, error) {
	seen := map[string]bool{key: true}
	expanded, touched, err := s.expandOne(template, seen)
	if err != nil {
		return "", err
	}

	s.expanded[key] = expanded
	for _, ref := range touched {
		set, ok := s.refs[ref]
		if !ok {
			set = make(map[string]struct{})
			s.refs[ref] = set
		}
		set[key] = struct{}{}
	}
	return expanded, nil
}

func (s *Store) expandOne(template string, seen map[string]bool) (string, []string, error) {
	var (
		touched []string
		expErr  error
	)
	expanded := os.Expand(template, func(ref string) string {
		if expErr != nil {
			return ""
		}
		if seen[ref] {
			expErr = fmt.Errorf("config: template cycle through %q", ref)
			return ""
		}
		touched = append(touched, ref)

		raw, err := s.lookup(ref)
		if err != nil {
			expErr = err
			return ""
		}
		str, ok := raw.(string)
		if !ok {
			return stringify(raw)
		}
		if !strings.Contains(str, "$") {
			return str
		}

		// Nested template: expand recursively, attributing every key it
		// reads to the outer entry as well.
		seen[ref] = true
		inner, innerTouched, err := s.expandOne(str, seen)
		delete(seen, ref)
		if err != nil {
			expErr = err
			return ""
		}
		touched = append(touched, innerTouched...)
		return inner
	})
	if expErr != nil {
		return "", nil, expErr
	}
	return expanded, touched, nil
}

// merge overlays src onto dst, merging nested maps and shadowing everything
// else.
func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		if sv, ok := v.(map[string]interface{}); ok {
			if dv, ok := dst[k].(map[string]interface{}); ok {
				merge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}

// setPath stores value at a dotted path, creating intermediate maps and
// overwriting non-map intermediates.
func setPath(m map[string]interface{}, key string, value interface{}) {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// normalize rewrites YAML-style map[interface{}]interface{} trees into
// map[string]interface{} so dotted-path lookup has one map shape to walk.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[stringify(k)] = normalize(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
