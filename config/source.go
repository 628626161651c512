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
	"io"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/ogier/pflag"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// A Source contributes a tree of configuration values to a Store. Sources
// are loaded in the order given to New; values from later sources shadow
// values from earlier ones.
type Source interface {
	// Name identifies the source in error messages.
	Name() string

	// Load returns the source's values as a nested map.
	Load() (map[string]interface{}, error)
}

type staticSource struct {
	values map[string]interface{}
}

// Static returns a source backed by an in-memory map. Values may be nested
// maps, and keys may themselves be dotted paths.
func Static(values map[string]interface{}) Source {
	return &staticSource{values: values}
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		setPath(out, k, normalize(v))
	}
	return out, nil
}

type yamlSource struct {
	name string
	open func() (io.ReadCloser, error)
}

// YAML returns a source that reads a YAML document from r.
func YAML(r io.Reader) Source {
	return &yamlSource{
		name: "yaml",
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
	}
}

// YAMLFile returns a source that reads a YAML document from the given path.
func YAMLFile(path string) Source {
	return &yamlSource{
		name: "yaml:" + path,
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

func (s *yamlSource) Name() string { return s.name }

func (s *yamlSource) Load() (map[string]interface{}, error) {
	r, err := s.open()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.name)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.name)
	}

	var doc map[interface{}]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parse %s", s.name)
	}

	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		setPath(out, stringify(k), normalize(v))
	}
	return out, nil
}

type dotenvSource struct {
	paths []string
}

// DotEnv returns a source that reads KEY=value pairs from one or more dotenv
// files. Keys are kept verbatim; use dotted keys in the files to build
// nested values.
func DotEnv(paths ...string) Source {
	return &dotenvSource{paths: paths}
}

func (s *dotenvSource) Name() string { return "dotenv" }

func (s *dotenvSource) Load() (map[string]interface{}, error) {
	pairs, err := godotenv.Read(s.paths...)
	if err != nil {
		return nil, errors.Wrap(err, "read dotenv")
	}
	out := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		setPath(out, k, v)
	}
	return out, nil
}

type flagSource struct {
	set *flag.FlagSet
}

// Flags returns a source backed by a parsed flag set. Only flags that were
// explicitly set contribute values; flag names are treated as dotted paths,
// so --db.host=replica overrides the db.host key.
func Flags(set *flag.FlagSet) Source {
	return &flagSource{set: set}
}

func (s *flagSource) Name() string { return "flags" }

func (s *flagSource) Load() (map[string]interface{}, error) {
	if !s.set.Parsed() {
		return nil, errors.New("flag set passed to config.Flags must be parsed first")
	}
	out := make(map[string]interface{})
	s.set.Visit(func(f *flag.Flag) {
		setPath(out, f.Name, f.Value.String())
	})
	return out, nil
}
