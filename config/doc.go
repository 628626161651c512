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

// Package config implements the key-value store rivet injects configuration
// from.
//
// A Store is assembled from one or more Sources (static maps, YAML documents,
// dotenv files, command-line flags); later sources shadow earlier ones. Keys
// are dotted paths into nested maps:
//
//	store, err := config.New(
//		config.YAMLFile("base.yaml"),
//		config.DotEnv(".env"),
//	)
//	v, err := store.Get("db.host")
//
// String values may reference other keys with ${key} templates. Templates
// expand lazily on first read and the expansion is cached; Set invalidates
// exactly the cached entries whose expansion referenced the changed key.
package config
