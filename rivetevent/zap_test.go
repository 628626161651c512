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

package rivetevent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedZap(t *testing.T) (*ZapLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &ZapLogger{Logger: zap.New(core)}, logs
}

func TestZapLogger(t *testing.T) {
	t.Run("provided", func(t *testing.T) {
		log, logs := newObservedZap(t)
		log.LogEvent(&Provided{
			ConstructorName: "main.newDB()",
			OutputTypeName:  "*main.DB",
			Lifetime:        "singleton",
			Qualifier:       "primary",
			ModuleName:      "storage",
		})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "provided", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, "*main.DB", fields["type"])
		assert.Equal(t, "singleton", fields["lifetime"])
		assert.Equal(t, "primary", fields["qualifier"])
		assert.Equal(t, "storage", fields["module"])
	})

	t.Run("provide failure logs at error", func(t *testing.T) {
		log, logs := newObservedZap(t)
		log.LogEvent(&Provided{OutputTypeName: "*main.DB", Err: errors.New("boom")})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	})

	t.Run("scope lifecycle", func(t *testing.T) {
		log, logs := newObservedZap(t)
		log.LogEvent(&ScopeOpened{ScopeID: "abc", ParentID: "root"})
		log.LogEvent(&ScopeClosed{ScopeID: "abc"})

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.Equal(t, "scope opened", entries[0].Message)
		assert.Equal(t, "root", entries[0].ContextMap()["parent"])
		assert.Equal(t, "scope closed", entries[1].Message)
	})

	t.Run("override round trip", func(t *testing.T) {
		log, logs := newObservedZap(t)
		log.LogEvent(&Overridden{TypeName: "*main.DB", Qualifier: "replica"})
		log.LogEvent(&OverrideRestored{TypeName: "*main.DB", Qualifier: "replica"})

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.Equal(t, "*main.DB[replica]", entries[0].ContextMap()["type"])
		assert.Equal(t, "override restored", entries[1].Message)
	})

	t.Run("close failure", func(t *testing.T) {
		log, logs := newObservedZap(t)
		log.LogEvent(&Closed{Err: errors.New("boom")})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "close failed", entries[0].Message)
	})
}
