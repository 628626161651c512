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
	"fmt"

	"go.uber.org/zap"
)

// ZapLogger is a rivet event logger that logs events to Zap.
type ZapLogger struct {
	Logger *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

// LogEvent logs the given event to the provided Zap logger.
func (l *ZapLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Provided:
		if e.Err != nil {
			l.Logger.Error("error encountered while providing",
				zap.String("type", e.OutputTypeName),
				zap.Error(e.Err))
			return
		}
		fields := []zap.Field{
			zap.String("constructor", e.ConstructorName),
			zap.String("type", e.OutputTypeName),
			zap.String("lifetime", e.Lifetime),
		}
		if e.Qualifier != nil {
			fields = append(fields, zap.String("qualifier", fmt.Sprint(e.Qualifier)))
		}
		if e.ModuleName != "" {
			fields = append(fields, zap.String("module", e.ModuleName))
		}
		l.Logger.Info("provided", fields...)
	case *Supplied:
		if e.Err != nil {
			l.Logger.Error("error encountered while supplying",
				zap.String("type", e.TypeName),
				zap.Error(e.Err))
			return
		}
		l.Logger.Info("supplied", zap.String("type", e.TypeName))
	case *Abstracted:
		l.Logger.Info("abstract declared", zap.String("interface", e.InterfaceName))
	case *Validated:
		if e.Err != nil {
			l.Logger.Error("graph validation failed", zap.Error(e.Err))
		} else {
			l.Logger.Info("graph compiled", zap.Int("services", e.Services))
		}
	case *ScopeOpened:
		fields := []zap.Field{zap.String("scope", e.ScopeID)}
		if e.ParentID != "" {
			fields = append(fields, zap.String("parent", e.ParentID))
		}
		l.Logger.Info("scope opened", fields...)
	case *ScopeClosed:
		if e.Err != nil {
			l.Logger.Error("scope close failed",
				zap.String("scope", e.ScopeID),
				zap.Error(e.Err))
		} else {
			l.Logger.Info("scope closed", zap.String("scope", e.ScopeID))
		}
	case *Overridden:
		l.Logger.Info("overridden",
			zap.String("type", renderQualified(e.TypeName, e.Qualifier)))
	case *OverrideRestored:
		l.Logger.Info("override restored",
			zap.String("type", renderQualified(e.TypeName, e.Qualifier)))
	case *Closed:
		if e.Err != nil {
			l.Logger.Error("close failed", zap.Error(e.Err))
		} else {
			l.Logger.Info("closed")
		}
	}
}
