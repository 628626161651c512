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
	"io"
)

// ConsoleLogger is a rivet event logger that writes human-readable messages
// to the console.
//
// Use this during development.
type ConsoleLogger struct {
	W io.Writer
}

var _ Logger = (*ConsoleLogger)(nil)

func (l *ConsoleLogger) logf(msg string, args ...interface{}) {
	fmt.Fprintf(l.W, "[Rivet] "+msg+"\n", args...)
}

// LogEvent logs the given event to the underlying writer.
func (l *ConsoleLogger) LogEvent(event Event) {
	switch e := event.(type) {
	case *Provided:
		if e.Err != nil {
			l.logf("ERROR\tFailed to provide %v: %v", e.OutputTypeName, e.Err)
		} else if e.Qualifier != nil {
			l.logf("PROVIDE\t%v[%v] (%v) <= %v", e.OutputTypeName, e.Qualifier, e.Lifetime, e.ConstructorName)
		} else {
			l.logf("PROVIDE\t%v (%v) <= %v", e.OutputTypeName, e.Lifetime, e.ConstructorName)
		}
	case *Supplied:
		if e.Err != nil {
			l.logf("ERROR\tFailed to supply %v: %v", e.TypeName, e.Err)
		} else {
			l.logf("SUPPLY\t%v", e.TypeName)
		}
	case *Abstracted:
		l.logf("ABSTRACT\t%v", e.InterfaceName)
	case *Validated:
		if e.Err != nil {
			l.logf("ERROR\tGraph validation failed: %v", e.Err)
		} else {
			l.logf("READY\t%d services compiled", e.Services)
		}
	case *ScopeOpened:
		if e.ParentID != "" {
			l.logf("SCOPE\topened %v (parent %v)", e.ScopeID, e.ParentID)
		} else {
			l.logf("SCOPE\topened %v", e.ScopeID)
		}
	case *ScopeClosed:
		if e.Err != nil {
			l.logf("ERROR\tScope %v didn't close cleanly: %v", e.ScopeID, e.Err)
		} else {
			l.logf("SCOPE\tclosed %v", e.ScopeID)
		}
	case *Overridden:
		l.logf("OVERRIDE\t%v", renderQualified(e.TypeName, e.Qualifier))
	case *OverrideRestored:
		l.logf("RESTORE\t%v", renderQualified(e.TypeName, e.Qualifier))
	case *Closed:
		if e.Err != nil {
			l.logf("ERROR\tFailed to close cleanly: %v", e.Err)
		} else {
			l.logf("CLOSED")
		}
	}
}

func renderQualified(name string, qualifier interface{}) string {
	if qualifier == nil {
		return name
	}
	return fmt.Sprintf("%s[%v]", name, qualifier)
}
