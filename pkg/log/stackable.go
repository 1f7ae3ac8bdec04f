// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"sync"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

// StackableLogger is a log sink that can be chained to others, each adding a
// destination: console, file, memory. Normal logging goes through the
// package-level functions (Logf, Msgf, Fatalf); sinks are an implementation
// detail.
type StackableLogger interface {
	// AddEntry records an entry, then must pass it to the next sink in the
	// stack, if any.
	AddEntry(e Entry)
	// ForwardTo chains another sink below this one. Calling it with a
	// non-nil arg on a sink that already forwards somewhere is an error.
	ForwardTo(StackableLogger)
	// Ident identifies the sink type. No two sinks with the same ident may
	// be in the stack at once.
	Ident() string
	// Next returns the sink this one forwards to, or nil.
	Next() StackableLogger
	// Finalize flushes and releases resources, then finalizes the next sink.
	Finalize()
}

// Entry is the record type passed down the sink stack.
type Entry struct {
	Time  time.Time
	Msg   string
	Args  []interface{}
	Flags flags.Flag
}

func (e *Entry) String() string {
	var div string
	switch {
	case e.Flags&flags.EndUser != 0:
		div = "-- "
	case e.Flags&flags.Fatal != 0:
		div = "!! "
	default:
		div = "*- "
	}
	f := div + e.Time.Format(TimestampLayout) + " " + div + e.Msg
	return fmt.Sprintf(f, e.Args...)
}

// Topmost sink. All access must hold stackMtx.
var stack StackableLogger = &memLog{}
var stackMtx sync.Mutex

// NewLogStack finalizes the current stack and replaces it with the given
// sink. Used by testlog; normal code wants AddConsoleLog/AddFileLog instead.
func NewLogStack(sl StackableLogger) {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	if stack != nil {
		stack.Finalize()
	}
	stack = sl
}

// DefaultLogStack restores the initial state: a lone memLog.
func DefaultLogStack() { NewLogStack(&memLog{}) }

// AddLogger pushes a sink onto the stack. If addPrevious is true, entries
// retained by the memLog are replayed into the new sink first. Fails if a
// sink with the same ident is already present.
func AddLogger(sl StackableLogger, addPrevious bool) error {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	for l := stack; l != nil; l = l.Next() {
		if l.Ident() == sl.Ident() {
			return fmt.Errorf("duplicate logger %s in stack", sl.Ident())
		}
	}
	if addPrevious {
		if ml, ok := findInStack(MemLogIdent).(*memLog); ok {
			for _, e := range ml.Entries() {
				sl.AddEntry(e)
			}
		}
	}
	sl.ForwardTo(stack)
	stack = sl
	return nil
}

// Finalize flushes and closes every sink in the stack.
func Finalize() {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	stack.Finalize()
}

// InStack returns true if a sink with the given ident is in the stack.
func InStack(id string) bool {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	return findInStack(id) != nil
}

func findInStack(id string) StackableLogger {
	for l := stack; l != nil; l = l.Next() {
		if l.Ident() == id {
			return l
		}
	}
	return nil
}

// FlaggedLogf is the backend of Logf, Msgf, Fatalf. Translates args to an
// Entry and inserts it at the top of the stack.
func FlaggedLogf(opts flags.Flag, f string, va ...interface{}) {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	stack.AddEntry(Entry{
		Time:  time.Now(),
		Flags: opts,
		Msg:   f,
		Args:  va,
	})
}
