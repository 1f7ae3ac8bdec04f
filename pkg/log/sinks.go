// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"fmt"
	"os"
	fp "path/filepath"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

// memLog retains entries so they can be replayed into sinks attached later.
// It sits at the bottom of every stack until FlushMemLog is called.
type memLog struct {
	entries []Entry
	discard bool
	next    StackableLogger
}

var _ StackableLogger = (*memLog)(nil)

const MemLogIdent = "memLog"

func (ml *memLog) AddEntry(e Entry) {
	if !ml.discard {
		ml.entries = append(ml.entries, e)
	}
	if ml.next != nil {
		ml.next.AddEntry(e)
	}
}

func (ml *memLog) ForwardTo(sl StackableLogger) {
	if ml.next != nil && sl != nil {
		panic("next already set")
	}
	ml.next = sl
}

func (ml *memLog) Ident() string         { return MemLogIdent }
func (ml *memLog) Next() StackableLogger { return ml.next }

func (ml *memLog) Finalize() {
	ml.entries = nil
	ml.discard = true
	if ml.next != nil {
		ml.next.Finalize()
	}
}

func (ml *memLog) Entries() []Entry { return ml.entries }

// FlushMemLog drops retained entries and stops retention. Call once all
// longer-lived sinks are attached, so memory use stays bounded during a
// long rootfs write.
func FlushMemLog() {
	stackMtx.Lock()
	defer stackMtx.Unlock()
	if ml, ok := findInStack(MemLogIdent).(*memLog); ok {
		ml.entries = nil
		ml.discard = true
	}
}

type consoleLog struct {
	flags flags.Flag
	next  StackableLogger
}

var _ StackableLogger = (*consoleLog)(nil)

const ConsoleLogIdent = "consoleLog"

// AddConsoleLog adds a stderr sink. Flags determine which events are
// visible: flags.NA for everything, flags.EndUser for user messages only.
func AddConsoleLog(f flags.Flag) {
	_ = AddLogger(&consoleLog{flags: f}, true)
}

func (l *consoleLog) AddEntry(e Entry) {
	if l.flags == 0 || e.Flags&l.flags > 0 {
		fmt.Fprintln(os.Stderr, e.String())
	}
	if l.next != nil {
		l.next.AddEntry(e)
	}
}

func (l *consoleLog) ForwardTo(sl StackableLogger) {
	if l.next != nil && sl != nil {
		panic("next already set")
	}
	l.next = sl
}

func (l *consoleLog) Ident() string         { return ConsoleLogIdent }
func (l *consoleLog) Next() StackableLogger { return l.next }

func (l *consoleLog) Finalize() {
	if l.next != nil {
		l.next.Finalize()
	}
}

type fileLog struct {
	f    *os.File
	next StackableLogger
}

var _ StackableLogger = (*fileLog)(nil)

const FileLogIdent = "fileLog"

var EPrefix = fmt.Errorf("log prefix is unset")

// AddFileLog adds a file sink in dir, named from the prefix (SetPrefix) and
// the current time. Previously retained events are written first.
func AddFileLog(dir string) (string, error) {
	prefix := GetPrefix()
	if prefix == "" {
		return "", EPrefix
	}
	if err := os.Mkdir(dir, 0755); err != nil && !os.IsExist(err) {
		return "", err
	}
	path := fp.Join(dir, prefix+time.Now().Format(TimestampLayout)+".log")
	return AddNamedFileLog(path)
}

// AddNamedFileLog is AddFileLog with a caller-chosen path.
func AddNamedFileLog(fname string) (string, error) {
	f, err := os.Create(fname)
	if err != nil {
		return "", err
	}
	if err := AddLogger(&fileLog{f: f}, true); err != nil {
		f.Close()
		os.Remove(fname)
		return "", err
	}
	return fname, nil
}

func (fl *fileLog) AddEntry(e Entry) {
	if e.Flags&flags.NotFile == 0 && fl.f != nil {
		fmt.Fprintln(fl.f, e.String())
	}
	if fl.next != nil {
		fl.next.AddEntry(e)
	}
}

func (fl *fileLog) ForwardTo(sl StackableLogger) {
	if fl.next != nil && sl != nil {
		panic("next already set")
	}
	fl.next = sl
}

func (fl *fileLog) Ident() string         { return FileLogIdent }
func (fl *fileLog) Next() StackableLogger { return fl.next }

func (fl *fileLog) Finalize() {
	if fl.f != nil {
		if err := fl.f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing log file: %s\n", err)
		}
		fl.f = nil
	}
	if fl.next != nil {
		fl.next.Finalize()
	}
}
