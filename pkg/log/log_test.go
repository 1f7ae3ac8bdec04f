// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os"
	fp "path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

// recorder is a minimal sink for inspecting what reaches it.
type recorder struct {
	entries []Entry
	next    StackableLogger
}

func (r *recorder) AddEntry(e Entry) {
	r.entries = append(r.entries, e)
	if r.next != nil {
		r.next.AddEntry(e)
	}
}
func (r *recorder) ForwardTo(sl StackableLogger) { r.next = sl }
func (r *recorder) Ident() string                { return "recorder" }
func (r *recorder) Next() StackableLogger        { return r.next }
func (r *recorder) Finalize()                    {}

func TestEntryString(t *testing.T) {
	when := time.Date(2026, 8, 25, 13, 14, 0, 0, time.UTC)
	cases := []struct {
		flags flags.Flag
		div   string
	}{
		{flags.EndUser, "-- "},
		{flags.Fatal, "!! "},
		{flags.NA, "*- "},
	}
	for _, tc := range cases {
		e := Entry{Time: when, Msg: "count %d", Args: []interface{}{7}, Flags: tc.flags}
		s := e.String()
		if !strings.HasPrefix(s, tc.div) {
			t.Errorf("flags %v: %q lacks divider %q", tc.flags, s, tc.div)
		}
		if !strings.Contains(s, "20260825_1314") {
			t.Errorf("%q lacks timestamp", s)
		}
		if !strings.HasSuffix(s, "count 7") {
			t.Errorf("%q: args not applied", s)
		}
	}
}

func TestMemLogReplay(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(DefaultLogStack)

	Logf("before %d", 1)
	Msgf("before %d", 2)

	rec := &recorder{}
	if err := AddLogger(rec, true); err != nil {
		t.Fatal(err)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("replayed %d entries, want 2", len(rec.entries))
	}
	if rec.entries[1].Flags&flags.EndUser == 0 {
		t.Error("second replayed entry lost its flags")
	}

	Logf("after")
	if len(rec.entries) != 3 {
		t.Errorf("got %d entries, want 3", len(rec.entries))
	}
}

func TestAddLoggerNoReplay(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(DefaultLogStack)

	Logf("retained")
	rec := &recorder{}
	if err := AddLogger(rec, false); err != nil {
		t.Fatal(err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("replay happened with addPrevious=false: %d entries", len(rec.entries))
	}
}

func TestDuplicateLogger(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(DefaultLogStack)

	if err := AddLogger(&recorder{}, false); err != nil {
		t.Fatal(err)
	}
	if err := AddLogger(&recorder{}, false); err == nil {
		t.Error("duplicate ident accepted")
	}
	if !InStack("recorder") {
		t.Error("recorder not found in stack")
	}
	if InStack("bogus") {
		t.Error("bogus ident found in stack")
	}
}

func TestFlushMemLog(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(DefaultLogStack)

	Logf("retained")
	FlushMemLog()
	rec := &recorder{}
	if err := AddLogger(rec, true); err != nil {
		t.Fatal(err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("flushed entries replayed: %d", len(rec.entries))
	}
}

func TestFileLog(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(DefaultLogStack)

	path := fp.Join(t.TempDir(), "session.log")
	Logf("early event %d", 42)
	if _, err := AddNamedFileLog(path); err != nil {
		t.Fatal(err)
	}
	Msgf("user event")
	Finalize()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"early event 42", "user event"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file lacks %q:\n%s", want, data)
		}
	}
}

func TestFileLogNeedsPrefix(t *testing.T) {
	DefaultLogStack()
	t.Cleanup(func() {
		SetPrefix("")
		DefaultLogStack()
	})

	SetPrefix("")
	if _, err := AddFileLog(t.TempDir()); err != EPrefix {
		t.Errorf("got %v, want EPrefix", err)
	}
	SetPrefix("tst")
	fname, err := AddFileLog(fp.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fp.Base(fname), "tst") {
		t.Errorf("file name %q lacks prefix", fname)
	}
	Finalize()
}
