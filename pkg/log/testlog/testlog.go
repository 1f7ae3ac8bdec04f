// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package testlog hijacks the output of pkg/log for tests. By default output
// prints through testing functions, but it can be stored in a buffer instead
// - for example, for analysis as part of the test. It also disarms
// log.Fatalf so fatal paths can be exercised.
package testlog

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

// TstLog conforms to log.StackableLogger. Construct via NewTestLog; do not
// share one between tests.
type TstLog struct {
	t             *testing.T
	Buf           *bytes.Buffer //if non-nil, output goes here
	MsgCount      int           //number of EndUser entries seen
	LogCount      int           //number of plain entries seen
	FatalCount    int           //number of Fatal entries seen
	FatalIsNotErr bool          //if true, a Fatal entry does not t.Errorf
	freeze        bool
	mu            sync.Mutex
}

// NewTestLog replaces the log stack with a TstLog and disarms Fatalf. If
// bufferLog is true, output accumulates in Buf rather than going to t.Logf.
func NewTestLog(t *testing.T, bufferLog bool) *TstLog {
	tlog := &TstLog{t: t}
	if bufferLog {
		tlog.Buf = new(bytes.Buffer)
	}
	log.NewLogStack(tlog)
	log.SetFatalAction(log.FailAction{Terminator: func() {}})
	t.Cleanup(func() {
		log.DefaultLogStack()
		log.SetFatalAction(log.DefaultFatal)
	})
	return tlog
}

var _ log.StackableLogger = (*TstLog)(nil)

const TstLogIdent = "tstLog"

func (tl *TstLog) Ident() string                 { return TstLogIdent }
func (tl *TstLog) Next() log.StackableLogger     { return nil }
func (tl *TstLog) Finalize()                     {}
func (tl *TstLog) ForwardTo(log.StackableLogger) {}

func (tl *TstLog) AddEntry(e log.Entry) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.freeze {
		return
	}
	var line string
	switch {
	case e.Flags&flags.Fatal != 0:
		tl.FatalCount++
		line = ">>FATAL()<< " + e.Msg
		if !tl.FatalIsNotErr {
			tl.t.Errorf(line, e.Args...)
			return
		}
	case e.Flags&flags.EndUser != 0:
		tl.MsgCount++
		line = "MSG:" + e.Msg
	default:
		tl.LogCount++
		line = "LOG:" + e.Msg
	}
	if tl.Buf != nil {
		fmt.Fprintf(tl.Buf, line+"\n", e.Args...)
	} else {
		tl.t.Logf(line, e.Args...)
	}
}

// Freeze stops recording. Call before inspecting Buf or the counters.
func (tl *TstLog) Freeze() {
	tl.mu.Lock()
	tl.freeze = true
	tl.mu.Unlock()
}
