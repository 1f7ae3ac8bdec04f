// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package log

import (
	"os"
	"strings"

	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

// FailAction describes what happens when Fatalf is called. The event itself
// is always logged first; that part is automatic.
type FailAction struct {
	// Prefix added to the message.
	MsgPfx string
	// Pre runs before Finalize, i.e. while the log is still writable.
	Pre func(f string, va ...interface{})
	// Terminator exits: os.Exit, reboot, etc. Logs are closed by the time
	// it runs.
	Terminator func()
}

var fatalAction = DefaultFatal

// SetFatalAction replaces the action Fatalf takes.
func SetFatalAction(act FailAction) { fatalAction = act }

// DefaultFatal exits the process with status 1.
var DefaultFatal = FailAction{Terminator: defaultTerminator}

func defaultTerminator() {
	if strings.HasSuffix(os.Args[0], ".test") {
		panic("generic fatal called from test")
	}
	os.Exit(1)
}

// Fatalf logs the event with the Fatal flag, runs the fail action, and does
// not return.
func Fatalf(f string, va ...interface{}) {
	act := fatalAction
	FlaggedLogf(flags.Fatal|flags.EndUser, act.MsgPfx+f, va...)
	if act.Pre != nil {
		act.Pre(f, va...)
	}
	Finalize()
	if act.Terminator != nil {
		act.Terminator()
	}
	// a test FailAction may have an empty Terminator
}
