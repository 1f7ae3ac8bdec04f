// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package log is a small stackable logging mechanism. Sinks for the console,
// a file, and memory can be combined; by default events are retained in
// memory so they can be replayed into sinks attached later on.
package log

import (
	"fmt"

	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
)

var logPrefix string

// SetPrefix sets the log prefix, used in file log names. Must be set before
// AddFileLog.
func SetPrefix(pfx string) { logPrefix = pfx }

// GetPrefix returns the log prefix.
func GetPrefix() string { return logPrefix }

// Msgf is for messages suitable for display to the user: short,
// non-technical, infrequent.
func Msgf(f string, va ...interface{}) { FlaggedLogf(flags.EndUser, f, va...) }

// See Msgf
func Msg(message string) { Msgf(message) }

// See Msgf
func Msgln(va ...interface{}) { Msgf(fmt.Sprintln(va...)) }

// Logf is for more technical, or more trivial, messages.
func Logf(f string, va ...interface{}) { FlaggedLogf(flags.NA, f, va...) }

// See Logf
func Log(message string) { Logf(message) }

// See Logf
func Logln(va ...interface{}) { Logf(fmt.Sprintln(va...)) }
