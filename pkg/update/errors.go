// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package update

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptPackage: the archive is damaged or a payload digest does
	// not match its manifest entry. Detected before SwitchActive, so the
	// device keeps booting its prior slot.
	ErrCorruptPackage = errors.New("corrupt package")
	// ErrUnreadableDevice: the target cannot be opened, read, or is
	// otherwise unusable (mounted, too small). Nothing was written.
	ErrUnreadableDevice = errors.New("unreadable device")
	// ErrWriteFailure: a write to the target failed. If it happened before
	// SwitchActive the prior slot is intact and a retry is safe.
	ErrWriteFailure = errors.New("device write failure")
	// ErrDeviceTimeout: a write completed but took longer than the
	// configured liveness deadline. The active slot is unaffected.
	ErrDeviceTimeout = errors.New("device timeout")
)

// StageError wraps a failure with the stage it happened in, so callers can
// tell "failed before any write" from "failed mid-write".
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
