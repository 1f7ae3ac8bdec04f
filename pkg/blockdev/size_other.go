// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

//go:build !linux

package blockdev

import "os"

// Size on non-linux hosts only handles image files; there is no target
// hardware to speak of.
func Size(dev string) (uint64, error) {
	fi, err := os.Stat(dev)
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}
