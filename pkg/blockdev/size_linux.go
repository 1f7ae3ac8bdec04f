// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package blockdev

import (
	"os"
	"syscall"
	"unsafe"
)

const blkGetSize64 = 0x80081272 //_IOR(0x12, 114, size_t)

// Size returns the size in bytes of a block device, via ioctl. For a
// regular file (image file targets, tests) it falls back to stat.
func Size(dev string) (uint64, error) {
	if !IsBlockDev(dev) {
		fi, err := os.Stat(dev)
		if err != nil {
			return 0, err
		}
		return uint64(fi.Size()), nil
	}
	f, err := os.Open(dev)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var size uint64
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return size, nil
}
