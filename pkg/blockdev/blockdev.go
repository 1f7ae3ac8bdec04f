// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package blockdev answers the few questions the updater has about its
// target: is it a block device, how big is it, is anything on it mounted,
// and which device did the board boot from.
package blockdev

import (
	"os"
	"strings"

	"github.com/moby/sys/mountinfo"
)

// IsBlockDev returns true if path is a block device node.
func IsBlockDev(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0
}

// Mounted returns true if dev, or any partition of dev, is mounted.
// Equivalent to the historical `mount | grep $dest` check.
func Mounted(dev string) (bool, error) {
	mounts, err := mountinfo.GetMounts(nil)
	if err != nil {
		return false, err
	}
	for _, m := range mounts {
		if strings.HasPrefix(m.Source, dev) {
			return true, nil
		}
	}
	return false, nil
}

const defaultBootDev = "/dev/mmcblk0"

// BootDevice guesses the device the board booted from, for use when no
// destination is given: self-update writes back to the boot medium. Parses
// root= from /proc/cmdline and strips the partition suffix.
func BootDevice() string {
	data, err := os.ReadFile("/proc/cmdline")
	if err != nil {
		return defaultBootDev
	}
	for _, f := range strings.Fields(string(data)) {
		root, ok := strings.CutPrefix(f, "root=")
		if !ok || !strings.HasPrefix(root, "/dev/") {
			continue
		}
		if dev, ok := stripPartition(root); ok {
			return dev
		}
	}
	return defaultBootDev
}

// stripPartition turns /dev/mmcblk0p2 into /dev/mmcblk0 and /dev/sda2 into
// /dev/sda.
func stripPartition(dev string) (string, bool) {
	i := len(dev)
	for i > 0 && dev[i-1] >= '0' && dev[i-1] <= '9' {
		i--
	}
	if i == len(dev) || i == 0 {
		return dev, false
	}
	// mmcblk0p2, nbd0p1: the digits follow a 'p' that follows a digit
	if dev[i-1] == 'p' && i > 1 && dev[i-2] >= '0' && dev[i-2] <= '9' {
		return dev[:i-1], true
	}
	// sda2: bare digit suffix, but only on device families named that
	// way - mmcblk0 is a whole disk, not partition 0 of "mmcblk"
	for _, pfx := range []string{"/dev/sd", "/dev/hd", "/dev/vd", "/dev/xvd"} {
		if strings.HasPrefix(dev, pfx) {
			return dev[:i], true
		}
	}
	return dev, false
}
