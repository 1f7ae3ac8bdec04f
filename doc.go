// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Firmware packaging and field update for TI DM36x boards booting from
// SD/MMC.
//
// The card carries two complete copies of the root filesystem. An update
// writes the new firmware into the copy that is not booting and then, as
// its very last act, rewrites the partition table - one 512-byte sector -
// to make that copy the one the boot chain mounts. Power loss at any
// point leaves the board booting complete firmware: the old one if it
// happened before the table write, the new one after.
//
// Two binaries build from this module. cmd/packager runs on a development
// machine and turns a memory map, UBL, U-Boot and a rootfs into a .fw
// update package and/or a raw card image for bulk programming. cmd/updater
// runs on the device (or a provisioning host) and applies a package.
package dm36xpackager
