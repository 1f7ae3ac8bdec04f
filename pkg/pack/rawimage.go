// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
)

// FormatMarkerSectors is how many leading sectors of the debug and working
// partitions get zeroed. The first boot sees no filesystem superblock there
// and formats the partition; zeroing the whole thing would multiply bulk
// programming time for no benefit.
const FormatMarkerSectors = 32

// BuildRawImage produces the byte-exact card image for bulk programming
// equipment: offset 0 through the end of the working partition, with slot A
// populated and active. The bodies of the debug and working partitions past
// the format marker carry no meaningful data.
func BuildRawImage(in *Inputs) ([]byte, error) {
	boot, err := BuildBootImage(in)
	if err != nil {
		return nil, err
	}
	m := in.Map
	img := make([]byte, m.ImageSize())
	copy(img, boot)
	if err := place(img, m, memmap.RootfsA, in.Rootfs); err != nil {
		return nil, err
	}
	// The buffer is zero-initialized, so the format markers at the head of
	// the debug and working partitions are already in place.
	return img, nil
}
