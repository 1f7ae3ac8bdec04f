// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"encoding/binary"

	"github.com/fhunleth/dm36x-packager/pkg/memmap"
)

// RBL descriptor constants. The DM36x ROM boot loader scans the first blocks
// of the card for a descriptor telling it where UBL lives; UBL borrows the
// same structure to locate U-Boot.
const (
	ublMagic         = 0xA1ACED00
	ublEntryPoint    = 0x00000100
	ublLoadAddress   = 0x00000000
	ubootMagic       = 0xA1ACED66
	ubootLoadAddress = 0x81080000 //entry point == load address

	descriptorSize = 512
)

// rblDescriptor builds one descriptor block: five little-endian words, the
// rest zero.
func rblDescriptor(magic, entryPoint, numBlocks, startBlock, loadAddress uint32) []byte {
	d := make([]byte, descriptorSize)
	for i, w := range []uint32{magic, entryPoint, numBlocks, startBlock, loadAddress} {
		binary.LittleEndian.PutUint32(d[4*i:], w)
	}
	return d
}

// ublDescriptorBlock fills the UBL signature region: the RBL descriptor for
// UBL, repeated once per block of the region.
func ublDescriptorBlock(m *memmap.Map) ([]byte, error) {
	sig, err := m.Region(memmap.UBLSig)
	if err != nil {
		return nil, err
	}
	ubl, err := m.Region(memmap.UBL)
	if err != nil {
		return nil, err
	}
	d := rblDescriptor(ublMagic, ublEntryPoint, uint32(ubl.Sectors()), uint32(ubl.Sector()), ublLoadAddress)
	return repeat(d, int(sig.Sectors())), nil
}

// ubootDescriptorBlock fills the U-Boot signature region, read by UBL.
func ubootDescriptorBlock(m *memmap.Map) ([]byte, error) {
	sig, err := m.Region(memmap.UBootSig)
	if err != nil {
		return nil, err
	}
	uboot, err := m.Region(memmap.UBoot)
	if err != nil {
		return nil, err
	}
	d := rblDescriptor(ubootMagic, ubootLoadAddress, uint32(uboot.Sectors()), uint32(uboot.Sector()), ubootLoadAddress)
	return repeat(d, int(sig.Sectors())), nil
}

func repeat(block []byte, n int) []byte {
	out := make([]byte, 0, len(block)*n)
	for i := 0; i < n; i++ {
		out = append(out, block...)
	}
	return out
}
