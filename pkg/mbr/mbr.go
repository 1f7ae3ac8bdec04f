// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package mbr encodes and decodes the 512-byte Master Boot Record used on
// DM36x cards. The partition table doubles as the active-slot indicator:
// the rootfs entry in table slot 0 is the one the boot chain mounts, so
// switching slots is a swap of two 16-byte entries inside a single sector -
// one sector write, atomic with respect to power loss.
package mbr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fhunleth/dm36x-packager/pkg/memmap"
)

const (
	// Size of an MBR: exactly one sector.
	Size = 512

	// Partition types.
	TypeLinux = 0x83
	TypeFAT32 = 0x0b

	// Fixed geometry used for the legacy CHS fields.
	numHeads        = 255
	sectorsPerTrack = 63

	bootCodeSize = 440 //bytes 0..439, before the disk id
	diskIDOffset = 440
	tableOffset  = 446
	entrySize    = 16
	numEntries   = 4
	sigOffset    = 510
)

// The disk id is supposed to be unique per disk, but nothing in the boot
// chain cares, and a fixed value keeps Encode deterministic.
var diskID = [4]byte{0x11, 0x22, 0x33, 0x44}

// ErrInvalidMBR is returned for buffers that are not a well-formed MBR.
var ErrInvalidMBR = errors.New("invalid MBR")

// Slot names one of the two redundant rootfs copies.
type Slot byte

const (
	SlotA Slot = 'A'
	SlotB Slot = 'B'
)

func (s Slot) String() string { return string(byte(s)) }

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// Entry is one decoded partition table entry.
type Entry struct {
	Bootable bool
	Type     byte
	LBA      uint32
	Sectors  uint32
}

func (e Entry) empty() bool { return e.Type == 0 || e.Sectors == 0 }

// Decoded is the result of Decode.
type Decoded struct {
	Active  Slot
	Entries [numEntries]Entry
}

// Encode builds an MBR for the given map with the given slot active. The
// partition table is, in order: active rootfs, inactive rootfs, working,
// debug. bootCode, if non-nil, is preserved into the bootstrap code area
// (bytes 0-439); otherwise that area is zero. Output is deterministic for
// identical inputs.
func Encode(m *memmap.Map, active Slot, bootCode []byte) ([]byte, error) {
	if active != SlotA && active != SlotB {
		return nil, fmt.Errorf("%w: bad slot %q", ErrInvalidMBR, byte(active))
	}
	if len(bootCode) > bootCodeSize {
		return nil, fmt.Errorf("%w: boot code %d bytes, max %d", ErrInvalidMBR, len(bootCode), bootCodeSize)
	}
	first, err := m.Region(memmap.RootfsA)
	if err != nil {
		return nil, err
	}
	second, err := m.Region(memmap.RootfsB)
	if err != nil {
		return nil, err
	}
	if active == SlotB {
		first, second = second, first
	}
	working, err := m.Region(memmap.Working)
	if err != nil {
		return nil, err
	}
	debug, err := m.Region(memmap.Debug)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, Size)
	copy(buf, bootCode)
	copy(buf[diskIDOffset:], diskID[:])
	for i, r := range []memmap.Region{first, second, working, debug} {
		if err := writeEntry(buf, i, r); err != nil {
			return nil, err
		}
	}
	buf[sigOffset] = 0x55
	buf[sigOffset+1] = 0xaa
	return buf, nil
}

func writeEntry(buf []byte, idx int, r memmap.Region) error {
	start, count := r.Sector(), r.Sectors()
	if start > 0xffffffff || count > 0xffffffff {
		return fmt.Errorf("region %s does not fit a 32-bit partition entry", r)
	}
	off := tableOffset + idx*entrySize
	buf[off] = 0 //never marked bootable; the ROM does not check it
	putCHS(buf[off+1:], uint32(start))
	buf[off+4] = TypeLinux
	putCHS(buf[off+5:], uint32(start+count-1))
	binary.LittleEndian.PutUint32(buf[off+8:], uint32(start))
	binary.LittleEndian.PutUint32(buf[off+12:], uint32(count))
	return nil
}

// putCHS packs the 3-byte cylinder/head/sector form of an LBA. The fields
// overflow for any modern card; the truncation below matches what every
// tool has written since the original packager, and nothing reads it.
func putCHS(b []byte, lba uint32) {
	cyl := lba / (sectorsPerTrack * numHeads)
	head := (lba / sectorsPerTrack) % numHeads
	sec := lba%sectorsPerTrack + 1
	b[0] = byte(head)
	b[1] = byte((cyl>>2)&0xc0 | sec)
	b[2] = byte(cyl)
}

// Decode parses an MBR buffer. It fails with ErrInvalidMBR if the buffer is
// not exactly 512 bytes, does not end in 0x55 0xAA, or lacks the two rootfs
// entries this scheme requires in table slots 0 and 1.
func Decode(b []byte) (*Decoded, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidMBR, len(b), Size)
	}
	if b[sigOffset] != 0x55 || b[sigOffset+1] != 0xaa {
		return nil, fmt.Errorf("%w: bad signature %02x%02x", ErrInvalidMBR, b[sigOffset], b[sigOffset+1])
	}
	d := &Decoded{}
	for i := 0; i < numEntries; i++ {
		off := tableOffset + i*entrySize
		d.Entries[i] = Entry{
			Bootable: b[off] == 0x80,
			Type:     b[off+4],
			LBA:      binary.LittleEndian.Uint32(b[off+8:]),
			Sectors:  binary.LittleEndian.Uint32(b[off+12:]),
		}
	}
	if d.Entries[0].empty() || d.Entries[1].empty() {
		return nil, fmt.Errorf("%w: rootfs entries missing", ErrInvalidMBR)
	}
	// Rootfs A precedes B on the card, so whichever entry starts lower is
	// slot A. Entry 0 is what boots.
	if d.Entries[0].LBA < d.Entries[1].LBA {
		d.Active = SlotA
	} else {
		d.Active = SlotB
	}
	return d, nil
}

// FlipActiveSlot returns a new buffer identical to the input except that the
// two rootfs entries trade places, toggling which slot boots next. The
// caller writes the result over sector 0 as the final step of an update.
func FlipActiveSlot(b []byte) ([]byte, error) {
	if _, err := Decode(b); err != nil {
		return nil, err
	}
	out := make([]byte, Size)
	copy(out, b)
	copy(out[tableOffset:tableOffset+entrySize], b[tableOffset+entrySize:tableOffset+2*entrySize])
	copy(out[tableOffset+entrySize:tableOffset+2*entrySize], b[tableOffset:tableOffset+entrySize])
	return out, nil
}
