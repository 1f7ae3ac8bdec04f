// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"errors"
	"fmt"

	"github.com/fhunleth/dm36x-packager/pkg/mbr"
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
)

// ErrMissingInput: a required assembler input (memory map, UBL, U-Boot,
// rootfs) was not supplied.
var ErrMissingInput = errors.New("missing required input")

// OversizeError: a binary does not fit its designated region.
type OversizeError struct {
	Region memmap.Region
	Size   int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("binary of %d bytes exceeds region %s", e.Size, e.Region)
}

// Inputs are everything the assembler needs. Applier is optional: when
// present it is embedded as the package's executable update logic.
type Inputs struct {
	Map     *memmap.Map
	UBL     []byte
	UBoot   []byte
	Rootfs  []byte
	Version string
	// ForceBootloaders marks the package so the updater rewrites the
	// bootloader regions even without -b.
	ForceBootloaders bool
	Applier          []byte
}

func (in *Inputs) check() error {
	switch {
	case in.Map == nil:
		return fmt.Errorf("%w: memory map", ErrMissingInput)
	case len(in.UBL) == 0:
		return fmt.Errorf("%w: UBL binary", ErrMissingInput)
	case len(in.UBoot) == 0:
		return fmt.Errorf("%w: U-Boot binary", ErrMissingInput)
	case len(in.Rootfs) == 0:
		return fmt.Errorf("%w: rootfs binary", ErrMissingInput)
	}
	return nil
}

func (in *Inputs) version() string {
	if in.Version == "" {
		return "unknown"
	}
	return in.Version
}

// BuildBootImage lays out everything from sector 0 through the end of the
// U-Boot region: MBR (slot A active), both descriptor blocks, an empty
// U-Boot environment, UBL, and U-Boot. Written whole during a fresh
// install; updates skip its first sector so the live MBR survives.
func BuildBootImage(in *Inputs) ([]byte, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	m := in.Map
	uboot, err := m.Region(memmap.UBoot)
	if err != nil {
		return nil, err
	}
	img := make([]byte, uboot.End())

	mbrA, err := mbr.Encode(m, mbr.SlotA, nil)
	if err != nil {
		return nil, err
	}
	copy(img, mbrA)

	ublSig, err := ublDescriptorBlock(m)
	if err != nil {
		return nil, err
	}
	if err := place(img, m, memmap.UBLSig, ublSig); err != nil {
		return nil, err
	}
	ubootSig, err := ubootDescriptorBlock(m)
	if err != nil {
		return nil, err
	}
	if err := place(img, m, memmap.UBootSig, ubootSig); err != nil {
		return nil, err
	}
	// uboot-env region stays zero: a known-empty environment.
	if err := place(img, m, memmap.UBL, in.UBL); err != nil {
		return nil, err
	}
	if err := place(img, m, memmap.UBoot, in.UBoot); err != nil {
		return nil, err
	}
	return img, nil
}

// place copies content to its region's offset, failing with OversizeError
// if it does not fit.
func place(img []byte, m *memmap.Map, name string, content []byte) error {
	r, err := m.Region(name)
	if err != nil {
		return err
	}
	if int64(len(content)) > r.Size {
		return &OversizeError{Region: r, Size: int64(len(content))}
	}
	copy(img[r.Offset:], content)
	return nil
}
