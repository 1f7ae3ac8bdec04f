// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package memmap models the flash memory map of a DM36x SD/MMC card: a
// table of named, non-overlapping, sector-aligned byte ranges. The packager
// and the on-device updater must agree on this layout byte for byte, so the
// map travels inside every firmware package and is re-validated on the
// device before anything is written.
package memmap

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// SectorSize is the block size of the storage medium. Everything in the map
// is aligned to it; the MBR occupies exactly one sector.
const SectorSize = 512

// Region names, in canonical on-card order.
const (
	MBR      = "mbr"
	UBLSig   = "ubl-signature"
	UBootSig = "uboot-signature"
	UBootEnv = "uboot-env"
	UBL      = "ubl"
	UBoot    = "uboot"
	RootfsA  = "rootfs-a"
	RootfsB  = "rootfs-b"
	Debug    = "debug"
	Working  = "working"
)

var canonical = []string{
	MBR, UBLSig, UBootSig, UBootEnv, UBL, UBoot,
	RootfsA, RootfsB, Debug, Working,
}

// Region is a named byte range on the card.
type Region struct {
	Name   string `json:"name"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// Sector returns the region's first sector number.
func (r Region) Sector() int64 { return r.Offset / SectorSize }

// Sectors returns the region's length in sectors.
func (r Region) Sectors() int64 { return r.Size / SectorSize }

// End returns the first byte past the region.
func (r Region) End() int64 { return r.Offset + r.Size }

func (r Region) String() string {
	return fmt.Sprintf("%s@%d+%d", r.Name, r.Offset, r.Size)
}

// ErrUnknownRegion is returned by Map.Region for a name not in the map.
var ErrUnknownRegion = errors.New("unknown region")

// ConfigError wraps everything wrong with a memory map configuration. It is
// fatal: nothing is built and nothing is written when one is returned.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "memory map: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// Map is an immutable, validated memory map. Construct with New or Load.
type Map struct {
	regions []Region
}

// New builds a Map from regions, which must contain each canonical region
// exactly once. Order of the input is irrelevant; the Map keeps canonical
// order. All layout defects are collected into one ConfigError.
func New(regions []Region) (*Map, error) {
	var merr *multierror.Error
	byName := make(map[string]Region, len(regions))
	for _, r := range regions {
		idx := canonicalIndex(r.Name)
		if idx < 0 {
			merr = multierror.Append(merr, fmt.Errorf("region %q: %w", r.Name, ErrUnknownRegion))
			continue
		}
		if _, dup := byName[r.Name]; dup {
			merr = multierror.Append(merr, fmt.Errorf("region %q appears twice", r.Name))
			continue
		}
		byName[r.Name] = r
	}
	ordered := make([]Region, 0, len(canonical))
	for _, name := range canonical {
		r, ok := byName[name]
		if !ok {
			merr = multierror.Append(merr, fmt.Errorf("required region %q is missing", name))
			continue
		}
		ordered = append(ordered, r)
	}
	for _, r := range ordered {
		if r.Offset%SectorSize != 0 {
			merr = multierror.Append(merr, fmt.Errorf("region %s: offset not sector-aligned", r))
		}
		if r.Size <= 0 || r.Size%SectorSize != 0 {
			merr = multierror.Append(merr, fmt.Errorf("region %s: size not a positive sector multiple", r))
		}
	}
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		if cur.Offset < prev.Offset {
			merr = multierror.Append(merr, fmt.Errorf("region %s out of order after %s", cur, prev))
		} else if cur.Offset < prev.End() {
			merr = multierror.Append(merr, fmt.Errorf("regions %s and %s overlap", prev, cur))
		}
	}
	if a, oka := byName[RootfsA]; oka {
		if b, okb := byName[RootfsB]; okb && a.Size != b.Size {
			merr = multierror.Append(merr,
				fmt.Errorf("redundant rootfs slots differ in size: %d vs %d", a.Size, b.Size))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return &Map{regions: ordered}, nil
}

func canonicalIndex(name string) int {
	for i, n := range canonical {
		if n == name {
			return i
		}
	}
	return -1
}

// Region returns the named region, or ErrUnknownRegion.
func (m *Map) Region(name string) (Region, error) {
	for _, r := range m.regions {
		if r.Name == name {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%q: %w", name, ErrUnknownRegion)
}

// Regions returns the regions in canonical order. The caller gets a copy.
func (m *Map) Regions() []Region {
	out := make([]Region, len(m.regions))
	copy(out, m.regions)
	return out
}

// ImageSize is the length of a raw image: offset 0 through the end of the
// working partition.
func (m *Map) ImageSize() int64 {
	return m.regions[len(m.regions)-1].End()
}

func (m *Map) String() string {
	s := "memory map:"
	for _, r := range m.regions {
		s += fmt.Sprintf("\n  %-16s %10d +%10d", r.Name, r.Offset, r.Size)
	}
	return s
}
