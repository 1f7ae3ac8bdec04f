// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package memmap

import (
	"errors"
	"os"
	fp "path/filepath"
	"strings"
	"testing"
)

func validRegions() []Region {
	return []Region{
		{MBR, 0, 512},
		{UBLSig, 512, 1024},
		{UBootSig, 1536, 1024},
		{UBootEnv, 2560, 1536},
		{UBL, 4096, 2048},
		{UBoot, 6144, 4096},
		{RootfsA, 10240, 16384},
		{RootfsB, 26624, 16384},
		{Debug, 43008, 20480},
		{Working, 63488, 20480},
	}
}

func TestNew(t *testing.T) {
	m, err := New(validRegions())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.ImageSize(); got != 83968 {
		t.Errorf("ImageSize=%d, want 83968", got)
	}
	a, err := m.Region(RootfsA)
	if err != nil {
		t.Fatal(err)
	}
	if a.Sector() != 20 || a.Sectors() != 32 {
		t.Errorf("rootfs-a at sector %d+%d, want 20+32", a.Sector(), a.Sectors())
	}
}

// input order must not matter
func TestNewUnordered(t *testing.T) {
	regions := validRegions()
	regions[0], regions[9] = regions[9], regions[0]
	regions[2], regions[5] = regions[5], regions[2]
	m, err := New(regions)
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range m.Regions() {
		if i > 0 && r.Offset < m.Regions()[i-1].End() {
			t.Errorf("region %s out of place", r)
		}
	}
}

func TestNewDefects(t *testing.T) {
	mutate := []struct {
		name string
		fn   func([]Region) []Region
		want string
	}{
		{"missing", func(r []Region) []Region { return r[:9] }, "missing"},
		{"duplicate", func(r []Region) []Region { return append(r, r[4]) }, "twice"},
		{"unknown", func(r []Region) []Region {
			r[3].Name = "bootenv"
			return r
		}, "unknown region"},
		{"unaligned offset", func(r []Region) []Region {
			r[4].Offset += 100
			return r
		}, "aligned"},
		{"zero size", func(r []Region) []Region {
			r[5].Size = 0
			return r
		}, "positive sector multiple"},
		{"overlap", func(r []Region) []Region {
			r[7].Offset -= 512
			r[7].Size += 512
			return r
		}, "overlap"},
		{"rootfs mismatch", func(r []Region) []Region {
			r[7].Size += 512
			return r
		}, "differ in size"},
	}
	for _, tc := range mutate {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.fn(validRegions()))
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("got %v, want ConfigError", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// all defects must be reported at once, not one per attempt
func TestNewAccumulates(t *testing.T) {
	regions := validRegions()
	regions[2].Offset += 7
	regions[7].Size += 1024
	_, err := New(regions[:9])
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"aligned", "missing"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestUnknownRegion(t *testing.T) {
	m, err := New(validRegions())
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Region("bootenv")
	if !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("got %v, want ErrUnknownRegion", err)
	}
}

func TestLoad(t *testing.T) {
	m, err := Load("testdata/dm36x.config")
	if err != nil {
		t.Fatal(err)
	}
	checks := []struct {
		name            string
		sector, sectors int64
	}{
		{MBR, 0, 1},
		{UBLSig, 1, 16},
		{UBootSig, 17, 16},
		{UBootEnv, 33, 64},
		{UBL, 97, 75},
		{UBoot, 172, 852},
		{RootfsA, 1024, 204800},
		{RootfsB, 205824, 204800},
		{Debug, 410624, 32768},
		{Working, 443392, 65536},
	}
	for _, c := range checks {
		r, err := m.Region(c.name)
		if err != nil {
			t.Fatal(err)
		}
		if r.Sector() != c.sector || r.Sectors() != c.sectors {
			t.Errorf("%s: %d+%d, want %d+%d", c.name, r.Sector(), r.Sectors(), c.sector, c.sectors)
		}
	}
	if got := m.ImageSize(); got != (443392+65536)*512 {
		t.Errorf("ImageSize=%d", got)
	}
}

func TestLoadMissingKey(t *testing.T) {
	data, err := os.ReadFile("testdata/dm36x.config")
	if err != nil {
		t.Fatal(err)
	}
	broken := strings.Replace(string(data), "uboot_env_count", "uboot_env_cnt", 1)
	path := fp.Join(t.TempDir(), "broken.config")
	if err := os.WriteFile(path, []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want ConfigError", err)
	}
	if !strings.Contains(err.Error(), "uboot_env_count") {
		t.Errorf("error %q does not name the missing key", err)
	}
}

func TestLoadNoFile(t *testing.T) {
	_, err := Load(fp.Join(t.TempDir(), "nope.config"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("got %v, want ConfigError", err)
	}
}
