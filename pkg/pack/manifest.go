// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"fmt"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/memmap"
)

// Archive entry names. The manifest is always the first entry so it can be
// read without decompressing the payloads behind it.
const (
	ManifestName   = "manifest.json"
	EntryApply     = "apply"
	EntryMBRA      = "data/mbr-a.img"
	EntryMBRB      = "data/mbr-b.img"
	EntryBootImage = "data/boot.img"
	EntryRootfs    = "data/rootfs.img"
)

// FileInfo describes one payload entry.
type FileInfo struct {
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest is embedded at the front of every package. It carries the
// firmware version, the memory map the payloads were laid out against, and
// a digest per payload. The updater refuses to touch a device whose
// partition table disagrees with Regions.
type Manifest struct {
	Version          string              `json:"version"`
	BuildTime        string              `json:"build_time"`
	ForceBootloaders bool                `json:"force_bootloaders,omitempty"`
	Regions          []memmap.Region     `json:"regions"`
	Files            map[string]FileInfo `json:"files"`
}

// Map reconstructs and re-validates the memory map carried in the manifest.
func (mf *Manifest) Map() (*memmap.Map, error) {
	return memmap.New(mf.Regions)
}

func (mf *Manifest) String() string {
	ts := mf.BuildTime
	if t, err := time.Parse(buildTimeLayout, mf.BuildTime); err == nil {
		ts = t.Format(time.RFC3339)
	}
	s := fmt.Sprintln("Version:  ", mf.Version)
	s += fmt.Sprintln("Built:    ", ts)
	for name, fi := range mf.Files {
		s += fmt.Sprintf("%-10s %d bytes, sha256 %s\n", name, fi.Size, fi.SHA256)
	}
	return s
}

//Format: yyyymmdd_hhmm
const buildTimeLayout = "20060102_1504"
