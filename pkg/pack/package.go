// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package pack assembles firmware update packages and raw card images for
// DM36x boards, and reads packages back on the device side. A package is a
// tar.xz archive whose only contract with consumers is "named entry, byte
// stream": a json manifest first, then the executable update logic and the
// image payloads.
package pack

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/fhunleth/dm36x-packager/pkg/mbr"
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
	"github.com/ulikunitz/xz"
)

// BuildPackage assembles a firmware package and streams it to w. The
// returned manifest is the one embedded in the archive.
func BuildPackage(w io.Writer, in *Inputs) (*Manifest, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	m := in.Map
	boot, err := BuildBootImage(in)
	if err != nil {
		return nil, err
	}
	mbrA, err := mbr.Encode(m, mbr.SlotA, nil)
	if err != nil {
		return nil, err
	}
	mbrB, err := mbr.Encode(m, mbr.SlotB, nil)
	if err != nil {
		return nil, err
	}
	rootfsA, err := m.Region(memmap.RootfsA)
	if err != nil {
		return nil, err
	}
	if int64(len(in.Rootfs)) > rootfsA.Size {
		return nil, &OversizeError{Region: rootfsA, Size: int64(len(in.Rootfs))}
	}

	payloads := []struct {
		name string
		data []byte
		mode int64
	}{
		{EntryMBRA, mbrA, 0644},
		{EntryMBRB, mbrB, 0644},
		{EntryBootImage, boot, 0644},
		{EntryRootfs, in.Rootfs, 0644},
	}
	mf := &Manifest{
		Version:          in.version(),
		BuildTime:        time.Now().Format(buildTimeLayout),
		ForceBootloaders: in.ForceBootloaders,
		Regions:          m.Regions(),
		Files:            make(map[string]FileInfo, len(payloads)+1),
	}
	for _, p := range payloads {
		sum := sha256.Sum256(p.data)
		mf.Files[p.name] = FileInfo{
			Size:   int64(len(p.data)),
			SHA256: hex.EncodeToString(sum[:]),
		}
	}
	if len(in.Applier) > 0 {
		sum := sha256.Sum256(in.Applier)
		mf.Files[EntryApply] = FileInfo{
			Size:   int64(len(in.Applier)),
			SHA256: hex.EncodeToString(sum[:]),
		}
	}
	mfData, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return nil, err
	}

	xzw, err := xz.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("xz: %w", err)
	}
	tw := tar.NewWriter(xzw)
	if err := addEntry(tw, ManifestName, mfData, 0644); err != nil {
		return nil, err
	}
	if len(in.Applier) > 0 {
		if err := addEntry(tw, EntryApply, in.Applier, 0755); err != nil {
			return nil, err
		}
	}
	for _, p := range payloads {
		if err := addEntry(tw, p.name, p.data, p.mode); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("tar: %w", err)
	}
	if err := xzw.Close(); err != nil {
		return nil, fmt.Errorf("xz: %w", err)
	}
	return mf, nil
}

// WritePackageFile is BuildPackage to a file path.
func WritePackageFile(path string, in *Inputs) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	mf, err := BuildPackage(f, in)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	log.Logf("wrote package %s (version %s)", path, mf.Version)
	return mf, nil
}

func addEntry(tw *tar.Writer, name string, data []byte, mode int64) error {
	err := tw.WriteHeader(&tar.Header{
		Name: name,
		Size: int64(len(data)),
		Mode: mode,
	})
	if err != nil {
		return fmt.Errorf("%s: write hdr: %w", name, err)
	}
	if _, err = tw.Write(data); err != nil {
		return fmt.Errorf("%s: write data: %w", name, err)
	}
	return nil
}
