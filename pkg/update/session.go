// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package update applies a firmware package to a target device. The normal
// flow writes the new rootfs into whichever slot is not booting, optionally
// rewrites the bootloaders, and then switches slots with a single sector
// write - so power loss at any point leaves the device booting a complete
// rootfs. Fresh-install mode instead reproduces the factory raw image on a
// blank card.
package update

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/fhunleth/dm36x-packager/pkg/mbr"
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
	"github.com/fhunleth/dm36x-packager/pkg/pack"
	"github.com/fhunleth/dm36x-packager/pkg/progress"
	"github.com/google/uuid"
)

// Mode selects what a session does to the target.
type Mode int

const (
	// ModeUpdate writes the inactive slot and switches to it.
	ModeUpdate Mode = iota
	// ModeFreshInstall lays out a blank card from scratch: bootloaders,
	// both rootfs slots, format markers. Slot A ends up active. Anything
	// on the card is lost.
	ModeFreshInstall
)

// Stage identifies where a session is, or where it failed.
type Stage int

const (
	StageStart Stage = iota
	StageValidate
	StageWriteRootfs
	StageWriteBootloaders
	StageSwitchActive
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageStart:            "start",
	StageValidate:         "validate",
	StageWriteRootfs:      "write-rootfs",
	StageWriteBootloaders: "write-bootloaders",
	StageSwitchActive:     "switch-active",
	StageDone:             "done",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// copyChunk is how much rootfs data moves per WriteAt.
const copyChunk = 128 * 1024

// Session applies one package to one target, once. Configure the exported
// fields before Run; they must not change afterward.
type Session struct {
	ID     uuid.UUID
	Pkg    *pack.Package
	Target Target
	Mode   Mode

	// Bootloaders forces the bootloader rewrite even when the manifest
	// does not ask for it. Interrupting that rewrite is not recoverable
	// by a retry, unlike the rest of the update.
	Bootloaders bool

	// Progress, if non-nil, receives rootfs write percentages.
	Progress progress.Func

	// ChunkTimeout, if positive, is the per-chunk write deadline. A chunk
	// that completes but blows the deadline fails the session with
	// ErrDeviceTimeout on the theory that the card is dying.
	ChunkTimeout time.Duration

	mmap   *memmap.Map
	active mbr.Slot
	stage  Stage
}

// NewSession returns a session ready to Run.
func NewSession(pkg *pack.Package, tgt Target, mode Mode) *Session {
	return &Session{
		ID:     uuid.New(),
		Pkg:    pkg,
		Target: tgt,
		Mode:   mode,
	}
}

// Stage reports how far the session got.
func (s *Session) Stage() Stage { return s.stage }

// ActiveSlot is meaningful after Run: the slot the device boots next.
func (s *Session) ActiveSlot() mbr.Slot { return s.active }

// Run executes the session. On failure the stage is StageFailed and the
// error is a StageError naming the stage that broke; everything up to and
// including StageWriteBootloaders leaves the previously active slot
// untouched.
func (s *Session) Run() error {
	log.Logf("session %s: %s starts, mode %d", s.ID, s.Pkg.Path(), s.Mode)
	if err := s.step(StageValidate, s.validate); err != nil {
		return err
	}
	if s.Mode == ModeFreshInstall {
		if err := s.step(StageWriteRootfs, s.freshInstall); err != nil {
			return err
		}
	} else {
		if err := s.step(StageWriteRootfs, s.writeInactiveRootfs); err != nil {
			return err
		}
		if s.Bootloaders || s.Pkg.Manifest.ForceBootloaders {
			if err := s.step(StageWriteBootloaders, s.writeBootloaders); err != nil {
				return err
			}
		}
		if err := s.step(StageSwitchActive, s.switchActive); err != nil {
			return err
		}
	}
	s.stage = StageDone
	log.Msgf("firmware %s installed, slot %s active", s.Pkg.Manifest.Version, s.active)
	return nil
}

func (s *Session) step(st Stage, fn func() error) error {
	s.stage = st
	log.Logf("session %s: %s", s.ID, st)
	if err := fn(); err != nil {
		s.stage = StageFailed
		log.Logf("session %s: %s failed: %s", s.ID, st, err)
		return &StageError{Stage: st, Err: err}
	}
	return nil
}

// validate checks everything that can be checked without writing: the
// manifest's memory map, the payload inventory, the target size, and - for
// updates - that the partition table on the device matches the map the
// package was built against.
func (s *Session) validate() error {
	mf := s.Pkg.Manifest
	m, err := mf.Map()
	if err != nil {
		return err
	}
	s.mmap = m
	for _, name := range []string{pack.EntryMBRA, pack.EntryMBRB, pack.EntryBootImage, pack.EntryRootfs} {
		if _, ok := mf.Files[name]; !ok {
			return fmt.Errorf("%w: manifest lacks %s", ErrCorruptPackage, name)
		}
	}
	size, err := s.Target.Size()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreadableDevice, err)
	}
	if size < m.ImageSize() {
		return fmt.Errorf("%w: %d bytes, need %d", ErrUnreadableDevice, size, m.ImageSize())
	}
	if s.Mode == ModeFreshInstall {
		// nothing on the card is trusted or preserved
		s.active = mbr.SlotA
		return nil
	}
	sector := make([]byte, mbr.Size)
	if _, err := s.Target.ReadAt(sector, 0); err != nil {
		return fmt.Errorf("%w: reading MBR: %s", ErrUnreadableDevice, err)
	}
	dec, err := mbr.Decode(sector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreadableDevice, err)
	}
	if err := s.checkLayout(dec); err != nil {
		return err
	}
	s.active = dec.Active
	log.Logf("device layout ok, slot %s active", s.active)
	return nil
}

// checkLayout refuses to update a device whose rootfs partitions are not
// where the package expects them. A mismatch means the card was laid out
// with a different memory map and an update would brick it.
func (s *Session) checkLayout(dec *mbr.Decoded) error {
	a, err := s.mmap.Region(memmap.RootfsA)
	if err != nil {
		return err
	}
	b, err := s.mmap.Region(memmap.RootfsB)
	if err != nil {
		return err
	}
	lo, hi := dec.Entries[0], dec.Entries[1]
	if lo.LBA > hi.LBA {
		lo, hi = hi, lo
	}
	if int64(lo.LBA) != a.Sector() || int64(lo.Sectors) != a.Sectors() ||
		int64(hi.LBA) != b.Sector() || int64(hi.Sectors) != b.Sectors() {
		return &memmap.ConfigError{Err: fmt.Errorf(
			"device rootfs partitions %d+%d/%d+%d do not match package layout %d+%d/%d+%d",
			lo.LBA, lo.Sectors, hi.LBA, hi.Sectors,
			a.Sector(), a.Sectors(), b.Sector(), b.Sectors())}
	}
	return nil
}

// timedWrite is WriteAt plus the liveness deadline. Block device writes
// cannot be interrupted portably, so the deadline is checked after the
// fact; a glacial card fails the session rather than hanging it forever.
func (s *Session) timedWrite(p []byte, off int64) error {
	start := time.Now()
	if _, err := s.Target.WriteAt(p, off); err != nil {
		return fmt.Errorf("%w: %d bytes at %d: %s", ErrWriteFailure, len(p), off, err)
	}
	if s.ChunkTimeout > 0 {
		if took := time.Since(start); took > s.ChunkTimeout {
			return fmt.Errorf("%w: %d bytes at %d took %s", ErrDeviceTimeout, len(p), off, took.Round(time.Millisecond))
		}
	}
	return nil
}

// writeRootfsTo streams the rootfs payload into the named region, hashing
// as it goes and failing with ErrCorruptPackage if the digest disagrees
// with the manifest. meter may be nil.
func (s *Session) writeRootfsTo(region string, meter *progress.Meter) error {
	fi := s.Pkg.Manifest.Files[pack.EntryRootfs]
	dest, err := s.mmap.Region(region)
	if err != nil {
		return err
	}
	if fi.Size > dest.Size {
		return fmt.Errorf("%w: rootfs %d bytes exceeds %s", ErrCorruptPackage, fi.Size, dest)
	}
	rc, _, err := s.Pkg.Open(pack.EntryRootfs)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCorruptPackage, err)
	}
	defer rc.Close()

	sum := sha256.New()
	buf := make([]byte, copyChunk)
	var written int64
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
			if werr := s.timedWrite(buf[:n], dest.Offset+written); werr != nil {
				return werr
			}
			written += int64(n)
			if meter != nil {
				meter.Add(int64(n))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading rootfs: %s", ErrCorruptPackage, err)
		}
	}
	if written != fi.Size {
		return fmt.Errorf("%w: rootfs is %d bytes, manifest says %d", ErrCorruptPackage, written, fi.Size)
	}
	if got := hex.EncodeToString(sum.Sum(nil)); got != fi.SHA256 {
		return fmt.Errorf("%w: rootfs sha256 %s, manifest says %s", ErrCorruptPackage, got, fi.SHA256)
	}
	return nil
}

func (s *Session) writeInactiveRootfs() error {
	target := memmap.RootfsB
	if s.active == mbr.SlotB {
		target = memmap.RootfsA
	}
	log.Logf("writing rootfs to inactive slot %s (%s)", s.active.Other(), target)
	meter := progress.NewMeter(s.Pkg.Manifest.Files[pack.EntryRootfs].Size, s.Progress)
	if err := s.writeRootfsTo(target, meter); err != nil {
		return err
	}
	if err := s.Target.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %s", ErrWriteFailure, err)
	}
	meter.Done()
	return nil
}

// writeBootloaders rewrites everything between the MBR and the first
// rootfs slot: descriptors, environment, UBL, U-Boot. Sector 0 is left
// alone so the active-slot switch stays a separate, final write. Unlike
// the rootfs path there is no spare copy; an interruption here needs
// recovery over the card programmer.
func (s *Session) writeBootloaders() error {
	img, err := s.readVerified(pack.EntryBootImage)
	if err != nil {
		return err
	}
	if len(img) <= mbr.Size {
		return fmt.Errorf("%w: boot image only %d bytes", ErrCorruptPackage, len(img))
	}
	log.Msgf("rewriting bootloaders (%d bytes)", len(img)-mbr.Size)
	if err := s.timedWrite(img[mbr.Size:], mbr.Size); err != nil {
		return err
	}
	if err := s.Target.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %s", ErrWriteFailure, err)
	}
	return nil
}

// switchActive is the commit point: read sector 0 back from the device,
// swap the rootfs entries, write the sector. One write, so a power cut
// leaves either the old table or the new one, never a torn mix.
func (s *Session) switchActive() error {
	sector := make([]byte, mbr.Size)
	if _, err := s.Target.ReadAt(sector, 0); err != nil {
		return fmt.Errorf("%w: rereading MBR: %s", ErrUnreadableDevice, err)
	}
	flipped, err := mbr.FlipActiveSlot(sector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnreadableDevice, err)
	}
	if err := s.timedWrite(flipped, 0); err != nil {
		return err
	}
	if err := s.Target.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %s", ErrWriteFailure, err)
	}
	s.active = s.active.Other()
	log.Logf("active slot switched to %s", s.active)
	return nil
}

// readVerified slurps a small entry and checks it against the manifest.
func (s *Session) readVerified(name string) ([]byte, error) {
	fi := s.Pkg.Manifest.Files[name]
	data, err := s.Pkg.ReadAll(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptPackage, err)
	}
	if int64(len(data)) != fi.Size {
		return nil, fmt.Errorf("%w: %s is %d bytes, manifest says %d", ErrCorruptPackage, name, len(data), fi.Size)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != fi.SHA256 {
		return nil, fmt.Errorf("%w: %s sha256 %s, manifest says %s", ErrCorruptPackage, name, got, fi.SHA256)
	}
	return data, nil
}

// freshInstall reproduces the factory raw image: erase the head and tail
// of the layout, write the boot image (including the slot-A MBR), fill
// both rootfs slots, and zero the format markers so first boot creates the
// scratch filesystems. No slot switch; slot A boots, same as a card from
// the bulk programmer.
func (s *Session) freshInstall() error {
	const eraseLen = 1024 * 1024
	imgSize := s.mmap.ImageSize()
	log.Msgf("fresh install: erasing and rewriting %s", s.Pkg.Path())
	head := int64(eraseLen)
	if head > imgSize {
		head = imgSize
	}
	if err := zeroRange(s.Target, 0, head); err != nil {
		return err
	}
	tail := imgSize - eraseLen
	if tail < head {
		tail = head
	}
	if err := zeroRange(s.Target, tail, imgSize-tail); err != nil {
		return err
	}

	boot, err := s.readVerified(pack.EntryBootImage)
	if err != nil {
		return err
	}
	if err := s.timedWrite(boot, 0); err != nil {
		return err
	}

	// both slots get the same rootfs; one meter spans the pair
	meter := progress.NewMeter(2*s.Pkg.Manifest.Files[pack.EntryRootfs].Size, s.Progress)
	for _, region := range []string{memmap.RootfsA, memmap.RootfsB} {
		if err := s.writeRootfsTo(region, meter); err != nil {
			return err
		}
	}

	for _, name := range []string{memmap.Debug, memmap.Working} {
		r, err := s.mmap.Region(name)
		if err != nil {
			return err
		}
		n := int64(pack.FormatMarkerSectors * memmap.SectorSize)
		if n > r.Size {
			n = r.Size
		}
		if err := zeroRange(s.Target, r.Offset, n); err != nil {
			return err
		}
	}
	if err := s.Target.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %s", ErrWriteFailure, err)
	}
	meter.Done()
	s.active = mbr.SlotA
	return nil
}
