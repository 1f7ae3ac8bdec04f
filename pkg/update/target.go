// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package update

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/fhunleth/dm36x-packager/pkg/blockdev"
	"github.com/fhunleth/dm36x-packager/pkg/log"
)

// Target is the storage a session writes to. One session owns its target
// exclusively from open to close; Sync must not return until everything
// written so far is durable, because the slot switch relies on it.
type Target interface {
	io.ReaderAt
	io.WriterAt
	Sync() error
	Size() (int64, error)
	Close() error
}

// FileTarget is a Target backed by a device node or an image file.
type FileTarget struct {
	f *os.File
}

var _ Target = (*FileTarget)(nil)

// OpenTarget opens path for exclusive writing. A block device with mounted
// partitions, or one held open by another process, is refused - both are
// ErrUnreadableDevice, reported before anything is written.
func OpenTarget(path string) (*FileTarget, error) {
	flags := os.O_RDWR
	if blockdev.IsBlockDev(path) {
		mounted, err := blockdev.Mounted(path)
		if err != nil {
			log.Logf("mount check for %s: %s", path, err)
		} else if mounted {
			return nil, fmt.Errorf("%w: %s has mounted partitions", ErrUnreadableDevice, path)
		}
		// O_EXCL on a block device means exclusive open: EBUSY if the
		// kernel or another process is using it.
		flags |= syscall.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreadableDevice, err)
	}
	return &FileTarget{f: f}, nil
}

func (t *FileTarget) ReadAt(p []byte, off int64) (int, error)  { return t.f.ReadAt(p, off) }
func (t *FileTarget) WriteAt(p []byte, off int64) (int, error) { return t.f.WriteAt(p, off) }
func (t *FileTarget) Sync() error                              { return t.f.Sync() }
func (t *FileTarget) Close() error                             { return t.f.Close() }

func (t *FileTarget) Size() (int64, error) {
	// works for block devices and regular files alike
	return t.f.Seek(0, io.SeekEnd)
}

const zeroChunk = 1024 * 1024

// zeroRange writes length zero bytes at off. Used for the fresh-install
// erase and the format-trigger markers.
func zeroRange(t Target, off, length int64) error {
	zeros := make([]byte, zeroChunk)
	for length > 0 {
		n := int64(len(zeros))
		if n > length {
			n = length
		}
		if _, err := t.WriteAt(zeros[:n], off); err != nil {
			return fmt.Errorf("%w: zeroing at %d: %s", ErrWriteFailure, off, err)
		}
		off += n
		length -= n
	}
	return nil
}
