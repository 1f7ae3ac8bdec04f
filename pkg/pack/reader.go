// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/ulikunitz/xz"
)

// ErrNoEntry is returned by Package.Open for a name not in the archive.
var ErrNoEntry = errors.New("no such package entry")

// Package is a firmware package opened for reading. Entries are streamed
// from the archive on demand; tar is sequential, so each Open rescans from
// the front - cheap for the manifest, and the big payloads are only read
// once each anyway.
type Package struct {
	path     string
	Manifest *Manifest
}

// OpenPackage reads and parses the manifest, which must be the first entry.
// Archive or manifest damage is reported as-is; callers decide how fatal
// that is.
func OpenPackage(path string) (*Package, error) {
	p := &Package{path: path}
	rc, _, err := p.Open(ManifestName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	mf := &Manifest{}
	if err := json.NewDecoder(rc).Decode(mf); err != nil {
		return nil, fmt.Errorf("%s: parsing manifest: %w", path, err)
	}
	p.Manifest = mf
	return p, nil
}

// Path returns the archive's own path, for handing to the embedded applier.
func (p *Package) Path() string { return p.path }

// Open returns a reader for the named entry plus its size. The caller must
// Close it before opening another entry.
func (p *Package) Open(name string) (io.ReadCloser, int64, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, 0, err
	}
	xzr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%s: xz: %w", p.path, err)
	}
	tr := tar.NewReader(xzr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			f.Close()
			return nil, 0, fmt.Errorf("%s: %q: %w", p.path, name, ErrNoEntry)
		}
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("%s: tar: %w", p.path, err)
		}
		if h.FileInfo().IsDir() {
			continue
		}
		if h.Name == name {
			return &entryReader{r: tr, f: f}, h.Size, nil
		}
		if name == ManifestName {
			// manifest must come first; anything before it is suspect
			log.Logf("package: out-of-order entry %s", h.Name)
		}
	}
}

// ReadAll slurps one entry. Only for the small ones.
func (p *Package) ReadAll(name string) ([]byte, error) {
	rc, _, err := p.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type entryReader struct {
	r io.Reader
	f *os.File
}

func (er *entryReader) Read(b []byte) (int, error) { return er.r.Read(b) }
func (er *entryReader) Close() error               { return er.f.Close() }
