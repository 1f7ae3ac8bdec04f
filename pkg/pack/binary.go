// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"bytes"
	"fmt"
	"os"
	fp "path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// LoadBinary reads a bootloader or rootfs input. Raw binaries are returned
// as-is; files named *.hex / *.ihex are parsed as Intel HEX and flattened
// into one contiguous blob starting at the lowest programmed address, with
// gaps filled with 0xFF (erased-flash convention).
func LoadBinary(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(fp.Ext(path)) {
	case ".hex", ".ihex":
		return flattenIntelHex(path, data)
	}
	return data, nil
}

func flattenIntelHex(path string, data []byte) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	segs := mem.GetDataSegments()
	if len(segs) == 0 {
		return nil, fmt.Errorf("parsing %s: no data records", path)
	}
	lo := segs[0].Address
	var hi uint32
	for _, s := range segs {
		if s.Address < lo {
			lo = s.Address
		}
		if end := s.Address + uint32(len(s.Data)); end > hi {
			hi = end
		}
	}
	return mem.ToBinary(lo, hi-lo, 0xff), nil
}
