// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package memmap

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config file keys, minus the _start/_count suffixes. The file format is the
// historical one: an INI [MemoryMap] section with values in 512-byte blocks.
// The MBR is not configurable; it is always block 0.
var configKeys = []struct {
	region string
	key    string
}{
	{UBLSig, "ubl_sig"},
	{UBootSig, "uboot_sig"},
	{UBootEnv, "uboot_env"},
	{UBL, "ubl"},
	{UBoot, "uboot"},
	{RootfsA, "rootfs_a_partition"},
	{RootfsB, "rootfs_b_partition"},
	{Debug, "debug_partition"},
	{Working, "working_partition"},
}

const configSection = "memorymap"

// Load reads a memory map configuration file and validates it. Any problem -
// unreadable file, missing key, overlapping or misordered regions, unequal
// rootfs slots - comes back as a ConfigError.
func Load(path string) (*Map, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("reading %s: %w", path, err)}
	}
	regions := []Region{{Name: MBR, Offset: 0, Size: SectorSize}}
	var merr *multierror.Error
	for _, ck := range configKeys {
		start, err := lookup(v, ck.key+"_start")
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		count, err := lookup(v, ck.key+"_count")
		if err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		regions = append(regions, Region{
			Name:   ck.region,
			Offset: start * SectorSize,
			Size:   count * SectorSize,
		})
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return New(regions)
}

func lookup(v *viper.Viper, key string) (int64, error) {
	full := configSection + "." + key
	if !v.IsSet(full) {
		return 0, fmt.Errorf("missing key %s", key)
	}
	val := v.GetInt64(full)
	if val < 0 {
		return 0, fmt.Errorf("key %s: negative value %d", key, val)
	}
	return val, nil
}
