// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// packager builds DM36x firmware artifacts on a development machine: a
// .fw update package, a raw card image for bulk programming, or both from
// the same inputs in one run.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
	"github.com/fhunleth/dm36x-packager/pkg/pack"
	"github.com/spf13/cobra"
)

// Exit codes, stable for build scripts.
const (
	exitUsage  = 1
	exitConfig = 2
	exitInput  = 3
)

var buildId string

var (
	configPath  string
	ublPath     string
	ubootPath   string
	rootfsPath  string
	fwPath      string
	imgPath     string
	version     string
	applierPath string
	forceBoot   bool
)

func main() {
	root := &cobra.Command{
		Use:   "packager",
		Short: "build DM36x firmware packages and raw card images",
		Long: `packager assembles bootloaders and a root filesystem into firmware
artifacts for DM36x boards. It can emit an update package (applied in the
field without touching the running system until the final sector write)
and/or a raw image (byte-for-byte card contents for bulk programming).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	f := root.Flags()
	f.StringVarP(&configPath, "config", "c", "", "memory map configuration file (required)")
	f.StringVarP(&ublPath, "ubl", "s", "", "UBL binary or Intel HEX file (required)")
	f.StringVarP(&ubootPath, "uboot", "u", "", "U-Boot binary or Intel HEX file (required)")
	f.StringVarP(&rootfsPath, "rootfs", "r", "", "root filesystem image (required)")
	f.StringVarP(&fwPath, "fwfile", "f", "", "firmware update package to write")
	f.StringVarP(&imgPath, "imgfile", "g", "", "raw card image to write")
	f.StringVarP(&version, "version", "v", "", "firmware version string")
	f.StringVarP(&applierPath, "applier", "a", "", "executable to embed as the package's update logic")
	f.BoolVarP(&forceBoot, "bootloader", "b", false, "mark the package to always rewrite bootloaders")
	for _, req := range []string{"config", "ubl", "uboot", "rootfs"} {
		if err := root.MarkFlagRequired(req); err != nil {
			panic(err)
		}
	}

	log.AddConsoleLog(0)
	if err := root.Execute(); err != nil {
		log.Msgf("error: %s", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	if fwPath == "" && imgPath == "" {
		return fmt.Errorf("nothing to do: give -f and/or -g")
	}
	m, err := memmap.Load(configPath)
	if err != nil {
		return err
	}
	in := &pack.Inputs{
		Map:              m,
		Version:          version,
		ForceBootloaders: forceBoot,
	}
	if in.UBL, err = pack.LoadBinary(ublPath); err != nil {
		return err
	}
	if in.UBoot, err = pack.LoadBinary(ubootPath); err != nil {
		return err
	}
	if in.Rootfs, err = pack.LoadBinary(rootfsPath); err != nil {
		return err
	}
	if applierPath != "" {
		if in.Applier, err = os.ReadFile(applierPath); err != nil {
			return err
		}
	}

	if fwPath != "" {
		mf, err := pack.WritePackageFile(fwPath, in)
		if err != nil {
			return err
		}
		log.Msgf("%s: version %s", fwPath, mf.Version)
	}
	if imgPath != "" {
		img, err := pack.BuildRawImage(in)
		if err != nil {
			return err
		}
		if err := os.WriteFile(imgPath, img, 0644); err != nil {
			return err
		}
		log.Msgf("%s: %d bytes", imgPath, len(img))
	}
	return nil
}

func exitCode(err error) int {
	var cfgErr *memmap.ConfigError
	var ovErr *pack.OversizeError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &ovErr), errors.Is(err, pack.ErrMissingInput):
		return exitInput
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return exitInput
	}
	return exitUsage
}
