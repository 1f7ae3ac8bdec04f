// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// updater applies a firmware package to a DM36x card. It runs on the
// device for self-update (writing back to the boot medium) and on a host
// for provisioning cards in a reader. It is also the binary the packager
// embeds as a package's `apply` entry.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fhunleth/dm36x-packager/pkg/blockdev"
	"github.com/fhunleth/dm36x-packager/pkg/log"
	"github.com/fhunleth/dm36x-packager/pkg/log/flags"
	"github.com/fhunleth/dm36x-packager/pkg/memmap"
	"github.com/fhunleth/dm36x-packager/pkg/pack"
	"github.com/fhunleth/dm36x-packager/pkg/update"
	"github.com/spf13/cobra"
)

// Exit codes, stable for whatever supervises the update.
const (
	exitUsage      = 1
	exitConfig     = 2
	exitCorrupt    = 3
	exitUnreadable = 4
	exitWrite      = 5
	exitTimeout    = 6
)

var buildId string

var (
	dest         string
	fresh        bool
	numeric      bool
	showVersion  bool
	bootloaders  bool
	verbose      bool
	chunkTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "updater <package>",
		Short: "apply a DM36x firmware package to a card",
		Long: `updater writes a firmware package to a target device. The new root
filesystem goes into the slot that is not booting; the final step is a
single sector write that switches slots, so an interruption at any point
leaves the device booting complete firmware.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	f := root.Flags()
	f.StringVarP(&dest, "destination", "d", "", "target device or image file (default: the boot device)")
	f.BoolVarP(&fresh, "fresh", "f", false, "fresh install: erase and lay out the whole card")
	f.BoolVarP(&numeric, "numeric", "n", false, "print progress as bare integers on stdout")
	f.BoolVarP(&showVersion, "version", "v", false, "print the package's firmware version and exit")
	f.BoolVarP(&bootloaders, "bootloader", "b", false, "also rewrite the bootloader regions")
	f.BoolVar(&verbose, "verbose", false, "log technical detail to the console")
	f.DurationVar(&chunkTimeout, "chunk-timeout", 0, "fail if any single write takes longer than this")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

func run(pkgPath string) error {
	if verbose {
		log.AddConsoleLog(0)
	} else {
		log.AddConsoleLog(flags.EndUser)
	}
	pkg, err := pack.OpenPackage(pkgPath)
	if err != nil {
		return fmt.Errorf("%w: %s", update.ErrCorruptPackage, err)
	}
	if showVersion {
		fmt.Println(pkg.Manifest.Version)
		return nil
	}
	if dest == "" {
		dest = blockdev.BootDevice()
		log.Logf("no destination given, using boot device %s", dest)
	}
	tgt, err := update.OpenTarget(dest)
	if err != nil {
		return err
	}
	defer tgt.Close()

	mode := update.ModeUpdate
	if fresh {
		mode = update.ModeFreshInstall
	}
	s := update.NewSession(pkg, tgt, mode)
	s.Bootloaders = bootloaders
	s.ChunkTimeout = chunkTimeout
	s.Progress = showProgress
	return s.Run()
}

// showProgress is the side channel: bare integers for machine consumers,
// a redrawn percent line for humans. Progress never goes through the log
// stack; a rootfs write would bloat any file sink with noise.
func showProgress(pct int) {
	if numeric {
		fmt.Println(pct)
		return
	}
	fmt.Fprintf(os.Stderr, "\r%3d%%", pct)
	if pct == 100 {
		fmt.Fprintln(os.Stderr)
	}
}

func exitCode(err error) int {
	var cfgErr *memmap.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.Is(err, update.ErrCorruptPackage):
		return exitCorrupt
	case errors.Is(err, update.ErrUnreadableDevice):
		return exitUnreadable
	case errors.Is(err, update.ErrDeviceTimeout):
		return exitTimeout
	case errors.Is(err, update.ErrWriteFailure):
		return exitWrite
	}
	return exitUsage
}
