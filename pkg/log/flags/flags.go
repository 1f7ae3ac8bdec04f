// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package flags holds log entry flags, in their own package so that both log
// and its sinks can import them.
package flags

type Flag uint32

const (
	// NA - no flags. Matches every sink filter.
	NA Flag = 0
	// EndUser marks short, non-technical messages meant for whoever is
	// watching the update run.
	EndUser Flag = 1
	// Fatal marks the final entry written by log.Fatalf.
	Fatal Flag = 2
	// NotFile excludes an entry from file sinks.
	NotFile Flag = 4
)
