// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Package progress reports write progress as a monotonically increasing
// percentage. It is a side channel: nothing about update correctness
// depends on it, and a nil callback disables it entirely.
package progress

// Func receives percentages in 1..100. Each value is strictly greater than
// the last one delivered.
type Func func(percent int)

// Meter tracks completion of a known number of bytes.
type Meter struct {
	total int64
	done  int64
	last  int
	fn    Func
}

// NewMeter returns a Meter for total bytes reporting to fn. fn may be nil.
func NewMeter(total int64, fn Func) *Meter {
	return &Meter{total: total, fn: fn}
}

// Add records n more bytes done, notifying the callback if the percentage
// moved. Values never exceed 100 even if the caller overshoots total.
func (m *Meter) Add(n int64) {
	m.done += n
	if m.fn == nil || m.total <= 0 {
		return
	}
	pct := int(m.done * 100 / m.total)
	if pct < 1 {
		pct = 1
	}
	if pct > 100 {
		pct = 100
	}
	if pct > m.last {
		m.last = pct
		m.fn(pct)
	}
}

// Done forces the meter to 100%.
func (m *Meter) Done() {
	if m.fn != nil && m.last < 100 {
		m.last = 100
		m.fn(100)
	}
}
