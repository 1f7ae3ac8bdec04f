// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package progress

import "testing"

func TestMeter(t *testing.T) {
	var seen []int
	m := NewMeter(1000, func(pct int) { seen = append(seen, pct) })
	for i := 0; i < 10; i++ {
		m.Add(100)
	}
	if len(seen) != 10 {
		t.Fatalf("%d callbacks, want 10: %v", len(seen), seen)
	}
	for i, pct := range seen {
		if want := (i + 1) * 10; pct != want {
			t.Errorf("callback %d: %d, want %d", i, pct, want)
		}
	}
}

func TestMeterMonotonic(t *testing.T) {
	var seen []int
	m := NewMeter(100000, func(pct int) { seen = append(seen, pct) })
	for i := 0; i < 1000; i++ {
		m.Add(100)
	}
	last := 0
	for _, pct := range seen {
		if pct <= last {
			t.Fatalf("%d after %d", pct, last)
		}
		if pct < 1 || pct > 100 {
			t.Fatalf("out of range: %d", pct)
		}
		last = pct
	}
	if last != 100 {
		t.Errorf("ended at %d", last)
	}
}

func TestMeterOvershoot(t *testing.T) {
	var seen []int
	m := NewMeter(100, func(pct int) { seen = append(seen, pct) })
	m.Add(250)
	if len(seen) != 1 || seen[0] != 100 {
		t.Errorf("overshoot: %v", seen)
	}
	m.Done()
	if len(seen) != 1 {
		t.Errorf("Done after 100%%: %v", seen)
	}
}

func TestMeterDone(t *testing.T) {
	var seen []int
	m := NewMeter(100, func(pct int) { seen = append(seen, pct) })
	m.Add(30)
	m.Done()
	if len(seen) != 2 || seen[1] != 100 {
		t.Errorf("%v", seen)
	}
}

// a tiny first chunk still reports 1, never 0
func TestMeterFloor(t *testing.T) {
	var seen []int
	m := NewMeter(1 << 20, func(pct int) { seen = append(seen, pct) })
	m.Add(1)
	if len(seen) != 1 || seen[0] != 1 {
		t.Errorf("%v", seen)
	}
}

func TestMeterNilFunc(t *testing.T) {
	m := NewMeter(100, nil)
	m.Add(50) //must not panic
	m.Done()
}
