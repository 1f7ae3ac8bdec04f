// Copyright (C) 2026 the dm36x-packager Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package pack

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fhunleth/dm36x-packager/pkg/log/testlog"
	"github.com/santhosh-tekuri/jsonschema"
)

// test against the manifest schema
func TestManifestJsonConformance(t *testing.T) {
	testlog.NewTestLog(t, false)
	schema, err := jsonschema.Compile("schemas/manifest.json")
	if err != nil {
		t.Fatal(err)
	}
	in := testInputs(t)
	in.Applier = pattern(0x40, 100)
	// validate the manifest bytes exactly as embedded
	path := t.TempDir() + "/conf.fw"
	if _, err := WritePackageFile(path, in); err != nil {
		t.Fatal(err)
	}
	pkg, err := OpenPackage(path)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := pkg.ReadAll(ManifestName)
	if err != nil {
		t.Fatal(err)
	}
	if err := schema.Validate(bytes.NewReader(raw)); err != nil {
		t.Error(err)
	}
}

func TestManifestString(t *testing.T) {
	mf := &Manifest{
		Version:   "2.0.0",
		BuildTime: "20260825_1200",
		Files: map[string]FileInfo{
			EntryRootfs: {Size: 4, SHA256: "abcd"},
		},
	}
	s := mf.String()
	for _, want := range []string{"2.0.0", EntryRootfs, "abcd"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() lacks %q:\n%s", want, s)
		}
	}
}
