// Copyright 2026 The Multi-Level Page Tables Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.toml")
	data := `
[[mapping]]
vpn = 0x10
ppn = 0x42

[[mapping]]
vpn = 17
ppn = 7
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := loadScenario(path)
	if err != nil {
		t.Fatalf("loadScenario: %v", err)
	}
	want := []mappingSpec{
		{VPN: 0x10, PPN: 0x42},
		{VPN: 17, PPN: 7},
	}
	if diff := cmp.Diff(want, s.Mappings); diff != "" {
		t.Errorf("scenario mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	if _, err := loadScenario(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
