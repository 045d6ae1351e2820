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
	"context"
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/google/subcommands"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/pagetables"
)

// mappingSpec is one vpn -> ppn pair in a scenario file.
type mappingSpec struct {
	VPN uint64 `toml:"vpn"`
	PPN uint64 `toml:"ppn"`
}

// scenario is a TOML scenario file:
//
//	[[mapping]]
//	vpn = 0x10
//	ppn = 0x42
type scenario struct {
	Mappings []mappingSpec `toml:"mapping"`
}

func loadScenario(path string) (*scenario, error) {
	var s scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return &s, nil
}

// Load implements subcommands.Command for the "load" command.
type Load struct {
	host bool
}

// Name implements subcommands.Command.Name.
func (*Load) Name() string {
	return "load"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Load) Synopsis() string {
	return "apply a TOML mapping scenario and verify every query"
}

// Usage implements subcommands.Command.Usage.
func (*Load) Usage() string {
	return `load [flags] <scenario.toml>`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *Load) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&l.host, "host", false, "back nodes with host memory instead of the Go runtime")
}

// Execute implements subcommands.Command.Execute.
func (l *Load) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	s, err := loadScenario(f.Arg(0))
	if err != nil {
		Fatalf("loading scenario: %v", err)
	}

	// Worst case every mapping needs a full fresh chain.
	allocator, release := newAllocator(l.host, 1+4*len(s.Mappings))
	defer release()

	pt := pagetables.New(allocator)
	want := make(map[uint64]uint64, len(s.Mappings))
	for _, m := range s.Mappings {
		// Last entry wins, same as replaying the updates.
		pt.Update(m.VPN, m.PPN)
		want[m.VPN] = m.PPN
	}
	for vpn, ppn := range want {
		if got := pt.Query(vpn); got != ppn {
			Fatalf("Query(%#x) = %#x, want %#x", vpn, got, ppn)
		}
	}
	fmt.Printf("ok: %d mappings applied and verified\n", len(want))

	pt.Release()
	return subcommands.ExitSuccess
}
