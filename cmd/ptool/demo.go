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

	"github.com/google/subcommands"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/pagetables"
)

// Demo implements subcommands.Command for the "demo" command.
type Demo struct {
	host bool
}

// Name implements subcommands.Command.Name.
func (*Demo) Name() string {
	return "demo"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Demo) Synopsis() string {
	return "map, query and unmap a few pages, narrating each step"
}

// Usage implements subcommands.Command.Usage.
func (*Demo) Usage() string {
	return `demo [flags]`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Demo) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&d.host, "host", false, "back nodes with host memory instead of the Go runtime")
}

// Execute implements subcommands.Command.Execute.
func (d *Demo) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	allocator, release := newAllocator(d.host, 64)
	defer release()

	pt := pagetables.New(allocator)
	fmt.Printf("root frame: %#x\n", pt.RootFrame())

	pairs := []struct{ vpn, ppn uint64 }{
		{0, 7},
		{1, 8},
		{0x1234567, 0x89ab},
	}
	for _, p := range pairs {
		pt.Update(p.vpn, p.ppn)
		fmt.Printf("map    vpn %#x -> ppn %#x\n", p.vpn, p.ppn)
	}
	for _, p := range pairs {
		fmt.Printf("query  vpn %#x -> ppn %#x\n", p.vpn, pt.Query(p.vpn))
	}
	for _, p := range pairs {
		pt.Update(p.vpn, pagetables.NoMapping)
		fmt.Printf("unmap  vpn %#x, mapped now: %v\n", p.vpn, pt.IsMapped(p.vpn))
	}

	pt.Release()
	return subcommands.ExitSuccess
}
