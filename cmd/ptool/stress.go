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
	"math/rand"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/log"
	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/pagetables"
)

// Stress implements subcommands.Command for the "stress" command. It runs
// a randomized map/unmap/query workload against a shadow map on each of a
// number of independent tables. Mutations on a single table stay on one
// goroutine, matching the library's serialization contract; the tables
// themselves run in parallel.
type Stress struct {
	roots int
	ops   int
	span  uint64
	seed  int64
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "run a randomized workload, verified against a shadow map"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return `stress [flags]`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.roots, "roots", 4, "number of independent tables to exercise in parallel")
	f.IntVar(&s.ops, "ops", 100000, "operations per table")
	f.Uint64Var(&s.span, "span", 1<<20, "VPNs are drawn from [0, span)")
	f.Int64Var(&s.seed, "seed", 1, "base RNG seed")
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	var g errgroup.Group
	for i := 0; i < s.roots; i++ {
		i := i
		g.Go(func() error {
			return s.run(rand.New(rand.NewSource(s.seed + int64(i))))
		})
	}
	if err := g.Wait(); err != nil {
		Fatalf("stress: %v", err)
	}
	fmt.Printf("ok: %d tables x %d ops\n", s.roots, s.ops)
	return subcommands.ExitSuccess
}

func (s *Stress) run(rng *rand.Rand) error {
	pt := pagetables.New(pagetables.NewRuntimeAllocator())
	defer pt.Release()

	shadow := make(map[uint64]uint64)
	for op := 0; op < s.ops; op++ {
		vpn := rng.Uint64() % s.span
		switch rng.Intn(4) {
		case 0, 1:
			ppn := rng.Uint64() % (1 << 32)
			pt.Update(vpn, ppn)
			shadow[vpn] = ppn
		case 2:
			pt.Update(vpn, pagetables.NoMapping)
			delete(shadow, vpn)
		case 3:
			want, ok := shadow[vpn]
			if !ok {
				want = pagetables.NoMapping
			}
			if got := pt.Query(vpn); got != want {
				return fmt.Errorf("op %d: Query(%#x) = %#x, want %#x", op, vpn, got, want)
			}
		}
	}

	// Full sweep at the end.
	for vpn, want := range shadow {
		if got := pt.Query(vpn); got != want {
			return fmt.Errorf("sweep: Query(%#x) = %#x, want %#x", vpn, got, want)
		}
	}
	log.Debugf("table verified: %d live mappings", len(shadow))
	return nil
}
