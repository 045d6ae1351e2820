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

package pagetables

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// countingAllocator wraps an Allocator and counts calls.
type countingAllocator struct {
	Allocator
	allocs int
	frees  int
}

func (c *countingAllocator) NewPTEs() *PTEs {
	c.allocs++
	return c.Allocator.NewPTEs()
}

func (c *countingAllocator) FreePTEs(ptes *PTEs) {
	c.frees++
	c.Allocator.FreePTEs(ptes)
}

func newTestTables() (*PageTables, *countingAllocator) {
	a := &countingAllocator{Allocator: NewRuntimeAllocator()}
	pt := New(a)
	// Init costs one node for the root; tests count from here.
	a.allocs = 0
	return pt, a
}

// checkMappings queries every VPN in want and diffs the results.
func checkMappings(t *testing.T, pt *PageTables, want map[uint64]uint64) {
	t.Helper()
	got := make(map[uint64]uint64, len(want))
	for vpn := range want {
		got[vpn] = pt.Query(vpn)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mappings mismatch (-want +got):\n%s", diff)
	}
}

func TestMapQueryRoundTrip(t *testing.T) {
	pt, _ := newTestTables()

	for vpn, ppn := range map[uint64]uint64{
		0:                  7,
		1:                  42,
		0x1234567:          0x89ab,
		1<<vpnBits - 1:     1,
		1 << (vpnBits - 1): 1<<frameBits - 1,
	} {
		pt.Update(vpn, ppn)
		if got := pt.Query(vpn); got != ppn {
			t.Errorf("Query(%#x) = %#x, want %#x", vpn, got, ppn)
		}
	}
}

func TestUnmapClears(t *testing.T) {
	pt, _ := newTestTables()

	pt.Update(0x42, 7)
	pt.Update(0x42, NoMapping)
	if got := pt.Query(0x42); got != NoMapping {
		t.Errorf("Query after unmap = %#x, want NoMapping", got)
	}

	// Unmapping a VPN that was never mapped is a no-op.
	pt.Update(0x9999, NoMapping)
	if got := pt.Query(0x9999); got != NoMapping {
		t.Errorf("Query of untouched VPN = %#x, want NoMapping", got)
	}
}

func TestIdempotentDestroy(t *testing.T) {
	pt, a := newTestTables()

	pt.Update(0x42, NoMapping)
	pt.Update(0x42, NoMapping)
	if a.allocs != 0 {
		t.Errorf("destroy allocated %d nodes, want 0", a.allocs)
	}
	if pt.IsMapped(0x42) {
		t.Errorf("IsMapped(0x42) = true after destroy")
	}
}

func TestOverwrite(t *testing.T) {
	pt, _ := newTestTables()

	pt.Update(0x42, 7)
	pt.Update(0x42, 8)
	if got := pt.Query(0x42); got != 8 {
		t.Errorf("Query = %#x, want 8", got)
	}
}

func TestPrefixSharing(t *testing.T) {
	pt, a := newTestTables()

	// First mapping materializes the four intermediate nodes below the
	// root.
	pt.Update(0, 7)
	if a.allocs != numLevels-1 {
		t.Fatalf("first mapping allocated %d nodes, want %d", a.allocs, numLevels-1)
	}

	// A sibling leaf in the same last-level node shares the whole chain.
	pt.Update(1, 8)
	if a.allocs != numLevels-1 {
		t.Errorf("sibling mapping allocated %d extra nodes, want 0", a.allocs-(numLevels-1))
	}

	// A VPN differing only in the level-4 index shares levels 1..3 and
	// needs exactly one new node.
	pt.Update(1<<bitsPerLevel, 9)
	if a.allocs != numLevels {
		t.Errorf("level-4 sibling allocated %d extra nodes, want 1", a.allocs-(numLevels-1))
	}

	checkMappings(t, pt, map[uint64]uint64{
		0:                 7,
		1:                 8,
		1 << bitsPerLevel: 9,
	})
}

func TestIndependentRoots(t *testing.T) {
	a := &countingAllocator{Allocator: NewRuntimeAllocator()}
	ptA := New(a)
	ptB := New(a)

	ptA.Update(0x42, 7)
	if got := ptB.Query(0x42); got != NoMapping {
		t.Errorf("table B observes table A's mapping: %#x", got)
	}
	ptB.Update(0x42, 9)
	if got := ptA.Query(0x42); got != 7 {
		t.Errorf("table A mapping disturbed by table B: %#x", got)
	}
}

func TestConcreteScenario(t *testing.T) {
	pt, a := newTestTables()

	pt.Update(0, 7)
	if got := pt.Query(0); got != 7 {
		t.Errorf("Query(0) = %#x, want 7", got)
	}
	pt.Update(0, NoMapping)
	if got := pt.Query(0); got != NoMapping {
		t.Errorf("Query(0) after unmap = %#x, want NoMapping", got)
	}

	// VPN 1 shares VPN 0's entire intermediate path; querying it must not
	// allocate.
	allocs := a.allocs
	if got := pt.Query(1); got != NoMapping {
		t.Errorf("Query(1) = %#x, want NoMapping", got)
	}
	if a.allocs != allocs {
		t.Errorf("Query allocated %d nodes", a.allocs-allocs)
	}
}

func TestQueryDeterministic(t *testing.T) {
	pt, _ := newTestTables()

	pt.Update(0x42, 7)
	for _, vpn := range []uint64{0x42, 0x43, 0x123456789} {
		first := pt.Query(vpn)
		second := pt.Query(vpn)
		if first != second {
			t.Errorf("Query(%#x) not deterministic: %#x then %#x", vpn, first, second)
		}
	}
}

func TestRelease(t *testing.T) {
	pt, a := newTestTables()

	pt.Update(0, 7)
	pt.Update(1<<bitsPerLevel, 8)
	pt.Update(1<<(vpnBits-1), 9)

	pt.Release()
	// Every node allocated, plus the root, must come back.
	if want := a.allocs + 1; a.frees != want {
		t.Errorf("Release freed %d nodes, want %d", a.frees, want)
	}
}

func TestNonCanonicalVPNPanics(t *testing.T) {
	pt, _ := newTestTables()

	defer func() {
		if recover() == nil {
			t.Errorf("no panic on non-canonical VPN")
		}
	}()
	pt.Query(1 << vpnBits)
}

func TestOutOfRangeFramePanics(t *testing.T) {
	pt, _ := newTestTables()

	defer func() {
		if recover() == nil {
			t.Errorf("no panic on out-of-range frame")
		}
	}()
	pt.Update(0, 1<<frameBits)
}
