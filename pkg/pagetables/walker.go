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
	"fmt"
)

// visitor is applied to the leaf slot located by a walk. Each operation on
// the tables is a small visitor; the walker owns the traversal itself.
type visitor interface {
	// requiresAlloc indicates that the walk must materialize absent
	// intermediate nodes instead of terminating early.
	requiresAlloc() bool

	// visit is called with the leaf slot for the walked VPN. The slot is
	// the mapping target; it is never resolved as a node pointer.
	visit(leaf *PTE)
}

// walker walks page tables.
type walker struct {
	// pageTables are the tables to walk.
	pageTables *PageTables

	// visitor is the set of arguments.
	visitor visitor
}

// walk descends all five levels for vpn and applies the visitor to the
// leaf slot.
//
// If the visitor does not require allocation, the walk terminates at the
// first absent intermediate entry and returns false without side effects.
// Otherwise every absent entry on the path is populated with a fresh
// zero-filled node from the allocator before descending, and walk returns
// true after visiting the leaf.
//
// Precondition: vpn must be canonical (no bits at or above vpnBits).
func (w *walker) walk(vpn uint64) bool {
	if vpn&^(1<<vpnBits-1) != 0 {
		panic(fmt.Sprintf("walk: non-canonical vpn %#x", vpn))
	}
	node := w.pageTables.root
	for level := 1; level < numLevels; level++ {
		entry := &node[levelIndex(vpn, level)]
		if !entry.Valid() {
			if !w.visitor.requiresAlloc() {
				return false
			}

			// Materialize the missing level.
			child := w.pageTables.Allocator.NewPTEs()
			entry.setPageTable(w.pageTables, child)
			node = child
			continue
		}
		node = w.pageTables.Allocator.LookupPTEs(entry.Frame())
	}
	w.visitor.visit(&node[levelIndex(vpn, numLevels)])
	return true
}
