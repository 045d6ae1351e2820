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

// Package pagetables provides a software-walked multi-level page table: a
// fixed five-level radix trie mapping virtual page numbers to physical
// page frame numbers. Each trie node is one 4KB frame of 512 packed
// 64-bit entries, allocated lazily through an injected Allocator.
//
// The package provides no internal locking. Callers must serialize calls
// to Update against each other and against Query on the same tables.
// Queries may run concurrently with other queries, and distinct tables
// share no mutable state.
package pagetables

import (
	"fmt"
)

// NoMapping is the reserved sentinel meaning "no mapping". It is never a
// representable frame number. Passing it to Update destroys a mapping;
// Query returns it for an unmapped VPN.
const NoMapping = ^uint64(0)

// PageTables is a set of page tables.
type PageTables struct {
	// Allocator is used to allocate nodes.
	Allocator Allocator

	// root is the pagetable root.
	root *PTEs

	// rootFrame is the cached physical frame of the root.
	//
	// This is saved only to prevent constant translation.
	rootFrame uint64
}

// New returns new PageTables.
func New(a Allocator) *PageTables {
	p := new(PageTables)
	p.Init(a)
	return p
}

// Init initializes a set of PageTables.
func (p *PageTables) Init(allocator Allocator) {
	p.Allocator = allocator
	p.root = allocator.NewPTEs()
	p.rootFrame = allocator.FrameFor(p.root)
}

// RootFrame returns the physical frame number of the root node. This is
// the value a caller would load into the hardware table base register.
func (p *PageTables) RootFrame() uint64 {
	return p.rootFrame
}

// mapVisitor overwrites the leaf slot with a new mapping, forcing the
// path into existence on the way down.
type mapVisitor struct {
	ppn uint64
}

func (*mapVisitor) requiresAlloc() bool { return true }

func (v *mapVisitor) visit(leaf *PTE) {
	// A previous mapping, if any, is silently overwritten. The old frame
	// is not recovered here; its fate belongs to the caller.
	leaf.SetFrame(v.ppn)
}

// unmapVisitor clears the leaf slot. The walk never allocates, so an
// unmapped VPN is a no-op.
type unmapVisitor struct{}

func (*unmapVisitor) requiresAlloc() bool { return false }

func (*unmapVisitor) visit(leaf *PTE) {
	leaf.Clear()
}

// lookupVisitor decodes the leaf slot, if the walk reaches it at all.
type lookupVisitor struct {
	ppn uint64
}

func (*lookupVisitor) requiresAlloc() bool { return false }

func (v *lookupVisitor) visit(leaf *PTE) {
	if leaf.Valid() {
		v.ppn = leaf.Frame()
	}
}

// Update maps or unmaps vpn. If ppn is NoMapping the existing mapping, if
// any, is destroyed; otherwise vpn is mapped to ppn, silently replacing
// any previous mapping. Missing intermediate nodes are materialized on
// map, each consuming one allocator frame; destroy never allocates and
// never prunes nodes left behind by earlier maps.
//
// Precondition: ppn is NoMapping or a representable frame number.
func (p *PageTables) Update(vpn, ppn uint64) {
	if ppn == NoMapping {
		p.unmap(vpn)
		return
	}
	if ppn&^(1<<frameBits-1) != 0 {
		panic(fmt.Sprintf("Update: frame %#x out of range", ppn))
	}
	p.create(vpn, ppn)
}

// Query returns the frame number vpn is mapped to, or NoMapping. It has
// no side effects and may run concurrently with other queries.
func (p *PageTables) Query(vpn uint64) uint64 {
	v := lookupVisitor{ppn: NoMapping}
	w := walker{pageTables: p, visitor: &v}
	w.walk(vpn)
	return v.ppn
}

// IsMapped returns true iff vpn currently has a mapping.
func (p *PageTables) IsMapped(vpn uint64) bool {
	return p.Query(vpn) != NoMapping
}

func (p *PageTables) create(vpn, ppn uint64) {
	v := mapVisitor{ppn: ppn}
	w := walker{pageTables: p, visitor: &v}
	w.walk(vpn)
}

func (p *PageTables) unmap(vpn uint64) {
	w := walker{pageTables: p, visitor: &unmapVisitor{}}
	w.walk(vpn)
}

// Release returns every node, including the root, to the allocator. The
// tables must not be used afterwards. This is the only teardown path;
// Update never frees nodes.
func (p *PageTables) Release() {
	p.releaseLevel(p.root, 1)
	p.Allocator.FreePTEs(p.root)
	p.root = nil
	p.rootFrame = 0
}

func (p *PageTables) releaseLevel(node *PTEs, level int) {
	if level == numLevels {
		return
	}
	for i := range node {
		entry := &node[i]
		if !entry.Valid() {
			continue
		}
		child := p.Allocator.LookupPTEs(entry.Frame())
		p.releaseLevel(child, level+1)
		p.Allocator.FreePTEs(child)
		entry.Clear()
	}
}
