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
	"sync/atomic"
)

const (
	// pageSize is the size of a page table node and of a mapped page.
	pageSize = 4096

	// pteSize is the size of a single packed entry.
	pteSize = 8

	// entriesPerPage is the number of entries in one node.
	entriesPerPage = pageSize / pteSize

	// bitsPerLevel is the number of VPN bits consumed by one trie level.
	bitsPerLevel = 9

	// numLevels is the fixed trie depth. Every walk visits all five
	// levels; depth is never data dependent.
	numLevels = 5

	// vpnBits is the number of VPN bits the trie indexes. Bits at or
	// above this position do not participate in traversal.
	vpnBits = numLevels * bitsPerLevel

	// frameShift is the position of the frame number inside an entry.
	// Bits 1 through frameShift-1 are reserved and stay zero.
	frameShift = 12

	// frameBits is the width of a physical frame number.
	frameBits = 64 - frameShift

	// present is the valid flag, bit 0 of an entry.
	present = 0x1

	// indexMask extracts one level's index from a shifted VPN.
	indexMask = entriesPerPage - 1
)

// levelIndex returns the node index consumed by the given level for vpn,
// level 1 being the most significant. This is the only place the address
// splitting scheme lives.
func levelIndex(vpn uint64, level int) uint16 {
	return uint16((vpn >> (vpnBits - bitsPerLevel*level)) & indexMask)
}

// PTE is a single page table entry, packed as one 64-bit word: bit 0 is
// the valid flag, bits 12 and up hold a physical frame number. At
// intermediate levels the frame names the child node; at the leaf level it
// is the mapping target.
//
// Loads and stores are atomic so that a query racing only with other
// queries always observes a complete word. Mutations still require
// external serialization, see the package documentation.
type PTE uint64

// PTEs is a single page table node.
type PTEs [entriesPerPage]PTE

// Valid returns true iff this entry is in use.
//
//go:nosplit
func (p *PTE) Valid() bool {
	return atomic.LoadUint64((*uint64)(p))&present != 0
}

// Frame extracts the physical frame number. The result is meaningful only
// if Valid returned true.
//
//go:nosplit
func (p *PTE) Frame() uint64 {
	return atomic.LoadUint64((*uint64)(p)) >> frameShift
}

// SetFrame atomically marks this entry valid and points it at the given
// physical frame. Reserved bits are written as zero.
//
//go:nosplit
func (p *PTE) SetFrame(frame uint64) {
	atomic.StoreUint64((*uint64)(p), frame<<frameShift|present)
}

// Clear atomically zeroes this entry. A cleared entry is indistinguishable
// from freshly allocated node memory.
//
//go:nosplit
func (p *PTE) Clear() {
	atomic.StoreUint64((*uint64)(p), 0)
}

// setPageTable points this entry at the given child node, which must have
// been produced by the table's allocator.
//
//go:nosplit
func (p *PTE) setPageTable(pt *PageTables, ptes *PTEs) {
	p.SetFrame(pt.Allocator.FrameFor(ptes))
}
