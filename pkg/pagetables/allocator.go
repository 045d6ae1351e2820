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

// Allocator is used to allocate and map PTEs.
//
// An Allocator must not fail: exhaustion is its responsibility to report,
// by panicking, before returning. The tables treat NewPTEs as infallible.
type Allocator interface {
	// NewPTEs returns a new, zero-filled set of PTEs. A node that has
	// passed through FreePTEs may be reused, zero-filled again.
	NewPTEs() *PTEs

	// FrameFor gives the physical frame number backing a set of PTEs
	// previously returned by NewPTEs.
	FrameFor(ptes *PTEs) uint64

	// LookupPTEs resolves a physical frame number produced by FrameFor
	// back into an addressable set of PTEs.
	LookupPTEs(frame uint64) *PTEs

	// FreePTEs returns a set of PTEs to the allocator.
	FreePTEs(ptes *PTEs)
}

// RuntimeAllocator is an allocator that uses Go runtime memory for nodes
// and hands out synthetic frame numbers. It is suitable for simulation
// and for tests; nothing about the tables distinguishes its frames from
// real ones.
type RuntimeAllocator struct {
	// next is the next synthetic frame number to hand out.
	next uint64

	// nodes resolves a synthetic frame back to its node.
	nodes map[uint64]*PTEs

	// frames is the inverse of nodes.
	frames map[*PTEs]uint64

	// pool holds freed nodes eligible for reuse.
	pool []*PTEs
}

// NewRuntimeAllocator returns an allocator that uses runtime memory.
func NewRuntimeAllocator() *RuntimeAllocator {
	return &RuntimeAllocator{
		next:   1,
		nodes:  make(map[uint64]*PTEs),
		frames: make(map[*PTEs]uint64),
	}
}

// NewPTEs implements Allocator.NewPTEs.
func (r *RuntimeAllocator) NewPTEs() *PTEs {
	if n := len(r.pool); n > 0 {
		ptes := r.pool[n-1]
		r.pool = r.pool[:n-1]
		*ptes = PTEs{}
		return ptes
	}
	ptes := new(PTEs)
	frame := r.next
	r.next++
	r.nodes[frame] = ptes
	r.frames[ptes] = frame
	return ptes
}

// FrameFor implements Allocator.FrameFor.
func (r *RuntimeAllocator) FrameFor(ptes *PTEs) uint64 {
	frame, ok := r.frames[ptes]
	if !ok {
		panic("FrameFor: not our node")
	}
	return frame
}

// LookupPTEs implements Allocator.LookupPTEs.
func (r *RuntimeAllocator) LookupPTEs(frame uint64) *PTEs {
	ptes, ok := r.nodes[frame]
	if !ok {
		panic("LookupPTEs: unknown frame")
	}
	return ptes
}

// FreePTEs implements Allocator.FreePTEs. The node stays resolvable by
// frame number so that it can be handed out again.
func (r *RuntimeAllocator) FreePTEs(ptes *PTEs) {
	r.pool = append(r.pool, ptes)
}
