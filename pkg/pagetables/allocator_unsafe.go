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

//go:build linux
// +build linux

package pagetables

import (
	"time"
	"unsafe"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/log"
	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/memutil"
)

// HostAllocator carves nodes out of a single anonymous host mapping. The
// mapping is an identity-mapped window: a node's physical frame number is
// its host virtual address shifted by the page size, so LookupPTEs is a
// pure address cast with no bookkeeping.
type HostAllocator struct {
	// region is the backing mapping. Never resized; frame numbers must
	// stay stable for the lifetime of any tables using this allocator.
	region []byte

	// offset is the number of bytes handed out so far.
	offset uintptr

	// pool holds freed nodes eligible for reuse.
	pool []*PTEs

	// poolLog paces the occupancy warnings below.
	poolLog log.Logger
}

// NewHostAllocator returns a HostAllocator with capacity for the given
// number of nodes.
func NewHostAllocator(maxNodes int) (*HostAllocator, error) {
	region, err := memutil.MapSlice(uintptr(maxNodes) * pageSize)
	if err != nil {
		return nil, err
	}
	return &HostAllocator{
		region:  region,
		poolLog: log.BasicRateLimitedLogger(30 * time.Second),
	}, nil
}

// NewPTEs implements Allocator.NewPTEs.
func (a *HostAllocator) NewPTEs() *PTEs {
	if n := len(a.pool); n > 0 {
		ptes := a.pool[n-1]
		a.pool = a.pool[:n-1]
		*ptes = PTEs{}
		return ptes
	}
	if a.offset >= uintptr(len(a.region)) {
		// Exhaustion is fatal per the allocator contract.
		panic("HostAllocator: node pool exhausted")
	}
	if remaining := uintptr(len(a.region)) - a.offset; remaining <= uintptr(len(a.region))/8 {
		a.poolLog.Warningf("HostAllocator: %d nodes remaining", remaining/pageSize)
	}
	ptes := (*PTEs)(unsafe.Pointer(&a.region[a.offset]))
	a.offset += pageSize
	return ptes
}

// FrameFor implements Allocator.FrameFor.
func (a *HostAllocator) FrameFor(ptes *PTEs) uint64 {
	return uint64(uintptr(unsafe.Pointer(ptes))) >> frameShift
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *HostAllocator) LookupPTEs(frame uint64) *PTEs {
	return (*PTEs)(unsafe.Pointer(uintptr(frame) << frameShift))
}

// FreePTEs implements Allocator.FreePTEs.
func (a *HostAllocator) FreePTEs(ptes *PTEs) {
	a.pool = append(a.pool, ptes)
}

// Release unmaps the backing region. No tables may use the allocator
// afterwards.
func (a *HostAllocator) Release() error {
	a.pool = nil
	a.offset = 0
	region := a.region
	a.region = nil
	return memutil.UnmapSlice(region)
}
