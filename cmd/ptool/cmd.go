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
	"fmt"
	"os"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/pagetables"
)

// Fatalf logs to stderr and exits with a failure code.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(128)
}

// newAllocator builds the allocator selected by the -host flag of a
// command. The returned release func is a no-op for the runtime
// allocator.
func newAllocator(host bool, maxNodes int) (pagetables.Allocator, func()) {
	if !host {
		return pagetables.NewRuntimeAllocator(), func() {}
	}
	a, err := pagetables.NewHostAllocator(maxNodes)
	if err != nil {
		Fatalf("creating host allocator: %v", err)
	}
	return a, func() {
		if err := a.Release(); err != nil {
			Fatalf("releasing host allocator: %v", err)
		}
	}
}
