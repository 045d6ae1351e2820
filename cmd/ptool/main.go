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

// Binary ptool exercises the page table library from the command line.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/SegevBar/Multi-Level-Page-Tables/pkg/log"
)

var debug = flag.Bool("debug", false, "enable debug logging")

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Demo), "")
	subcommands.Register(new(Load), "")
	subcommands.Register(new(Stress), "")

	flag.Parse()
	if *debug {
		log.SetLevel(log.Debug)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
