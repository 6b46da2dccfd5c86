//go:build linux

/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"

	perf "github.com/hodgesds/perf-utils"
)

// countInstructions runs f under a hardware instruction counter. Counters may
// be unavailable (containers, perf_event_paranoid), in which case f runs
// uncounted.
func countInstructions(out io.Writer, f func() error) (err error) {
	var (
		ran bool
		pv  *perf.ProfileValue
	)
	pv, err = perf.CPUInstructions(func() error {
		ran = true
		return f()
	})
	if !ran {
		fmt.Fprintf(out, "hardware counters unavailable: %v\n", err)
		return f()
	}
	if err != nil {
		return
	}
	fmt.Fprintf(out, "%d CPU instructions\n", pv.Value)
	return
}
