// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package asf

import (
	"iter"
	"math"
	"math/bits"

	"github.com/bufbuild/parsekit/internal/toposort"
)

// Topological returns every glade reachable from the peak, children before
// parents. Computes the symches of every glade it returns.
func (a *ASF) Topological() ([]GladeID, error) {
	peak, err := a.Peak()
	if err != nil {
		return nil, err
	}

	var walkErr error
	children := func(id GladeID) iter.Seq[GladeID] {
		return func(yield func(GladeID) bool) {
			if walkErr != nil {
				return
			}
			g, err := a.Glade(id)
			if err != nil {
				walkErr = err
				return
			}
			for _, symch := range g.symches {
				for _, factoring := range symch.Factorings {
					for _, child := range factoring {
						// A token's only factoring is itself.
						if child != id && !yield(child) {
							return
						}
					}
				}
			}
		}
	}

	var order []GladeID
	for id := range toposort.Sort([]GladeID{peak}, func(id GladeID) GladeID { return id }, children) {
		order = append(order, id)
	}
	if walkErr != nil {
		return nil, walkErr
	}
	return order, nil
}

// CountTrees returns the number of parse trees in the ASF, saturating at
// math.MaxInt. Factorings dropped because of FactoringMax are not counted.
func (a *ASF) CountTrees() (int, error) {
	order, err := a.Topological()
	if err != nil {
		return 0, err
	}

	counts := make(map[GladeID]int, len(order))
	for _, id := range order {
		g, err := a.Glade(id)
		if err != nil {
			return 0, err
		}
		if g.IsToken() {
			counts[id] = 1
			continue
		}
		var n int
		for _, symch := range g.symches {
			for _, factoring := range symch.Factorings {
				product := 1
				for _, child := range factoring {
					product = mulSat(product, counts[child])
				}
				n = addSat(n, product)
			}
		}
		counts[id] = n
	}
	return counts[order[len(order)-1]], nil
}

func addSat(x, y int) int {
	if x > math.MaxInt-y {
		return math.MaxInt
	}
	return x + y
}

func mulSat(x, y int) int {
	hi, lo := bits.Mul64(uint64(x), uint64(y))
	if hi != 0 || lo > math.MaxInt {
		return math.MaxInt
	}
	return int(lo)
}
