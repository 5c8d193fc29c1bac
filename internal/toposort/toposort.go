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

// Package toposort provides a generic topological sort implementation.
package toposort

import (
	"fmt"
	"iter"
	"slices"

	"github.com/bufbuild/parsekit/internal/ext/slicesx"
)

const (
	unsorted byte = iota
	walking
	sorted
)

// Sort sorts a DAG topologically, children first.
//
// Roots are the nodes whose dependencies we are querying. key returns a
// comparable key for each node. dag returns the children of a node.
//
// Panics if the graph reachable from roots contains a cycle; use [Cycle] to
// check for one without panicking.
func Sort[Node any, Key comparable](
	roots []Node,
	key func(Node) Key,
	dag func(Node) iter.Seq[Node],
) iter.Seq[Node] {
	s := Sorter[Node, Key]{Key: key}
	return s.Sort(roots, dag)
}

// Cycle searches the graph reachable from roots for a cycle.
//
// If one exists, returns the path around it, starting and ending at the same
// node. Otherwise returns nil.
func Cycle[Node any, Key comparable](
	roots []Node,
	key func(Node) Key,
	dag func(Node) iter.Seq[Node],
) []Node {
	s := Sorter[Node, Key]{Key: key}
	var cycle []Node
	s.walk(roots, dag, func(Node) bool { return true }, func(c []Node) { cycle = c })
	return cycle
}

// Sorter is reusable scratch space for a particular stencil of [Sort], which
// needs to allocate memory for book-keeping. This struct allows amortizing that
// cost.
type Sorter[Node any, Key comparable] struct {
	// A function to extract a unique key from each node, for marking.
	Key func(Node) Key

	state     map[Key]byte
	stack     []Node
	iterating bool
}

// Sort is like [Sort], but re-uses allocated resources stored in s.
func (s *Sorter[Node, Key]) Sort(
	roots []Node,
	dag func(Node) iter.Seq[Node],
) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		s.walk(roots, dag, yield, func(cycle []Node) {
			panic(fmt.Sprintf("toposort: cycle detected: %v", slicesx.Join(cycle, "->")))
		})
	}
}

func (s *Sorter[Node, Key]) walk(
	roots []Node,
	dag func(Node) iter.Seq[Node],
	yield func(Node) bool,
	onCycle func([]Node),
) {
	if s.iterating {
		panic("toposort: Sort() called reëntrantly")
	}
	if s.state == nil {
		s.state = make(map[Key]byte)
	}
	s.iterating = true
	defer func() {
		clear(s.state)
		clear(s.stack)
		s.stack = s.stack[:0]
		s.iterating = false
	}()

	for _, root := range roots {
		if cycle := s.push(root); cycle != nil {
			onCycle(cycle)
			return
		}
		// This algorithm is DFS that has been tail-call-optimized into a loop.
		// Each node is visited twice in the loop: once to add its children to
		// the stack, and once to pop it and add it to the output. The state
		// tracks whether this node has been visited and if it's the first
		// or second visit through the loop.
		for len(s.stack) > 0 {
			node, _ := slicesx.Last(s.stack)
			k := s.Key(node)
			state := s.state[k]

			if state == unsorted {
				s.state[k] = walking
				for child := range dag(node) {
					if cycle := s.push(child); cycle != nil {
						onCycle(cycle)
						return
					}
				}
				continue
			}

			s.stack = s.stack[:len(s.stack)-1]
			if state != sorted {
				if !yield(node) {
					return
				}
				s.state[k] = sorted
			}
		}
	}
}

// push pushes v onto the stack. If v closes a cycle, returns the cycle
// instead.
func (s *Sorter[Node, Key]) push(v Node) []Node {
	k := s.Key(v)
	switch s.state[k] {
	case unsorted:
		s.stack = append(s.stack, v)

	case walking:
		// Walking nodes on the stack are ancestors of the node being expanded.
		// The topmost copy of v is the one being walked; collect the walking
		// nodes above it, keeping only the topmost copy of each.
		prev := slicesx.LastIndexFunc(s.stack, func(n Node) bool {
			return s.Key(n) == k
		})
		var cycle []Node
		seen := make(map[Key]struct{})
		for _, n := range slices.Backward(s.stack[prev:]) {
			nk := s.Key(n)
			if _, dup := seen[nk]; dup || s.state[nk] != walking {
				continue
			}
			seen[nk] = struct{}{}
			cycle = append(cycle, n)
		}
		slices.Reverse(cycle)
		return append(cycle, v)
	}
	return nil
}
