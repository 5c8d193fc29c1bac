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

// Package tree extracts parse trees from an ASF.
package tree

import (
	"errors"
	"strings"

	"github.com/bufbuild/parsekit/asf"
	"github.com/bufbuild/parsekit/grammar"
)

// DefaultLimit is the number of trees Exhaust returns when given a limit
// that is not positive.
const DefaultLimit = 1000

// ErrNoTree is returned by Prune if the ASF yields no tree.
var ErrNoTree = errors.New("tree: no parse tree")

// Node is a node of a parse tree.
type Node struct {
	Symbol grammar.Symbol
	// Rule is the rule the node was derived by, or asf.TokenRule for a
	// token.
	Rule       grammar.RuleID
	Start, End int
	// Text is the input covered by the node, if the ASF knows its input.
	Text     string
	Children []*Node
}

// IsToken returns whether n is a token.
func (n *Node) IsToken() bool {
	return n.Rule == asf.TokenRule
}

// Prune returns one parse tree: at every glade, the first factoring of the
// first symch.
func Prune(a *asf.ASF) (*Node, error) {
	trees, _, err := asf.Traverse(a, memo{}, &builder{limit: 1})
	if err != nil {
		return nil, err
	}
	if len(trees) == 0 {
		return nil, ErrNoTree
	}
	return trees[0], nil
}

// Exhaust returns every parse tree, up to limit of them. Subtrees are
// shared between trees.
func Exhaust(a *asf.ASF, limit int) ([]*Node, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	trees, _, err := asf.Traverse(a, memo{}, &builder{limit: limit})
	return trees, err
}

// Format renders n in bracketed notation, e.g. "(NP (Adj f) (N f))". Tokens
// are rendered as their text.
func Format(g *grammar.Grammar, n *Node) string {
	var b strings.Builder
	format(&b, g, n)
	return b.String()
}

func format(b *strings.Builder, g *grammar.Grammar, n *Node) {
	if n.IsToken() {
		b.WriteString(n.Text)
		return
	}
	b.WriteByte('(')
	b.WriteString(g.Name(n.Symbol))
	for _, child := range n.Children {
		b.WriteByte(' ')
		format(b, g, child)
	}
	b.WriteByte(')')
}

type memo map[asf.GladeID][]*Node

// builder is a traverser producing up to limit trees per glade.
type builder struct {
	limit int
}

func (t *builder) TraverseGlade(a *asf.ASF, g *asf.Glade, seen memo) ([]*Node, memo, error) {
	if trees, ok := seen[g.ID()]; ok {
		return trees, seen, nil
	}
	g.MarkVisited()

	start, end := g.Span()
	text := a.Literal(g.ID())
	if g.IsToken() {
		trees := []*Node{{Symbol: g.Symbol(), Rule: asf.TokenRule, Start: start, End: end, Text: text}}
		seen[g.ID()] = trees
		return trees, seen, nil
	}

	var trees []*Node
symches:
	for _, symch := range g.Symches() {
		for _, factoring := range symch.Factorings {
			combos := [][]*Node{nil}
			for _, id := range factoring {
				child, err := a.Glade(id)
				if err != nil {
					return nil, seen, err
				}
				var subs []*Node
				if subs, seen, err = t.TraverseGlade(a, child, seen); err != nil {
					return nil, seen, err
				}
				combos = product(combos, subs, t.limit)
			}
			for _, children := range combos {
				trees = append(trees, &Node{
					Symbol:   g.Symbol(),
					Rule:     symch.Rule,
					Start:    start,
					End:      end,
					Text:     text,
					Children: children,
				})
				if len(trees) == t.limit {
					break symches
				}
			}
		}
	}
	seen[g.ID()] = trees
	return trees, seen, nil
}

// product extends every prefix with every node, keeping at most limit
// results.
func product(prefixes [][]*Node, nodes []*Node, limit int) [][]*Node {
	out := make([][]*Node, 0, min(len(prefixes)*len(nodes), limit))
	for _, prefix := range prefixes {
		for _, n := range nodes {
			if len(out) == limit {
				return out
			}
			next := make([]*Node, len(prefix), len(prefix)+1)
			copy(next, prefix)
			out = append(out, append(next, n))
		}
	}
	return out
}
