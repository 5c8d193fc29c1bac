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

package forest

import (
	"fmt"
	"slices"

	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/internal/ext/mapsx"
	"github.com/bufbuild/parsekit/recognizer"
)

// New builds the forest of everything r has recognized up to its current
// earleme.
//
// Returns [ErrNoParse] if the input so far is not a sentence of the
// grammar. Empty input accepted by a nullable start symbol yields a null
// forest.
func New(r *recognizer.Recognizer) (*Bocage, error) {
	g := r.Grammar()
	end := r.Current()
	b := &Bocage{g: g}
	b.refs.Store(1)

	if end == 0 && g.StartNullable() {
		b.null = true
		return b, nil
	}
	if end < 0 || len(r.Accepted(end)) == 0 {
		return nil, fmt.Errorf("%w: at earleme %d", ErrNoParse, max(end, 0))
	}

	b.tokens = slices.Clone(r.Tokens())
	_, augment := g.Augment()
	bld := builder{
		r:         r,
		g:         g,
		b:         b,
		ids:       make(map[orKey]OrNodeID),
		completed: make(map[int]map[ruleOrigin][]int),
	}
	bld.orNode(orKey{set: end, item: -1, rule: augment})
	for i := 0; i < len(bld.queue); i++ {
		bld.expand(OrNodeID(i), bld.queue[i])
	}
	return b, nil
}

// orKey identifies an or-node while building. Completed items of one
// external rule over one span share an or-node and have item -1; every
// other item gets its own or-node.
type orKey struct {
	set, item int
	rule      grammar.RuleID
	origin    int
}

type ruleOrigin struct {
	rule   grammar.RuleID
	origin int
}

type andKey struct {
	pred, cause OrNodeID
	token       int
}

type builder struct {
	r *recognizer.Recognizer
	g *grammar.Grammar
	b *Bocage

	ids   map[orKey]OrNodeID
	queue []orKey
	// Completed items by (rule, origin), per set.
	completed map[int]map[ruleOrigin][]int
}

// orNode returns the ID of the or-node for key, allocating it if needed.
// IDs are handed out breadth-first from the top or-node.
func (bld *builder) orNode(key orKey) OrNodeID {
	if id, ok := bld.ids[key]; ok {
		return id
	}
	id := OrNodeID(len(bld.b.ors))
	bld.ids[key] = id
	bld.queue = append(bld.queue, key)

	node := orNode{rule: key.rule, start: key.origin, end: key.set}
	if key.item >= 0 {
		it := bld.r.Items(key.set)[key.item]
		prod := bld.g.Production(it.Production)
		node.rule = prod.Rule
		node.start = it.Origin
	}
	rule, _ := bld.g.Rule(node.rule)
	node.symbol = rule.LHS
	bld.b.ors = append(bld.b.ors, node)
	return id
}

// expand creates the and-nodes of an or-node.
func (bld *builder) expand(id OrNodeID, key orKey) {
	items := []int{key.item}
	if key.item < 0 {
		items = bld.completedItems(key.set)[ruleOrigin{key.rule, key.origin}]
	}

	seen := make(map[andKey]struct{})
	for _, i := range items {
		for _, link := range bld.r.Links(key.set, i) {
			and := andNode{pred: None, cause: None, token: -1}
			if link.Pred >= 0 {
				and.pred = bld.orNode(orKey{set: link.PredSet, item: link.Pred})
			}
			if link.Token >= 0 {
				and.token = link.Token
				and.symbol = bld.r.Token(link.Token).Symbol
			} else {
				cause := bld.r.Items(key.set)[link.Cause]
				prod := bld.g.Production(cause.Production)
				and.cause = bld.orNode(orKey{set: key.set, item: -1, rule: prod.Rule, origin: cause.Origin})
				and.symbol = prod.LHS
			}

			k := andKey{and.pred, and.cause, and.token}
			if !mapsx.AddZero(seen, k) {
				continue
			}

			// Index the or-node afresh; orNode may have grown the slice.
			bld.b.ands = append(bld.b.ands, and)
			bld.b.ors[id].ands = append(bld.b.ors[id].ands, AndNodeID(len(bld.b.ands)-1))
		}
	}
}

func (bld *builder) completedItems(set int) map[ruleOrigin][]int {
	if m, ok := bld.completed[set]; ok {
		return m
	}
	m := make(map[ruleOrigin][]int)
	for i, it := range bld.r.Items(set) {
		if bld.r.IsComplete(it) {
			k := ruleOrigin{bld.g.Production(it.Production).Rule, it.Origin}
			m[k] = append(m[k], i)
		}
	}
	bld.completed[set] = m
	return m
}
