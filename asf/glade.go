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
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/bufbuild/parsekit/forest"
	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/internal/arena"
	"github.com/bufbuild/parsekit/internal/ext/mapsx"
	"github.com/bufbuild/parsekit/internal/ext/slicesx"
	"github.com/bufbuild/parsekit/reporter"
	"github.com/bufbuild/parsekit/source"
)

// GladeID identifies a glade. A glade's ID is the ID of its nidset.
type GladeID int32

// TokenRule is the [Symch.Rule] of a symch of token leaves.
const TokenRule grammar.RuleID = -2

// Factoring is one way of deriving a symch: the glades of the right-hand
// side, in order.
type Factoring []GladeID

// Symch is a symbolic choice: the nids of a glade that derive its symbol by
// the same rule, together with the ways they can be factored.
type Symch struct {
	Nidset NidsetID
	// Rule is the external rule, or TokenRule for a token.
	Rule       grammar.RuleID
	Factorings []Factoring
	// Omitted is set if there were more factorings than the configured
	// maximum, and some were dropped.
	Omitted bool
}

// IsToken returns whether this symch is a token.
func (s *Symch) IsToken() bool {
	return s.Rule == TokenRule
}

// Glade is a node of the ASF: a symbol over a span of input, together with
// every way it was derived.
//
// Glades are created unregistered. They become usable with [ASF.Glade] once
// they are reachable from the peak; their symches are computed on first
// use and cached.
type Glade struct {
	id         GladeID
	symbol     grammar.Symbol
	start, end int
	registered bool
	visited    bool

	powerset PowersetID
	symches  []Symch
}

// ID returns the glade's ID.
func (g *Glade) ID() GladeID {
	return g.id
}

// Symbol returns the grammar symbol this glade derives.
func (g *Glade) Symbol() grammar.Symbol {
	return g.symbol
}

// Span returns the earlemes [start, end) covered by this glade.
func (g *Glade) Span() (start, end int) {
	return g.start, g.end
}

// Symches returns the glade's symches.
func (g *Glade) Symches() []Symch {
	return g.symches
}

// Powerset returns the powerset of the glade's symches.
func (g *Glade) Powerset() PowersetID {
	return g.powerset
}

// IsToken returns whether this glade is a token leaf.
func (g *Glade) IsToken() bool {
	return len(g.symches) == 1 && g.symches[0].IsToken()
}

// Visited returns whether [Glade.MarkVisited] was called. The ASF itself
// never reads this.
func (g *Glade) Visited() bool {
	return g.visited
}

// MarkVisited marks this glade as visited.
func (g *Glade) MarkVisited() {
	g.visited = true
}

// Glade returns the glade with the given ID, computing its symches if
// needed.
//
// Panics if the glade was never registered; only the peak and glades
// reached through factorings are.
func (a *ASF) Glade(id GladeID) (*Glade, error) {
	g := a.registered(id)
	if g.symches != nil {
		return g, nil
	}
	if err := a.computeSymches(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Glades returns an iterator over the glades registered so far, in the
// order their nidsets were created. Symches are not computed.
func (a *ASF) Glades() iter.Seq[*Glade] {
	return func(yield func(*Glade) bool) {
		for _, g := range a.glades.All() {
			if g.registered && !yield(g) {
				return
			}
		}
	}
}

// Literal returns the text covered by a glade, if the ASF was configured
// with the input file.
func (a *ASF) Literal(id GladeID) string {
	g := a.registered(id)
	if a.config.File == nil || g.end > len(a.config.File.Text) || g.start > g.end {
		return ""
	}
	return a.config.File.Text[g.start:g.end]
}

func (a *ASF) registered(id GladeID) *Glade {
	if id <= 0 || int(id) > a.glades.Len() {
		panic(fmt.Sprintf("asf: use of unregistered glade %d", id))
	}
	g := a.glades.At(arena.Untyped(id))
	if !g.registered {
		panic(fmt.Sprintf("asf: use of unregistered glade %d", id))
	}
	return g
}

// register marks the glade of a nidset as usable and records its symbol
// and span.
func (a *ASF) register(id NidsetID) (GladeID, error) {
	g := a.glades.At(arena.Untyped(id))
	if g.registered {
		return g.id, nil
	}

	first := a.nidsets.Value(id)[0]
	var err error
	if or, ok := first.OrNode(); ok {
		if g.symbol, err = a.forest.OrNodeSymbol(or); err != nil {
			return 0, err
		}
		if g.start, g.end, err = a.forest.OrNodeSpan(or); err != nil {
			return 0, err
		}
	} else {
		and, _ := first.AndNode()
		if g.symbol, err = a.forest.AndNodeSymbol(and); err != nil {
			return 0, err
		}
		tok, err := a.forest.AndNodeToken(and)
		if err != nil {
			return 0, err
		}
		g.start, g.end = tok.Start, tok.End
	}
	g.registered = true
	return g.id, nil
}

type sortedNid struct {
	ix  int32
	nid Nid
}

func (a *ASF) computeSymches(g *Glade) error {
	a.symchComputations++

	nids := a.nidsets.Value(NidsetID(g.id))
	keyed := make([]sortedNid, len(nids))
	for i, nid := range nids {
		ix, err := a.sortIndex(nid)
		if err != nil {
			return err
		}
		keyed[i] = sortedNid{ix, nid}
	}
	// Nidsets are stored sorted, so within one sort index nids stay in
	// ascending order.
	slices.SortStableFunc(keyed, func(x, y sortedNid) int { return cmp.Compare(x.ix, y.ix) })

	var ids []NidsetID
	for _, run := range slicesx.PartitionKey(keyed, func(k sortedNid) int32 { return k.ix }) {
		ids = append(ids, a.obtainNidset(slicesx.Transform(run, func(k sortedNid) Nid { return k.nid })))
	}

	symches := make([]Symch, 0, len(ids))
	for _, id := range ids {
		symch, err := a.symch(g, id)
		if err != nil {
			return err
		}
		symches = append(symches, symch)
	}
	g.powerset = a.obtainPowerset(ids)
	g.symches = symches
	return nil
}

func (a *ASF) symch(g *Glade, id NidsetID) (Symch, error) {
	nids := a.nidsets.Value(id)
	if nids[0].IsLeaf() {
		leaf, err := a.register(a.obtainNidset(nids[:1]))
		if err != nil {
			return Symch{}, err
		}
		return Symch{Nidset: id, Rule: TokenRule, Factorings: []Factoring{{leaf}}}, nil
	}

	or, _ := nids[0].OrNode()
	rule, err := a.forest.OrNodeRuleSource(or)
	if err != nil {
		return Symch{}, err
	}

	symch := Symch{Nidset: id, Rule: rule}
	seen := make(map[string]struct{})
nids:
	for _, nid := range nids {
		or, _ := nid.OrNode()
		stacks, err := a.factorStacks(or)
		if err != nil {
			return Symch{}, err
		}
		for _, stack := range stacks {
			if !mapsx.AddZero(seen, slicesx.Join(stack, ",")) {
				continue
			}

			if len(symch.Factorings) == a.config.FactoringMax {
				symch.Omitted = true
				break nids
			}
			factoring := slices.Clone(stack)
			slices.Reverse(factoring)
			symch.Factorings = append(symch.Factorings, factoring)
		}
	}

	if symch.Omitted && a.config.Reporter != nil {
		var pos source.Pos
		if a.config.File != nil {
			pos = a.config.File.Pos(g.start)
		}
		a.config.Reporter.Warning(reporter.Errorf(pos, "%w: %s has more than %d",
			ErrTooManyFactorings, a.symbolName(g.symbol), a.config.FactoringMax))
	}
	return symch, nil
}

type groupKey struct {
	pred forest.OrNodeID
	sym  grammar.Symbol
}

type andGroup struct {
	groupKey
	nids []Nid
}

// factorStacks returns the factorings of an or-node as stacks, last child
// first. Results are memoized, and at most FactoringMax+1 are kept, which
// is enough for symch to tell whether any were omitted.
func (a *ASF) factorStacks(or forest.OrNodeID) ([][]GladeID, error) {
	if stacks, ok := a.stacks[or]; ok {
		return stacks, nil
	}

	// And-nodes with the same predecessor and cause symbol are one choice
	// point: their causes form a single child glade.
	var groups []*andGroup
	byKey := make(map[groupKey]*andGroup)
	for _, and := range a.andNodes(or) {
		pred, err := a.forest.AndNodePredecessor(and)
		if err != nil {
			return nil, err
		}
		sym, err := a.forest.AndNodeSymbol(and)
		if err != nil {
			return nil, err
		}
		cause, err := a.forest.AndNodeCause(and)
		if err != nil {
			return nil, err
		}
		nid := OrNid(cause)
		if cause == forest.None {
			nid = LeafNid(and)
		}

		key := groupKey{pred: pred, sym: sym}
		grp, ok := byKey[key]
		if !ok {
			grp = &andGroup{groupKey: key}
			byKey[key] = grp
			groups = append(groups, grp)
		}
		grp.nids = append(grp.nids, nid)
	}

	limit := a.config.FactoringMax + 1
	var stacks [][]GladeID
groups:
	for _, grp := range groups {
		child, err := a.register(a.obtainNidset(grp.nids))
		if err != nil {
			return nil, err
		}
		prefixes := [][]GladeID{nil}
		if grp.pred != forest.None {
			if prefixes, err = a.factorStacks(grp.pred); err != nil {
				return nil, err
			}
		}
		for _, prefix := range prefixes {
			if len(stacks) == limit {
				break groups
			}
			stack := make([]GladeID, 0, len(prefix)+1)
			stack = append(stack, child)
			stacks = append(stacks, append(stack, prefix...))
		}
	}

	a.stacks[or] = stacks
	return stacks, nil
}

// andNodes looks up an or-node in the index built by New.
func (a *ASF) andNodes(or forest.OrNodeID) []forest.AndNodeID {
	ands, _ := slicesx.Get(a.orNodes, or)
	return ands
}
