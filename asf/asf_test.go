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

package asf_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/parsekit/asf"
	"github.com/bufbuild/parsekit/forest"
	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/recognizer"
	"github.com/bufbuild/parsekit/reporter"
	"github.com/bufbuild/parsekit/source"
)

func compile(t *testing.T, build func(b *grammar.Builder)) *grammar.Grammar {
	t.Helper()

	var b grammar.Builder
	build(&b)
	g, err := b.Compile()
	require.NoError(t, err)
	return g
}

func parse(t *testing.T, g *grammar.Grammar, input string) *forest.Bocage {
	t.Helper()

	r := recognizer.New(g)
	r.StartInput()
	for i := range len(input) {
		for _, sym := range g.TerminalsFor(input[i]) {
			require.NoError(t, r.Alternative(sym, int(input[i]), 1))
		}
		require.NoError(t, r.EarlemeComplete())
	}
	f, err := forest.New(r)
	require.NoError(t, err)
	return f
}

func newASF(t *testing.T, g *grammar.Grammar, input string, config asf.Config) *asf.ASF {
	t.Helper()

	f := parse(t, g, input)
	config.File = source.NewFile(source.Input{Name: "test", Text: input})
	config.Grammar = g
	a, err := asf.New(f, config)
	require.NoError(t, err)
	// The ASF holds its own reference.
	f.Unref()
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func abGrammar(b *grammar.Builder) {
	s := b.Symbol("S")
	b.Rule(s, grammar.Seq(b.Byte('a'), b.Byte('b')))
	b.SetStart(s)
}

// npGrammar is NP -> N | Adj N, with N -> 'f' 'f' | 'f' and Adj -> 'f', so
// that "ff" is either one noun or an adjective and a noun.
func npGrammar(b *grammar.Builder) {
	np, n, adj := b.Symbol("NP"), b.Symbol("N"), b.Symbol("Adj")
	f := b.Byte('f')
	b.Rule(np, grammar.Seq(n), grammar.Seq(adj, n))
	b.Rule(n, grammar.Seq(f, f), grammar.Seq(f))
	b.Rule(adj, grammar.Seq(f))
	b.SetStart(np)
}

// sumGrammar is E -> E '+' E | 'n'.
func sumGrammar(b *grammar.Builder) {
	e := b.Symbol("E")
	b.Rule(e, grammar.Seq(e, b.Byte('+'), e), grammar.Seq(b.Byte('n')))
	b.SetStart(e)
}

// brackets renders every tree of a glade, or only the first one if prune
// is set.
func brackets(g *grammar.Grammar, prune bool) asf.Traverser[[]string, int] {
	var visit asf.TraverserFunc[[]string, int]
	visit = func(a *asf.ASF, glade *asf.Glade, visited int) ([]string, int, error) {
		if !glade.Visited() {
			glade.MarkVisited()
			visited++
		}
		if glade.IsToken() {
			return []string{a.Literal(glade.ID())}, visited, nil
		}

		var out []string
		for _, symch := range glade.Symches() {
			for _, factoring := range symch.Factorings {
				combos := []string{""}
				for _, id := range factoring {
					child, err := a.Glade(id)
					if err != nil {
						return nil, visited, err
					}
					var subs []string
					subs, visited, err = visit(a, child, visited)
					if err != nil {
						return nil, visited, err
					}
					var next []string
					for _, c := range combos {
						for _, s := range subs {
							next = append(next, c+" "+s)
						}
					}
					combos = next
				}
				for _, c := range combos {
					out = append(out, "("+g.Name(glade.Symbol())+c+")")
				}
				if prune {
					return out[:1], visited, nil
				}
			}
		}
		return out, visited, nil
	}
	return visit
}

func TestSequence(t *testing.T) {
	t.Parallel()

	g := compile(t, abGrammar)
	a := newASF(t, g, "ab", asf.Config{})

	peak, err := a.Peak()
	require.NoError(t, err)
	glade, err := a.Glade(peak)
	require.NoError(t, err)
	s, _ := g.Lookup("S")
	assert.Equal(t, s, glade.Symbol())
	start, end := glade.Span()
	assert.Equal(t, [2]int{0, 2}, [2]int{start, end})

	require.Len(t, glade.Symches(), 1)
	symch := glade.Symches()[0]
	assert.False(t, symch.Omitted)
	require.Len(t, symch.Factorings, 1)
	require.Len(t, symch.Factorings[0], 2)

	var lits []string
	for _, id := range symch.Factorings[0] {
		child, err := a.Glade(id)
		require.NoError(t, err)
		assert.True(t, child.IsToken())
		lits = append(lits, a.Literal(id))
	}
	assert.Equal(t, []string{"a", "b"}, lits)

	var registered []asf.GladeID
	for g := range a.Glades() {
		registered = append(registered, g.ID())
	}
	assert.ElementsMatch(t, []asf.GladeID{peak, symch.Factorings[0][0], symch.Factorings[0][1]}, registered)

	trees, visited, err := asf.Traverse(a, 0, brackets(g, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"(S a b)"}, trees)
	assert.Equal(t, 3, visited)

	order, err := a.Topological()
	require.NoError(t, err)
	assert.Len(t, order, 3)
	assert.Equal(t, peak, order[2])

	count, err := a.CountTrees()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAmbiguousNounPhrase(t *testing.T) {
	t.Parallel()

	g := compile(t, npGrammar)

	a := newASF(t, g, "ff", asf.Config{})
	peak, err := a.Peak()
	require.NoError(t, err)
	glade, err := a.Glade(peak)
	require.NoError(t, err)
	require.Len(t, glade.Symches(), 1)
	assert.Len(t, glade.Symches()[0].Factorings, 2)

	trees, _, err := asf.Traverse(a, 0, brackets(g, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"(NP (N f f))", "(NP (Adj f) (N f))"}, trees)

	count, err := a.CountTrees()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	a = newASF(t, g, "ff", asf.Config{})
	trees, _, err = asf.Traverse(a, 0, brackets(g, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"(NP (N f f))"}, trees)
}

func TestFactoringMax(t *testing.T) {
	t.Parallel()

	// The peak of n+n+n+n splits three ways, and there are five trees.
	tests := []struct {
		max     int
		want    int
		omitted bool
	}{
		{max: 1, want: 1, omitted: true},
		{max: 2, want: 2, omitted: true},
		{max: 3, want: 3},
		{max: 4, want: 3},
		{max: 0, want: 3},
	}
	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			t.Parallel()

			var warnings []reporter.ErrorWithPos
			rep := reporter.NewReporter(nil, func(err reporter.ErrorWithPos) {
				warnings = append(warnings, err)
			})
			g := compile(t, sumGrammar)
			a := newASF(t, g, "n+n+n+n", asf.Config{FactoringMax: tt.max, Reporter: rep})

			peak, err := a.Peak()
			require.NoError(t, err)
			glade, err := a.Glade(peak)
			require.NoError(t, err)
			require.Len(t, glade.Symches(), 1)
			symch := glade.Symches()[0]
			assert.Len(t, symch.Factorings, tt.want)
			assert.Equal(t, tt.omitted, symch.Omitted)
			for _, f := range symch.Factorings {
				assert.Len(t, f, 3)
			}

			if tt.omitted {
				require.NotEmpty(t, warnings)
				assert.ErrorIs(t, warnings[0], asf.ErrTooManyFactorings)
				assert.Equal(t, 1, warnings[0].GetPosition().Line)
				assert.Contains(t, warnings[0].Error(), "E has more than")
			} else {
				assert.Empty(t, warnings)
				count, err := a.CountTrees()
				require.NoError(t, err)
				assert.Equal(t, 5, count)
			}
		})
	}
}

func TestSymchesComputedOnce(t *testing.T) {
	t.Parallel()

	g := compile(t, sumGrammar)
	a := newASF(t, g, "n+n+n", asf.Config{})

	peak, err := a.Peak()
	require.NoError(t, err)
	again, err := a.Peak()
	require.NoError(t, err)
	assert.Equal(t, peak, again)

	assert.Zero(t, asf.SymchComputations(a))
	first, err := a.Glade(peak)
	require.NoError(t, err)
	assert.Equal(t, 1, asf.SymchComputations(a))
	second, err := a.Glade(peak)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, asf.SymchComputations(a))

	order, err := a.Topological()
	require.NoError(t, err)
	computed := asf.SymchComputations(a)
	assert.Equal(t, len(order), computed)

	// Walking everything again computes nothing new.
	_, _, err = asf.Traverse(a, 0, brackets(g, false))
	require.NoError(t, err)
	_, err = a.CountTrees()
	require.NoError(t, err)
	assert.Equal(t, computed, asf.SymchComputations(a))
}

func TestNidsets(t *testing.T) {
	t.Parallel()

	a := newASF(t, compile(t, abGrammar), "ab", asf.Config{})

	x := asf.ObtainNidset(a, 3, 1, 2, 1)
	y := asf.ObtainNidset(a, 1, 2, 3)
	z := asf.ObtainNidset(a, 1, 2)
	w := asf.ObtainNidset(a, asf.LeafNid(0), 2)
	assert.Equal(t, x, y)
	assert.NotEqual(t, x, z)
	assert.NotEqual(t, z, w)
	assert.Positive(t, int(x))
	assert.Greater(t, z, x)
	assert.Equal(t, []asf.Nid{1, 2, 3}, a.Nidset(x).Nids)
	assert.Equal(t, []asf.Nid{asf.LeafNid(0), 2}, a.Nidset(w).Nids)

	p := asf.ObtainPowerset(a, x, z)
	assert.Equal(t, p, asf.ObtainPowerset(a, x, z))
	assert.NotEqual(t, p, asf.ObtainPowerset(a, z, x))
	assert.Equal(t, []asf.NidsetID{x, z}, a.Powerset(p).Nidsets)

	// A nidset that is not reachable from the peak has an unregistered
	// glade.
	assert.PanicsWithValue(t, "asf: use of unregistered glade "+strconv.Itoa(int(x)), func() {
		_, _ = a.Glade(asf.GladeID(x))
	})
	assert.Panics(t, func() { _, _ = a.Glade(0) })
	assert.Panics(t, func() { _, _ = a.Glade(1 << 20) })
}

func TestNidEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, asf.NidLeafBase, asf.LeafNid(0))
	assert.Equal(t, asf.Nid(-50), asf.LeafNid(7))
	for _, and := range []forest.AndNodeID{0, 1, 7, 1000} {
		nid := asf.LeafNid(and)
		assert.True(t, nid.IsLeaf())
		got, ok := nid.AndNode()
		assert.True(t, ok)
		assert.Equal(t, and, got)
		_, ok = nid.OrNode()
		assert.False(t, ok)
	}
	for _, or := range []forest.OrNodeID{0, 1, 1000} {
		nid := asf.OrNid(or)
		assert.False(t, nid.IsLeaf())
		got, ok := nid.OrNode()
		assert.True(t, ok)
		assert.Equal(t, or, got)
	}
	_, ok := asf.Nid(-1).AndNode()
	assert.False(t, ok)
	assert.Equal(t, "leaf(7)", asf.LeafNid(7).String())
	assert.Equal(t, "or(3)", asf.OrNid(3).String())
	assert.Equal(t, "reserved(-5)", asf.Nid(-5).String())
}

func TestNullParse(t *testing.T) {
	t.Parallel()

	g := compile(t, func(b *grammar.Builder) {
		s := b.Symbol("S")
		b.Rule(s, grammar.Seq(), grammar.Seq(b.Byte('a')))
		b.SetStart(s)
	})
	f := parse(t, g, "")
	_, err := asf.New(f, asf.Config{})
	require.ErrorIs(t, err, asf.ErrNullParse)

	// The failed New gave its reference back.
	f.Unref()
	_, err = f.TopOrNode()
	assert.ErrorIs(t, err, forest.ErrReleased)
}

type countingForest struct {
	*forest.Bocage
	refs, unrefs int
}

func (c *countingForest) Ref() error {
	c.refs++
	return c.Bocage.Ref()
}

func (c *countingForest) Unref() {
	c.unrefs++
	c.Bocage.Unref()
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := &countingForest{Bocage: parse(t, compile(t, npGrammar), "ff")}
	a, err := asf.New(f, asf.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.refs)

	peak, err := a.Peak()
	require.NoError(t, err)

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.Equal(t, 1, f.unrefs)

	// Still referenced by the caller.
	_, err = f.TopOrNode()
	require.NoError(t, err)
	f.Unref()

	_, err = a.Glade(peak)
	assert.ErrorIs(t, err, forest.ErrReleased)
}

func TestReleasedForest(t *testing.T) {
	t.Parallel()

	f := parse(t, compile(t, abGrammar), "ab")
	f.Unref()
	_, err := asf.New(f, asf.Config{})
	assert.ErrorIs(t, err, forest.ErrReleased)
}
