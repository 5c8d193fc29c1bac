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

package tree_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/parsekit/asf"
	"github.com/bufbuild/parsekit/forest"
	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/recognizer"
	"github.com/bufbuild/parsekit/source"
	"github.com/bufbuild/parsekit/tree"
)

func forestOf(t *testing.T, g *grammar.Grammar, input string) *asf.ASF {
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
	defer f.Unref()

	a, err := asf.New(f, asf.Config{
		File:    source.NewFile(source.Input{Name: "test", Text: input}),
		Grammar: g,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func compile(t *testing.T, build func(b *grammar.Builder)) *grammar.Grammar {
	t.Helper()

	var b grammar.Builder
	build(&b)
	g, err := b.Compile()
	require.NoError(t, err)
	return g
}

func TestPrune(t *testing.T) {
	t.Parallel()

	g := compile(t, func(b *grammar.Builder) {
		s := b.Symbol("S")
		b.Rule(s, grammar.Seq(b.Byte('a'), b.Byte('b')))
		b.SetStart(s)
	})
	s, _ := g.Lookup("S")
	a, _ := g.Lookup("'a'")
	bs, _ := g.Lookup("'b'")

	got, err := tree.Prune(forestOf(t, g, "ab"))
	require.NoError(t, err)

	want := &tree.Node{
		Symbol: s, Rule: 0, Start: 0, End: 2, Text: "ab",
		Children: []*tree.Node{
			{Symbol: a, Rule: asf.TokenRule, Start: 0, End: 1, Text: "a"},
			{Symbol: bs, Rule: asf.TokenRule, Start: 1, End: 2, Text: "b"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Prune mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "(S a b)", tree.Format(g, got))
	assert.True(t, got.Children[0].IsToken())
	assert.False(t, got.IsToken())
}

func nounPhrase(b *grammar.Builder) {
	np, n, adj := b.Symbol("NP"), b.Symbol("N"), b.Symbol("Adj")
	f := b.Byte('f')
	b.Rule(np, grammar.Seq(n), grammar.Seq(adj, n))
	b.Rule(n, grammar.Seq(f, f), grammar.Seq(f))
	b.Rule(adj, grammar.Seq(f))
	b.SetStart(np)
}

func TestExhaust(t *testing.T) {
	t.Parallel()

	g := compile(t, nounPhrase)

	trees, err := tree.Exhaust(forestOf(t, g, "ff"), 0)
	require.NoError(t, err)
	var got []string
	for _, n := range trees {
		got = append(got, tree.Format(g, n))
	}
	assert.Equal(t, []string{"(NP (N f f))", "(NP (Adj f) (N f))"}, got)

	pruned, err := tree.Prune(forestOf(t, g, "ff"))
	require.NoError(t, err)
	assert.Equal(t, "(NP (N f f))", tree.Format(g, pruned))
}

func TestExhaustLimit(t *testing.T) {
	t.Parallel()

	g := compile(t, func(b *grammar.Builder) {
		e := b.Symbol("E")
		b.Rule(e, grammar.Seq(e, b.Byte('+'), e), grammar.Seq(b.Byte('n')))
		b.SetStart(e)
	})

	trees, err := tree.Exhaust(forestOf(t, g, "n+n+n+n"), 0)
	require.NoError(t, err)
	formatted := make(map[string]struct{})
	for _, n := range trees {
		formatted[tree.Format(g, n)] = struct{}{}
	}
	assert.Len(t, formatted, 5)
	assert.Contains(t, formatted, "(E (E (E (E n) + (E n)) + (E n)) + (E n))")
	assert.Contains(t, formatted, "(E (E n) + (E (E n) + (E (E n) + (E n))))")

	trees, err = tree.Exhaust(forestOf(t, g, "n+n+n+n"), 3)
	require.NoError(t, err)
	assert.Len(t, trees, 3)
}

const pandaInput = "a panda eats shoots and leaves."

func panda(b *grammar.Builder) {
	ws := b.ByteSet("WS", "\t\n\r ")
	period := b.Literal("", ".")
	cc := b.Literal("CC", "and")
	dt := b.Alternative("DT", b.Literal("", "a"), b.Literal("", "an"))
	shoots, leaves := b.Literal("", "shoots"), b.Literal("", "leaves")
	nns := b.Alternative("NNS", shoots, leaves)
	vbz := b.Alternative("VBZ", b.Literal("", "eats"), shoots, leaves)

	nn := b.Symbol("NN")
	b.Rule(nn, grammar.Seq(b.Literal("", "panda")))

	np := b.Symbol("NP")
	b.Rule(np, grammar.Seq(nn))
	b.Rule(np, grammar.Seq(nns))
	b.Rule(np, grammar.Seq(dt, ws, nn))
	b.Rule(np, grammar.Seq(nn, ws, nns))
	b.Rule(np, grammar.Seq(nns, ws, cc, ws, nns))

	vp := b.Symbol("VP")
	b.Rule(vp, grammar.Seq(vbz))
	b.Rule(vp, grammar.Seq(vbz, ws, np))
	b.Rule(vp, grammar.Seq(vp, ws, vbz, ws, nns))
	b.Rule(vp, grammar.Seq(vp, ws, cc, ws, vp))
	b.Rule(vp, grammar.Seq(vp, ws, vp, ws, cc, ws, vp))

	s := b.Symbol("S")
	b.Rule(s, grammar.Seq(np, ws, vp, period))
	b.SetStart(s)
}

// penn renders a tree with Penn Treebank tags, dropping whitespace and
// punctuation.
func penn(g *grammar.Grammar, n *tree.Node) string {
	name := g.Name(n.Symbol)
	switch name {
	case "NN", "NNS", "VBZ", "DT", "CC":
		return "(" + name + " " + n.Text + ")"
	}

	var parts []string
	for _, child := range n.Children {
		if p := penn(g, child); p != "" {
			parts = append(parts, p)
		}
	}
	switch name {
	case "S", "NP", "VP":
		return "(" + name + " " + strings.Join(parts, " ") + ")"
	}
	return strings.Join(parts, " ")
}

func TestPanda(t *testing.T) {
	t.Parallel()

	g := compile(t, panda)
	a := forestOf(t, g, pandaInput)

	count, err := a.CountTrees()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	trees, err := tree.Exhaust(a, 0)
	require.NoError(t, err)
	var got []string
	for _, n := range trees {
		assert.Equal(t, pandaInput, n.Text)
		got = append(got, penn(g, n))
	}
	slices.Sort(got)

	want := []string{
		"(S (NP (DT a) (NN panda)) (VP (VBZ eats) (NP (NNS shoots) (CC and) (NNS leaves))))",
		"(S (NP (DT a) (NN panda)) (VP (VP (VBZ eats) (NP (NNS shoots))) (CC and) (VP (VBZ leaves))))",
		"(S (NP (DT a) (NN panda)) (VP (VP (VBZ eats)) (VP (VBZ shoots)) (CC and) (VP (VBZ leaves))))",
	}
	slices.Sort(want)
	assert.Equal(t, want, got)

	pruned, err := tree.Prune(forestOf(t, g, pandaInput))
	require.NoError(t, err)
	assert.Equal(t, 0, pruned.Start)
	assert.Equal(t, len(pandaInput), pruned.End)
	assert.Contains(t, want, penn(g, pruned))
}
