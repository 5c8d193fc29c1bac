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

package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bufbuild/parsekit/grammar"
)

func productions(g *grammar.Grammar, lhs grammar.Symbol) [][]string {
	var out [][]string
	for _, id := range g.Predict(lhs) {
		var names []string
		for _, sym := range g.Production(id).RHS {
			names = append(names, g.Name(sym))
		}
		out = append(out, names)
	}
	return out
}

func TestCompile(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	s := b.Symbol("S")
	rule := b.Rule(s, grammar.Seq(b.Byte('a'), b.Byte('b')))
	b.SetStart(s)

	g, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, 2, g.NumRules())
	assert.Equal(t, [][]string{{"'a'", "'b'"}}, productions(g, s))
	assert.Equal(t, "S", g.RuleName(rule))
	assert.False(t, g.StartNullable())

	aug, augRule := g.Augment()
	assert.Equal(t, grammar.AugmentName, g.Name(aug))
	assert.Equal(t, [][]string{{"S"}}, productions(g, aug))
	prod, ok := g.AugmentProduction()
	require.True(t, ok)
	assert.Equal(t, augRule, g.Production(prod).Rule)

	a, ok := g.Lookup("'a'")
	require.True(t, ok)
	assert.True(t, g.IsTerminal(a))
	assert.True(t, g.Accepts(a, 'a'))
	assert.False(t, g.Accepts(a, 'b'))
	assert.Equal(t, []grammar.Symbol{a}, g.TerminalsFor('a'))
	assert.Empty(t, g.TerminalsFor('z'))

	_, ok = g.Lookup("nope")
	assert.False(t, ok)
}

func TestAlternativesShareOneRule(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	np := b.Symbol("NP")
	n := b.Symbol("N")
	adj := b.Symbol("Adj")
	id := b.Rule(np, grammar.Seq(n), grammar.Seq(adj, n))
	b.Rule(n, grammar.Seq(b.Byte('f')))
	b.Rule(adj, grammar.Seq(b.Byte('f')))
	b.SetStart(np)

	g, err := b.Compile()
	require.NoError(t, err)
	for _, prod := range g.Predict(np) {
		assert.Equal(t, id, g.Production(prod).Rule)
	}
	assert.Len(t, g.Predict(np), 2)
}

func TestNullableRewrite(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	s := b.Symbol("S")
	opt := b.Maybe("A", b.Byte('y'))
	empty := b.Symbol("E")
	b.Rule(empty, grammar.Seq())
	b.Rule(s, grammar.Seq(opt, b.Byte('x'), empty))
	b.SetStart(s)

	g, err := b.Compile()
	require.NoError(t, err)
	assert.True(t, g.IsNullable(opt))
	assert.True(t, g.IsNullable(empty))
	assert.False(t, g.IsNullable(s))
	assert.Equal(t, [][]string{{"A", "'x'"}, {"'x'"}}, productions(g, s))
	assert.Equal(t, [][]string{{"'y'"}}, productions(g, opt))
	assert.Empty(t, productions(g, empty))
}

func TestNullStart(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	s := b.Symbol("S")
	b.Rule(s, grammar.Seq())
	b.SetStart(s)

	g, err := b.Compile()
	require.NoError(t, err)
	assert.True(t, g.StartNullable())
	_, ok := g.AugmentProduction()
	assert.False(t, ok)
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	word := b.Literal("", "and")
	ws := b.ByteSet("ws", " \t \n")
	digit := b.ByteRange("digit", '0', '9')
	other := b.InverseByteSet("other", "abc")
	digits := b.Plus("digits", digit)
	alt := b.Alternative("item", word, digits)
	list := b.Star("list", alt)
	b.Rule(b.Symbol("top"), grammar.Seq(list, ws, other))
	b.SetStart(b.Symbol("top"))

	g, err := b.Compile()
	require.NoError(t, err)

	assert.Equal(t, `"and"`, g.Name(word))
	assert.Equal(t, [][]string{{"'a'", "'n'", "'d'"}}, productions(g, word))
	assert.Len(t, g.Predict(ws), 3)
	assert.Equal(t, [][]string{{"0x20"}, {"0x09"}, {"0x0a"}}, productions(g, ws))
	assert.Len(t, g.Predict(digit), 10)
	assert.Len(t, g.Predict(other), 253)
	assert.Equal(t, [][]string{{"digit"}, {"digits", "digit"}}, productions(g, digits))
	assert.Equal(t, [][]string{{`"and"`}, {"digits"}}, productions(g, alt))
	assert.Equal(t, [][]string{{"list", "item"}, {"item"}}, productions(g, list))
	assert.True(t, g.IsNullable(list))
}

func TestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(b *grammar.Builder)
		want  error
	}{
		{
			name:  "no start",
			build: func(b *grammar.Builder) { b.Rule(b.Symbol("S"), grammar.Seq(b.Byte('a'))) },
			want:  grammar.ErrNoStart,
		},
		{
			name:  "terminal start",
			build: func(b *grammar.Builder) { b.SetStart(b.Byte('a')) },
			want:  grammar.ErrTerminalStart,
		},
		{
			name:  "unknown symbol",
			build: func(b *grammar.Builder) { b.Rule(b.Symbol("S"), grammar.Seq(42)) },
			want:  grammar.ErrUnknownSymbol,
		},
		{
			name:  "terminal lhs",
			build: func(b *grammar.Builder) { b.Rule(b.Byte('a'), grammar.Seq(b.Byte('a'))) },
			want:  grammar.ErrTerminalLHS,
		},
		{
			name:  "empty rule",
			build: func(b *grammar.Builder) { b.Rule(b.Symbol("S")) },
			want:  grammar.ErrEmptyRule,
		},
		{
			name: "unproductive",
			build: func(b *grammar.Builder) {
				s := b.Symbol("S")
				b.Rule(s, grammar.Seq(s, b.Byte('x')))
				b.SetStart(s)
			},
			want: grammar.ErrUnproductive,
		},
		{
			name: "cycle",
			build: func(b *grammar.Builder) {
				a, c := b.Symbol("A"), b.Symbol("B")
				b.Rule(a, grammar.Seq(c))
				b.Rule(c, grammar.Seq(a), grammar.Seq(b.Byte('x')))
				b.SetStart(a)
			},
			want: grammar.ErrCycle,
		},
		{
			name: "cycle through nulling symbol",
			build: func(b *grammar.Builder) {
				a, e := b.Symbol("A"), b.Symbol("E")
				b.Rule(e, grammar.Seq())
				b.Rule(a, grammar.Seq(a, e), grammar.Seq(b.Byte('x')))
				b.SetStart(a)
			},
			want: grammar.ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var b grammar.Builder
			tt.build(&b)
			_, err := b.Compile()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCycleMessage(t *testing.T) {
	t.Parallel()

	var b grammar.Builder
	a, c := b.Symbol("A"), b.Symbol("B")
	b.Rule(a, grammar.Seq(c))
	b.Rule(c, grammar.Seq(a), grammar.Seq(b.Byte('x')))
	b.SetStart(a)

	_, err := b.Compile()
	require.Error(t, err)
	assert.Equal(t, "grammar: derivation cycle: A -> B -> A", err.Error())
}
