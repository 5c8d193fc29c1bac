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

package grammar

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bufbuild/parsekit/internal/ext/mapsx"
	"github.com/bufbuild/parsekit/internal/ext/slicesx"
	"github.com/bufbuild/parsekit/internal/intern"
	"github.com/bufbuild/parsekit/internal/toposort"
)

// Compile validates the grammar and compiles it for recognition.
//
// The builder may continue to be used afterwards; later changes do not
// affect the returned grammar.
func (b *Builder) Compile() (*Grammar, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.hasStart {
		return nil, ErrNoStart
	}
	if b.symbols[b.start].terminal {
		return nil, fmt.Errorf("%w: %s", ErrTerminalStart, b.name(b.start))
	}

	g := &Grammar{
		names:   &b.names,
		byName:  make(map[intern.ID]Symbol, len(b.byName)+1),
		symbols: slices.Clone(b.symbols),
		rules:   slices.Clone(b.rules),
		start:   b.start,
	}
	for id, sym := range b.byName {
		g.byName[id] = sym
	}

	// Every grammar is augmented with :start -> start, so that the
	// recognizer has a unique top rule to complete.
	augName := g.names.Intern(AugmentName)
	g.augment = Symbol(len(g.symbols))
	g.symbols = append(g.symbols, symbolInfo{name: augName})
	g.byName[augName] = g.augment
	g.augmentRule = RuleID(len(g.rules))
	g.rules = append(g.rules, Rule{LHS: g.augment, Alternatives: [][]Symbol{{g.start}}})

	productive := g.fixpoint(func(alt []Symbol, set []bool) bool {
		for _, sym := range alt {
			if !set[sym] {
				return false
			}
		}
		return true
	}, func(info symbolInfo) bool { return info.terminal })
	if !productive[g.start] {
		return nil, fmt.Errorf("%w: %s", ErrUnproductive, g.Name(g.start))
	}

	g.nullable = g.fixpoint(func(alt []Symbol, set []bool) bool {
		for _, sym := range alt {
			if !set[sym] {
				return false
			}
		}
		return true
	}, func(symbolInfo) bool { return false })

	// A symbol is non-empty if it derives some non-empty string.
	nonEmpty := g.fixpoint(func(alt []Symbol, set []bool) bool {
		some := false
		for _, sym := range alt {
			if !productive[sym] {
				return false
			}
			some = some || set[sym]
		}
		return some
	}, func(info symbolInfo) bool { return info.terminal })

	if err := g.rewrite(productive, nonEmpty); err != nil {
		return nil, err
	}

	for i, info := range g.symbols {
		if !info.terminal {
			continue
		}
		for c := range 256 {
			if info.accepts.has(byte(c)) {
				g.byByte[c] = append(g.byByte[c], Symbol(i))
			}
		}
	}

	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// fixpoint computes the least set of symbols such that a symbol is in the
// set if seed says so, or if some alternative of one of its rules satisfies
// holds.
func (g *Grammar) fixpoint(holds func(alt []Symbol, set []bool) bool, seed func(symbolInfo) bool) []bool {
	set := make([]bool, len(g.symbols))
	for i, info := range g.symbols {
		set[i] = seed(info)
	}
	for changed := true; changed; {
		changed = false
		for _, rule := range g.rules {
			if set[rule.LHS] {
				continue
			}
			if slices.ContainsFunc(rule.Alternatives, func(alt []Symbol) bool { return holds(alt, set) }) {
				set[rule.LHS] = true
				changed = true
			}
		}
	}
	return set
}

// rewrite builds the internal productions. Each alternative is expanded into
// every variant obtained by omitting some of its nullable symbols; symbols
// that only derive the empty string are always omitted, and empty variants
// are dropped.
func (g *Grammar) rewrite(productive, nonEmpty []bool) error {
	g.byLHS = make([][]ProductionID, len(g.symbols))
	g.augmentProd = -1

	for id, rule := range g.rules {
		seen := make(map[string]struct{})
		for _, alt := range rule.Alternatives {
			if slices.ContainsFunc(alt, func(sym Symbol) bool { return !productive[sym] }) {
				continue
			}

			var optional []int
			for i, sym := range alt {
				if g.nullable[sym] && nonEmpty[sym] {
					optional = append(optional, i)
				}
			}
			if len(optional) > maxOptional {
				return fmt.Errorf("%w: %s has %d", ErrTooManyNullables, g.Name(rule.LHS), len(optional))
			}

			// Masks count down so the variant keeping every symbol comes
			// first.
			for mask := (1 << len(optional)) - 1; mask >= 0; mask-- {
				var rhs []Symbol
				for i, sym := range alt {
					if g.nullable[sym] && !nonEmpty[sym] {
						continue
					}
					if j := slices.Index(optional, i); j >= 0 && mask&(1<<j) == 0 {
						continue
					}
					rhs = append(rhs, sym)
				}
				if len(rhs) == 0 {
					continue
				}
				if !mapsx.AddZero(seen, slicesx.Join(rhs, " ")) {
					continue
				}

				prod := ProductionID(len(g.productions))
				g.productions = append(g.productions, Production{LHS: rule.LHS, RHS: rhs, Rule: RuleID(id)})
				g.byLHS[rule.LHS] = append(g.byLHS[rule.LHS], prod)
				if RuleID(id) == g.augmentRule {
					g.augmentProd = prod
				}
			}
		}
	}
	return nil
}

// checkCycles rejects grammars where a nonterminal derives itself via
// single-symbol productions.
func (g *Grammar) checkCycles() error {
	var roots []Symbol
	for i, info := range g.symbols {
		if !info.terminal {
			roots = append(roots, Symbol(i))
		}
	}
	units := func(sym Symbol) iter.Seq[Symbol] {
		return func(yield func(Symbol) bool) {
			for _, prod := range g.byLHS[sym] {
				rhs := g.productions[prod].RHS
				if len(rhs) == 1 && !g.symbols[rhs[0]].terminal && !yield(rhs[0]) {
					return
				}
			}
		}
	}

	cycle := toposort.Cycle(roots, func(s Symbol) Symbol { return s }, units)
	if cycle == nil {
		return nil
	}
	names := slicesx.Transform(cycle, g.Name)
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
}
