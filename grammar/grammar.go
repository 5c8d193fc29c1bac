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

// Package grammar defines context-free grammars for the Earley recognizer.
//
// Grammars are assembled with a [Builder] and then compiled into an
// immutable [Grammar]. Compilation adds the augmenting start rule, removes
// nullable symbols from derivations by rewriting each alternative into its
// non-empty variants, and rejects grammars with derivation loops.
//
// A compiled Grammar is safe for concurrent use.
package grammar

import (
	"fmt"

	"github.com/bufbuild/parsekit/internal/intern"
)

// Symbol identifies a terminal or nonterminal symbol of a grammar.
type Symbol int32

// NoSymbol is the "none" sentinel for symbols.
const NoSymbol Symbol = -1

// RuleID identifies an external rule: a rule as written by the grammar
// author, with one or more alternatives.
type RuleID int32

// NoRule is the "none" sentinel for rules.
const NoRule RuleID = -1

// ProductionID identifies an internal production: one non-empty
// right-hand side derived from an alternative of an external rule.
type ProductionID int32

// AugmentName is the name of the synthetic start symbol added by
// compilation.
const AugmentName = ":start"

// Rule is an external rule: lhs -> alt_1 | alt_2 | ...
type Rule struct {
	LHS          Symbol
	Alternatives [][]Symbol
}

// Production is an internal production. Every production derives from
// exactly one external rule.
type Production struct {
	LHS  Symbol
	RHS  []Symbol
	Rule RuleID
}

type symbolInfo struct {
	name     intern.ID
	terminal bool
	accepts  byteSet // Only for terminals.
}

// Grammar is a compiled grammar. Create one with [Builder.Compile].
type Grammar struct {
	names   *intern.Table
	byName  map[intern.ID]Symbol
	symbols []symbolInfo
	rules   []Rule

	productions []Production
	byLHS       [][]ProductionID
	nullable    []bool
	byByte      [256][]Symbol

	start, augment Symbol
	augmentRule    RuleID
	augmentProd    ProductionID // -1 if the start symbol only derives empty.
}

// NumSymbols returns the number of symbols, including the augment symbol.
func (g *Grammar) NumSymbols() int {
	return len(g.symbols)
}

// NumRules returns the number of external rules, including the augment
// rule.
func (g *Grammar) NumRules() int {
	return len(g.rules)
}

// Name returns the name of a symbol.
func (g *Grammar) Name(sym Symbol) string {
	if !g.valid(sym) {
		return fmt.Sprintf("<symbol %d>", sym)
	}
	return g.names.Value(g.symbols[sym].name)
}

// Lookup finds a symbol by name.
func (g *Grammar) Lookup(name string) (Symbol, bool) {
	id, ok := g.names.Query(name)
	if !ok {
		return NoSymbol, false
	}
	sym, ok := g.byName[id]
	if !ok {
		return NoSymbol, false
	}
	return sym, true
}

// IsTerminal returns whether sym is a terminal.
func (g *Grammar) IsTerminal(sym Symbol) bool {
	return g.valid(sym) && g.symbols[sym].terminal
}

// IsNullable returns whether sym derives the empty string.
func (g *Grammar) IsNullable(sym Symbol) bool {
	return g.valid(sym) && g.nullable[sym]
}

// Rule returns an external rule.
func (g *Grammar) Rule(id RuleID) (Rule, bool) {
	if id < 0 || int(id) >= len(g.rules) {
		return Rule{}, false
	}
	return g.rules[id], true
}

// RuleName returns the name of the left-hand side of a rule.
func (g *Grammar) RuleName(id RuleID) string {
	rule, ok := g.Rule(id)
	if !ok {
		return fmt.Sprintf("<rule %d>", id)
	}
	return g.Name(rule.LHS)
}

// Start returns the start symbol.
func (g *Grammar) Start() Symbol {
	return g.start
}

// Augment returns the synthetic start symbol and its rule.
func (g *Grammar) Augment() (Symbol, RuleID) {
	return g.augment, g.augmentRule
}

// AugmentProduction returns the production :start -> start, or false if the
// start symbol only ever derives the empty string.
func (g *Grammar) AugmentProduction() (ProductionID, bool) {
	return g.augmentProd, g.augmentProd >= 0
}

// StartNullable returns whether the start symbol derives the empty
// string, i.e. whether empty input is accepted.
func (g *Grammar) StartNullable() bool {
	return g.nullable[g.start]
}

// NumProductions returns the number of internal productions.
func (g *Grammar) NumProductions() int {
	return len(g.productions)
}

// Production returns an internal production.
func (g *Grammar) Production(id ProductionID) Production {
	return g.productions[id]
}

// Predict returns the productions whose left-hand side is sym.
func (g *Grammar) Predict(sym Symbol) []ProductionID {
	if !g.valid(sym) {
		return nil
	}
	return g.byLHS[sym]
}

// TerminalsFor returns the terminals that accept the byte b.
func (g *Grammar) TerminalsFor(b byte) []Symbol {
	return g.byByte[b]
}

// Accepts returns whether terminal sym accepts the byte b.
func (g *Grammar) Accepts(sym Symbol, b byte) bool {
	return g.IsTerminal(sym) && g.symbols[sym].accepts.has(b)
}

// SourceSymbol maps a symbol used by the recognizer back to the symbol the
// grammar author declared. Compilation never renumbers symbols, so this only
// validates sym.
func (g *Grammar) SourceSymbol(sym Symbol) (Symbol, error) {
	if !g.valid(sym) {
		return NoSymbol, fmt.Errorf("%w: %d", ErrUnknownSymbol, sym)
	}
	return sym, nil
}

func (g *Grammar) valid(sym Symbol) bool {
	return sym >= 0 && int(sym) < len(g.symbols)
}

// byteSet is a set of bytes.
type byteSet [4]uint64

func (s *byteSet) add(b byte) {
	s[b>>6] |= 1 << (b & 63)
}

func (s *byteSet) has(b byte) bool {
	return s[b>>6]&(1<<(b&63)) != 0
}
