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
	"errors"
	"fmt"
	"strconv"

	"github.com/bufbuild/parsekit/internal/intern"
)

var (
	// ErrNoStart is returned by Compile when no start symbol was set.
	ErrNoStart = errors.New("grammar: no start symbol")
	// ErrUnknownSymbol is returned for a symbol that does not belong to the
	// grammar.
	ErrUnknownSymbol = errors.New("grammar: unknown symbol")
	// ErrTerminalLHS is returned for a rule whose left-hand side is a
	// terminal.
	ErrTerminalLHS = errors.New("grammar: terminal on left-hand side of rule")
	// ErrEmptyRule is returned for a rule with no alternatives.
	ErrEmptyRule = errors.New("grammar: rule has no alternatives")
	// ErrTerminalStart is returned when the start symbol is a terminal.
	ErrTerminalStart = errors.New("grammar: start symbol is a terminal")
	// ErrUnproductive is returned when the start symbol derives no string.
	ErrUnproductive = errors.New("grammar: start symbol is unproductive")
	// ErrCycle is returned when a symbol derives itself through a chain of
	// single-symbol productions, which would make the parse forest cyclic.
	ErrCycle = errors.New("grammar: derivation cycle")
	// ErrTooManyNullables is returned for an alternative with so many
	// nullable symbols that rewriting it would be impractical.
	ErrTooManyNullables = errors.New("grammar: too many nullable symbols in one alternative")
)

// maxOptional bounds the number of nullable, non-nulling symbols in one
// alternative; rewriting produces up to 2^maxOptional productions.
const maxOptional = 12

// Builder assembles a grammar.
//
// Builder methods do not return errors; the first error encountered is
// latched and returned by [Builder.Compile]. The zero value is ready to use.
type Builder struct {
	names    intern.Table
	byName   map[intern.ID]Symbol
	symbols  []symbolInfo
	rules    []Rule
	bytes    map[byte]Symbol
	start    Symbol
	hasStart bool
	err      error
}

// Symbol returns the nonterminal with the given name, creating it if
// needed.
func (b *Builder) Symbol(name string) Symbol {
	if sym, ok := b.lookup(name); ok {
		return sym
	}
	return b.newSymbol(name, false)
}

// Terminal returns the terminal with the given name, creating it if needed.
// The terminal accepts each byte in accepts.
func (b *Builder) Terminal(name string, accepts ...byte) Symbol {
	sym, ok := b.lookup(name)
	if !ok {
		sym = b.newSymbol(name, true)
	}
	info := &b.symbols[sym]
	if !info.terminal {
		b.fail(fmt.Errorf("%w: %s is a nonterminal", ErrUnknownSymbol, name))
		return sym
	}
	for _, c := range accepts {
		info.accepts.add(c)
	}
	return sym
}

// Byte returns the terminal that accepts exactly the byte c.
func (b *Builder) Byte(c byte) Symbol {
	if sym, ok := b.bytes[c]; ok {
		return sym
	}
	sym := b.Terminal(byteName(c), c)
	if b.bytes == nil {
		b.bytes = make(map[byte]Symbol)
	}
	b.bytes[c] = sym
	return sym
}

// Rule adds an external rule lhs -> alts[0] | alts[1] | ...
//
// An empty alternative makes lhs nullable.
func (b *Builder) Rule(lhs Symbol, alts ...[]Symbol) RuleID {
	if !b.check(lhs) {
		return NoRule
	}
	if b.symbols[lhs].terminal {
		b.fail(fmt.Errorf("%w: %s", ErrTerminalLHS, b.name(lhs)))
		return NoRule
	}
	if len(alts) == 0 {
		b.fail(fmt.Errorf("%w: %s", ErrEmptyRule, b.name(lhs)))
		return NoRule
	}
	rule := Rule{LHS: lhs, Alternatives: make([][]Symbol, len(alts))}
	for i, alt := range alts {
		for _, sym := range alt {
			if !b.check(sym) {
				return NoRule
			}
		}
		rule.Alternatives[i] = append([]Symbol(nil), alt...)
	}
	b.rules = append(b.rules, rule)
	return RuleID(len(b.rules) - 1)
}

// Seq is shorthand for building one alternative.
func Seq(syms ...Symbol) []Symbol {
	return syms
}

// Literal adds a nonterminal that matches the bytes of s in order. If name
// is empty, the quoted literal is used as its name.
func (b *Builder) Literal(name, s string) Symbol {
	if name == "" {
		name = strconv.Quote(s)
	}
	lhs := b.Symbol(name)
	alt := make([]Symbol, len(s))
	for i := range len(s) {
		alt[i] = b.Byte(s[i])
	}
	b.Rule(lhs, alt)
	return lhs
}

// ByteSet adds a nonterminal with one single-byte alternative per byte in
// set.
func (b *Builder) ByteSet(name, set string) Symbol {
	alts := make([][]Symbol, 0, len(set))
	seen := make(map[byte]bool)
	for i := range len(set) {
		if seen[set[i]] {
			continue
		}
		seen[set[i]] = true
		alts = append(alts, Seq(b.Byte(set[i])))
	}
	lhs := b.Symbol(name)
	b.Rule(lhs, alts...)
	return lhs
}

// InverseByteSet adds a nonterminal with one single-byte alternative per
// byte not in set.
func (b *Builder) InverseByteSet(name, set string) Symbol {
	var excluded byteSet
	for i := range len(set) {
		excluded.add(set[i])
	}
	var alts [][]Symbol
	for c := range 256 {
		if !excluded.has(byte(c)) {
			alts = append(alts, Seq(b.Byte(byte(c))))
		}
	}
	lhs := b.Symbol(name)
	b.Rule(lhs, alts...)
	return lhs
}

// ByteRange adds a nonterminal matching any byte in [from, to].
func (b *Builder) ByteRange(name string, from, to byte) Symbol {
	var alts [][]Symbol
	for c := int(from); c <= int(to); c++ {
		alts = append(alts, Seq(b.Byte(byte(c))))
	}
	lhs := b.Symbol(name)
	b.Rule(lhs, alts...)
	return lhs
}

// Alternative adds a nonterminal with one single-symbol alternative per
// element of syms.
func (b *Builder) Alternative(name string, syms ...Symbol) Symbol {
	alts := make([][]Symbol, len(syms))
	for i, sym := range syms {
		alts[i] = Seq(sym)
	}
	lhs := b.Symbol(name)
	b.Rule(lhs, alts...)
	return lhs
}

// Plus adds a nonterminal matching one or more item.
func (b *Builder) Plus(name string, item Symbol) Symbol {
	lhs := b.Symbol(name)
	b.Rule(lhs, Seq(item), Seq(lhs, item))
	return lhs
}

// Star adds a nonterminal matching zero or more item.
func (b *Builder) Star(name string, item Symbol) Symbol {
	lhs := b.Symbol(name)
	b.Rule(lhs, Seq(), Seq(lhs, item))
	return lhs
}

// Maybe adds a nonterminal matching zero or one item.
func (b *Builder) Maybe(name string, item Symbol) Symbol {
	lhs := b.Symbol(name)
	b.Rule(lhs, Seq(), Seq(item))
	return lhs
}

// SetStart sets the start symbol.
func (b *Builder) SetStart(sym Symbol) {
	if b.check(sym) {
		b.start = sym
		b.hasStart = true
	}
}

// Err returns the first error latched by the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) lookup(name string) (Symbol, bool) {
	id, ok := b.names.Query(name)
	if !ok {
		return NoSymbol, false
	}
	sym, ok := b.byName[id]
	return sym, ok
}

func (b *Builder) newSymbol(name string, terminal bool) Symbol {
	id := b.names.Intern(name)
	sym := Symbol(len(b.symbols))
	b.symbols = append(b.symbols, symbolInfo{name: id, terminal: terminal})
	if b.byName == nil {
		b.byName = make(map[intern.ID]Symbol)
	}
	b.byName[id] = sym
	return sym
}

func (b *Builder) name(sym Symbol) string {
	return b.names.Value(b.symbols[sym].name)
}

func (b *Builder) check(sym Symbol) bool {
	if sym < 0 || int(sym) >= len(b.symbols) {
		b.fail(fmt.Errorf("%w: %d", ErrUnknownSymbol, sym))
		return false
	}
	return true
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func byteName(c byte) string {
	if c > ' ' && c < 0x7f && c != '\'' && c != '\\' {
		return "'" + string(rune(c)) + "'"
	}
	return fmt.Sprintf("0x%02x", c)
}
