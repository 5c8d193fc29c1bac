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

// Package recognizer implements an Earley recognizer over compiled grammars.
//
// The recognizer works earleme by earleme: tokens are offered with
// [Recognizer.Alternative] and then [Recognizer.EarlemeComplete] advances
// to the next earleme. A token may span more than one earleme, which lets a
// caller feed variable-length alternatives at the same position.
//
// Each Earley item records how it was derived as a list of [Link]s. The
// forest package turns those links into a parse forest.
package recognizer

import (
	"errors"
	"fmt"

	"github.com/bufbuild/parsekit/grammar"
)

var (
	// ErrNotStarted is returned when input is offered before StartInput.
	ErrNotStarted = errors.New("recognizer: input not started")
	// ErrUnexpectedToken is returned by Alternative for a token that no item
	// at the current earleme expects.
	ErrUnexpectedToken = errors.New("recognizer: unexpected token")
	// ErrDuplicateToken is returned by Alternative for a token with the same
	// symbol, value and length as one already accepted at this earleme.
	ErrDuplicateToken = errors.New("recognizer: duplicate token")
	// ErrBadLength is returned by Alternative for a length below one.
	ErrBadLength = errors.New("recognizer: token length must be positive")
	// ErrExhausted is returned when no further input can be accepted.
	ErrExhausted = errors.New("recognizer: parse exhausted")
)

// Item is an Earley item: a production with a dot position, started at
// Origin.
type Item struct {
	Production grammar.ProductionID
	Dot        int
	Origin     int
}

// Token is a token accepted by the recognizer. It spans earlemes
// [Start, End).
type Token struct {
	Symbol     grammar.Symbol
	Value      int
	Start, End int
}

// Link records one way an item with Dot > 0 was derived: its predecessor
// item advanced over a cause. The cause is either a completed item in the
// same set as the derived item, or a token.
type Link struct {
	// PredSet is the earleme of the predecessor, which is where the cause
	// begins. Pred is the predecessor's index in that set, or -1 if the
	// predecessor has its dot at the start of the production.
	PredSet, Pred int
	// Cause is the index of the cause item in the derived item's set, or
	// -1 when the cause is a token.
	Cause int
	// Token is the index of the cause token, or -1.
	Token int
}

type set struct {
	items []Item
	links [][]Link
	index map[Item]int
	// Items expecting each symbol, by symbol.
	waiting map[grammar.Symbol][]int
}

// Recognizer is an Earley recognizer. It is not safe for concurrent use.
type Recognizer struct {
	g       *grammar.Grammar
	sets    []*set
	tokens  []Token
	pending map[int][]int // End earleme -> token indices.
	started bool
}

// New returns a recognizer for g.
func New(g *grammar.Grammar) *Recognizer {
	return &Recognizer{g: g, pending: make(map[int][]int)}
}

// Grammar returns the grammar being recognized.
func (r *Recognizer) Grammar() *grammar.Grammar {
	return r.g
}

// StartInput creates earleme 0 by predicting the augment rule.
func (r *Recognizer) StartInput() {
	if r.started {
		return
	}
	r.started = true
	s := r.newSet()
	if prod, ok := r.g.AugmentProduction(); ok {
		r.add(s, Item{Production: prod}, nil)
	}
	r.closure(s, 0)
}

// Current returns the current earleme.
func (r *Recognizer) Current() int {
	return len(r.sets) - 1
}

// Alternative offers a token of the given symbol and length at the current
// earleme.
func (r *Recognizer) Alternative(sym grammar.Symbol, value, length int) error {
	if !r.started {
		return ErrNotStarted
	}
	if length < 1 {
		return fmt.Errorf("%w: %d", ErrBadLength, length)
	}
	cur := r.Current()
	if len(r.sets[cur].waiting[sym]) == 0 || !r.g.IsTerminal(sym) {
		return fmt.Errorf("%w: %s at earleme %d", ErrUnexpectedToken, r.g.Name(sym), cur)
	}

	tok := Token{Symbol: sym, Value: value, Start: cur, End: cur + length}
	for _, i := range r.pending[tok.End] {
		if r.tokens[i] == tok {
			return fmt.Errorf("%w: %s at earleme %d", ErrDuplicateToken, r.g.Name(sym), cur)
		}
	}
	r.tokens = append(r.tokens, tok)
	r.pending[tok.End] = append(r.pending[tok.End], len(r.tokens)-1)
	return nil
}

// EarlemeComplete finishes the current earleme and moves to the next one,
// scanning every token that ends there.
//
// Returns [ErrExhausted] if the recognizer was already exhausted.
func (r *Recognizer) EarlemeComplete() error {
	if !r.started {
		return ErrNotStarted
	}
	if r.IsExhausted() {
		return ErrExhausted
	}

	next := len(r.sets)
	s := r.newSet()
	for _, t := range r.pending[next] {
		tok := r.tokens[t]
		from := r.sets[tok.Start]
		for _, i := range from.waiting[tok.Symbol] {
			r.advance(s, tok.Start, i, Link{Cause: -1, Token: t})
		}
	}
	delete(r.pending, next)
	r.closure(s, next)
	return nil
}

// IsExhausted returns whether no more input can be accepted: the current
// earleme expects nothing and no accepted token ends later.
func (r *Recognizer) IsExhausted() bool {
	if !r.started {
		return false
	}
	return len(r.pending) == 0 && len(r.sets[r.Current()].waiting) == 0
}

// Furthest returns the furthest earleme any accepted token reaches.
func (r *Recognizer) Furthest() int {
	furthest := max(r.Current(), 0)
	for end := range r.pending {
		furthest = max(furthest, end)
	}
	return furthest
}

// Expected returns the terminals expected at the current earleme, in symbol
// order.
func (r *Recognizer) Expected() []grammar.Symbol {
	if !r.started {
		return nil
	}
	var out []grammar.Symbol
	waiting := r.sets[r.Current()].waiting
	for sym := range grammar.Symbol(r.g.NumSymbols()) {
		if r.g.IsTerminal(sym) && len(waiting[sym]) > 0 {
			out = append(out, sym)
		}
	}
	return out
}

// Items returns the items of the set at earleme e.
func (r *Recognizer) Items(e int) []Item {
	return r.sets[e].items
}

// Links returns the links of item i of the set at earleme e.
func (r *Recognizer) Links(e, i int) []Link {
	return r.sets[e].links[i]
}

// Token returns an accepted token by index.
func (r *Recognizer) Token(i int) Token {
	return r.tokens[i]
}

// Tokens returns every accepted token, indexed as in [Link.Token]. The
// returned slice must not be modified.
func (r *Recognizer) Tokens() []Token {
	return r.tokens
}

// IsComplete returns whether an item has its dot at the end of its
// production.
func (r *Recognizer) IsComplete(it Item) bool {
	return it.Dot == len(r.g.Production(it.Production).RHS)
}

// Accepted returns the indices of the completed augment items at earleme e,
// i.e. whether the whole input up to e is a sentence.
func (r *Recognizer) Accepted(e int) []int {
	if e < 0 || e >= len(r.sets) {
		return nil
	}
	prod, ok := r.g.AugmentProduction()
	if !ok {
		return nil
	}
	var out []int
	for i, it := range r.sets[e].items {
		if it.Production == prod && it.Origin == 0 && r.IsComplete(it) {
			out = append(out, i)
		}
	}
	return out
}

func (r *Recognizer) newSet() *set {
	s := &set{
		index:   make(map[Item]int),
		waiting: make(map[grammar.Symbol][]int),
	}
	r.sets = append(r.sets, s)
	return s
}

// add inserts it into s if it is new, and records link if there is one.
func (r *Recognizer) add(s *set, it Item, link *Link) int {
	i, ok := s.index[it]
	if !ok {
		i = len(s.items)
		s.index[it] = i
		s.items = append(s.items, it)
		s.links = append(s.links, nil)
		if rhs := r.g.Production(it.Production).RHS; it.Dot < len(rhs) {
			s.waiting[rhs[it.Dot]] = append(s.waiting[rhs[it.Dot]], i)
		}
	}
	if link != nil {
		s.links[i] = append(s.links[i], *link)
	}
	return i
}

// advance moves item pred of the set at earleme from over one symbol into s.
func (r *Recognizer) advance(s *set, from, pred int, link Link) {
	it := r.sets[from].items[pred]
	link.PredSet = from
	link.Pred = pred
	if it.Dot == 0 {
		link.Pred = -1
	}
	r.add(s, Item{Production: it.Production, Dot: it.Dot + 1, Origin: it.Origin}, &link)
}

// closure runs prediction and completion over s, the set at earleme e.
//
// Compiled grammars have no empty productions, so nothing completes at the
// earleme it was predicted at and every completion reads a finished set.
func (r *Recognizer) closure(s *set, e int) {
	for i := 0; i < len(s.items); i++ {
		it := s.items[i]
		prod := r.g.Production(it.Production)
		if it.Dot < len(prod.RHS) {
			for _, p := range r.g.Predict(prod.RHS[it.Dot]) {
				r.add(s, Item{Production: p, Origin: e}, nil)
			}
			continue
		}
		from := r.sets[it.Origin]
		for _, w := range from.waiting[prod.LHS] {
			r.advance(s, it.Origin, w, Link{Cause: i, Token: -1})
		}
	}
}
