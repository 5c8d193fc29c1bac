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

// Package forest builds the packed parse forest ("bocage") of a finished
// recognition.
//
// The forest is a graph of or-nodes and and-nodes. An or-node stands for a
// symbol (or a partially recognized rule) over a span of input; each of its
// and-nodes is one way of deriving it, made of a predecessor or-node (the
// rule so far) and a cause (either the or-node of the child symbol, or a
// token). All accessors are read-only and may be called concurrently.
package forest

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/recognizer"
)

// OrNodeID identifies an or-node. The top or-node always has ID 0.
type OrNodeID int32

// AndNodeID identifies an and-node.
type AndNodeID int32

// None is the "no node" sentinel, for both or- and and-nodes.
const None = -1

var (
	// ErrNoParse is returned by New when the input is not a sentence.
	ErrNoParse = errors.New("forest: no parse")
	// ErrReleased is returned by accessors once the last reference to a
	// bocage has been dropped.
	ErrReleased = errors.New("forest: bocage released")
	// ErrInvalidNode is returned for a node ID outside of the bocage.
	ErrInvalidNode = errors.New("forest: invalid node")
)

type orNode struct {
	symbol     grammar.Symbol
	rule       grammar.RuleID
	start, end int
	ands       []AndNodeID
}

type andNode struct {
	pred, cause OrNodeID
	token       int // Index into tokens, or -1.
	symbol      grammar.Symbol
}

// Bocage is a packed parse forest.
//
// A new Bocage holds one reference. The data is released when the last
// reference is dropped with [Bocage.Unref].
type Bocage struct {
	g    *grammar.Grammar
	refs atomic.Int32
	null bool

	ors    []orNode
	ands   []andNode
	tokens []recognizer.Token
}

// Grammar returns the grammar the forest was built from.
func (b *Bocage) Grammar() *grammar.Grammar {
	return b.g
}

// IsNull returns whether this is the forest of a null parse: empty input
// accepted because the start symbol is nullable. A null forest has no
// nodes.
func (b *Bocage) IsNull() bool {
	return b.null
}

// Ref acquires a reference.
func (b *Bocage) Ref() error {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Unref drops a reference. Dropping more references than were acquired
// panics.
func (b *Bocage) Unref() {
	switch n := b.refs.Add(-1); {
	case n == 0:
		b.ors, b.ands, b.tokens = nil, nil, nil
	case n < 0:
		panic("forest: Unref of released bocage")
	}
}

// NumOrNodes returns the number of or-nodes.
func (b *Bocage) NumOrNodes() int {
	return len(b.ors)
}

// NumAndNodes returns the number of and-nodes.
func (b *Bocage) NumAndNodes() int {
	return len(b.ands)
}

// TopOrNode returns the or-node of the completed augment rule. A null
// forest has no top or-node and returns [None].
func (b *Bocage) TopOrNode() (OrNodeID, error) {
	if err := b.live(); err != nil {
		return None, err
	}
	if b.null {
		return None, nil
	}
	return 0, nil
}

// OrNodeAndNodeIDs returns the and-nodes of an or-node, or nil if the
// or-node does not exist.
func (b *Bocage) OrNodeAndNodeIDs(or OrNodeID) []AndNodeID {
	node, err := b.orNode(or)
	if err != nil {
		return nil
	}
	return node.ands
}

// OrNodeRuleSource returns the external rule an or-node belongs to.
func (b *Bocage) OrNodeRuleSource(or OrNodeID) (grammar.RuleID, error) {
	node, err := b.orNode(or)
	if err != nil {
		return grammar.NoRule, err
	}
	return node.rule, nil
}

// OrNodeSymbol returns the left-hand side of the or-node's rule.
func (b *Bocage) OrNodeSymbol(or OrNodeID) (grammar.Symbol, error) {
	node, err := b.orNode(or)
	if err != nil {
		return grammar.NoSymbol, err
	}
	return node.symbol, nil
}

// OrNodeSpan returns the earlemes [start, end) an or-node covers.
func (b *Bocage) OrNodeSpan(or OrNodeID) (start, end int, err error) {
	node, err := b.orNode(or)
	if err != nil {
		return 0, 0, err
	}
	return node.start, node.end, nil
}

// AndNodePredecessor returns the predecessor of an and-node, or [None] if
// the and-node derives the first symbol of its rule.
func (b *Bocage) AndNodePredecessor(and AndNodeID) (OrNodeID, error) {
	node, err := b.andNode(and)
	if err != nil {
		return None, err
	}
	return node.pred, nil
}

// AndNodeCause returns the cause of an and-node, or [None] if the cause is
// a token.
func (b *Bocage) AndNodeCause(and AndNodeID) (OrNodeID, error) {
	node, err := b.andNode(and)
	if err != nil {
		return None, err
	}
	return node.cause, nil
}

// AndNodeSymbol returns the symbol of an and-node's cause.
func (b *Bocage) AndNodeSymbol(and AndNodeID) (grammar.Symbol, error) {
	node, err := b.andNode(and)
	if err != nil {
		return grammar.NoSymbol, err
	}
	return node.symbol, nil
}

// AndNodeToken returns the token cause of an and-node. Returns
// [ErrInvalidNode] if the cause is an or-node.
func (b *Bocage) AndNodeToken(and AndNodeID) (recognizer.Token, error) {
	node, err := b.andNode(and)
	if err != nil {
		return recognizer.Token{}, err
	}
	if node.token < 0 {
		return recognizer.Token{}, fmt.Errorf("%w: and-node %d has no token", ErrInvalidNode, and)
	}
	return b.tokens[node.token], nil
}

// SourceTokenID maps a token symbol back to the symbol declared in the
// grammar.
func (b *Bocage) SourceTokenID(sym grammar.Symbol) (grammar.Symbol, error) {
	if err := b.live(); err != nil {
		return grammar.NoSymbol, err
	}
	return b.g.SourceSymbol(sym)
}

func (b *Bocage) live() error {
	if b.refs.Load() <= 0 {
		return ErrReleased
	}
	return nil
}

func (b *Bocage) orNode(or OrNodeID) (*orNode, error) {
	if err := b.live(); err != nil {
		return nil, err
	}
	if or < 0 || int(or) >= len(b.ors) {
		return nil, fmt.Errorf("%w: or-node %d", ErrInvalidNode, or)
	}
	return &b.ors[or], nil
}

func (b *Bocage) andNode(and AndNodeID) (*andNode, error) {
	if err := b.live(); err != nil {
		return nil, err
	}
	if and < 0 || int(and) >= len(b.ands) {
		return nil, fmt.Errorf("%w: and-node %d", ErrInvalidNode, and)
	}
	return &b.ands[and], nil
}
