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

// Package asf provides the Ambiguous Syntax Forest: a view of a parse forest
// built for traversal by client code.
//
// The ASF groups the or-nodes and token leaves of a forest into glades. A
// glade is a set of nodes that derive the same symbol over the same span;
// its symches split it by rule, and each symch lists its factorings, the
// ways of dividing the span among the symbols of the rule. Glades are
// computed lazily, as a [Traverser] asks for them, and identical node sets
// are shared, so an exponential number of parse trees is represented in
// polynomial space.
//
// The number of factorings kept per symch is bounded by
// [Config.FactoringMax]; when the bound is hit the symch is marked
// [Symch.Omitted] and a warning is reported.
//
// An ASF is not safe for concurrent use. Distinct ASFs are independent.
package asf

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bufbuild/parsekit/forest"
	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/internal/arena"
	"github.com/bufbuild/parsekit/internal/intern"
	"github.com/bufbuild/parsekit/recognizer"
	"github.com/bufbuild/parsekit/reporter"
	"github.com/bufbuild/parsekit/source"
)

// DefaultFactoringMax is used when [Config.FactoringMax] is not positive.
const DefaultFactoringMax = 42

var (
	// ErrNullParse is returned by New for the forest of a null parse, which
	// has no nodes to build glades from.
	ErrNullParse = errors.New("asf: null parse")
	// ErrTooManyFactorings is the underlying error of the warning reported
	// when a symch has more factorings than the configured maximum.
	ErrTooManyFactorings = errors.New("asf: too many factorings")
)

// Forest is the parse forest an ASF is built over. [*forest.Bocage]
// implements it.
type Forest interface {
	TopOrNode() (forest.OrNodeID, error)
	OrNodeAndNodeIDs(forest.OrNodeID) []forest.AndNodeID
	OrNodeRuleSource(forest.OrNodeID) (grammar.RuleID, error)
	OrNodeSymbol(forest.OrNodeID) (grammar.Symbol, error)
	OrNodeSpan(forest.OrNodeID) (start, end int, err error)
	AndNodeCause(forest.AndNodeID) (forest.OrNodeID, error)
	AndNodePredecessor(forest.AndNodeID) (forest.OrNodeID, error)
	AndNodeSymbol(forest.AndNodeID) (grammar.Symbol, error)
	AndNodeToken(forest.AndNodeID) (recognizer.Token, error)
	SourceTokenID(grammar.Symbol) (grammar.Symbol, error)
	IsNull() bool

	Ref() error
	Unref()
}

var _ Forest = (*forest.Bocage)(nil)

// Config configures an ASF. The zero value is ready to use.
type Config struct {
	// FactoringMax bounds the factorings kept per symch. Defaults to
	// DefaultFactoringMax.
	FactoringMax int
	// Reporter receives warnings. May be nil.
	Reporter reporter.Reporter
	// File is the parsed input. If set, glades can be rendered with
	// [ASF.Literal] and warnings carry positions.
	File *source.File
	// Grammar is used to name symbols in warnings. May be nil.
	Grammar *grammar.Grammar
}

// ASF is an Ambiguous Syntax Forest.
type ASF struct {
	forest Forest
	config Config
	closed bool

	nidsets   intern.Seq[Nid, NidsetID]
	powersets intern.Seq[NidsetID, PowersetID]
	glades    arena.Arena[Glade]

	// The and-nodes of each or-node, indexed by or-node ID.
	orNodes [][]forest.AndNodeID
	// Memoized factor stacks per or-node.
	stacks map[forest.OrNodeID][][]GladeID
	peak   GladeID

	symchComputations int
}

// New builds an ASF over f, which must be the forest of a successful parse.
//
// The ASF holds a reference to f until [ASF.Close] is called. Returns
// [ErrNullParse] if f is the forest of a null parse.
func New(f Forest, config Config) (*ASF, error) {
	if err := f.Ref(); err != nil {
		return nil, fmt.Errorf("asf: %w", err)
	}

	a, err := build(f, config)
	if err != nil {
		f.Unref()
		return nil, err
	}
	return a, nil
}

func build(f Forest, config Config) (*ASF, error) {
	if f.IsNull() {
		return nil, ErrNullParse
	}
	if config.FactoringMax <= 0 {
		config.FactoringMax = DefaultFactoringMax
	}

	top, err := f.TopOrNode()
	if err != nil {
		return nil, fmt.Errorf("asf: %w", err)
	}

	a := &ASF{
		forest: f,
		config: config,
		stacks: make(map[forest.OrNodeID][][]GladeID),
	}
	// Or-node IDs are dense, and every or-node has at least one and-node.
	for or := forest.OrNodeID(0); ; or++ {
		ands := f.OrNodeAndNodeIDs(or)
		if len(ands) == 0 {
			break
		}
		a.orNodes = append(a.orNodes, slices.Clone(ands))
	}
	if len(a.andNodes(top)) == 0 {
		return nil, fmt.Errorf("asf: %w: top or-node %d has no and-nodes", forest.ErrInvalidNode, top)
	}
	return a, nil
}

// Close releases the ASF's reference to its forest. Calling Close more than
// once has no effect.
func (a *ASF) Close() error {
	if !a.closed {
		a.closed = true
		a.forest.Unref()
	}
	return nil
}

// Peak returns the glade of the whole parse: the start symbol over the
// entire input. The peak is always registered.
func (a *ASF) Peak() (GladeID, error) {
	if a.peak != 0 {
		return a.peak, nil
	}

	top, err := a.forest.TopOrNode()
	if err != nil {
		return 0, err
	}
	// Every and-node of the augment rule derives the start symbol from
	// nothing, so their causes form one glade.
	var nids []Nid
	for _, and := range a.andNodes(top) {
		cause, err := a.forest.AndNodeCause(and)
		if err != nil {
			return 0, err
		}
		nids = append(nids, OrNid(cause))
	}

	id, err := a.register(a.obtainNidset(nids))
	if err != nil {
		return 0, err
	}
	a.peak = id
	return id, nil
}

func (a *ASF) symbolName(sym grammar.Symbol) string {
	if a.config.Grammar == nil {
		return fmt.Sprintf("symbol %d", sym)
	}
	return a.config.Grammar.Name(sym)
}
