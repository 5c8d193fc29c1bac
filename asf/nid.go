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
	"fmt"

	"github.com/bufbuild/parsekit/forest"
)

// Nid is a node ID: a single number naming either an or-node or a token
// leaf.
//
// Non-negative nids are or-node IDs. A token leaf is identified by the
// and-node whose cause it is, encoded as NidLeafBase - andNodeID. The values
// between -1 and NidLeafBase, exclusive, are reserved.
type Nid int32

// NidLeafBase is the nid of the leaf for and-node 0.
const NidLeafBase Nid = -43

// OrNid returns the nid of an or-node.
func OrNid(or forest.OrNodeID) Nid {
	return Nid(or)
}

// LeafNid returns the nid of the token leaf of an and-node.
func LeafNid(and forest.AndNodeID) Nid {
	return NidLeafBase - Nid(and)
}

// IsLeaf returns whether this nid is a token leaf.
func (n Nid) IsLeaf() bool {
	return n <= NidLeafBase
}

// OrNode returns the or-node this nid names, if it names one.
func (n Nid) OrNode() (forest.OrNodeID, bool) {
	if n < 0 {
		return forest.None, false
	}
	return forest.OrNodeID(n), true
}

// AndNode returns the and-node of a token leaf, if this is one.
func (n Nid) AndNode() (forest.AndNodeID, bool) {
	if !n.IsLeaf() {
		return forest.None, false
	}
	return forest.AndNodeID(NidLeafBase - n), true
}

// String implements [fmt.Stringer].
func (n Nid) String() string {
	if and, ok := n.AndNode(); ok {
		return fmt.Sprintf("leaf(%d)", and)
	}
	if or, ok := n.OrNode(); ok {
		return fmt.Sprintf("or(%d)", or)
	}
	return fmt.Sprintf("reserved(%d)", int32(n))
}

// sortIndex groups nids into symches. Or-nodes sort by their external rule;
// leaves by token symbol, mapped below -2, which is reserved for end of
// data.
func (a *ASF) sortIndex(nid Nid) (int32, error) {
	if or, ok := nid.OrNode(); ok {
		rule, err := a.forest.OrNodeRuleSource(or)
		if err != nil {
			return 0, err
		}
		return int32(rule), nil
	}

	and, ok := nid.AndNode()
	if !ok {
		panic(fmt.Sprintf("asf: reserved nid %d", int32(nid)))
	}
	sym, err := a.forest.AndNodeSymbol(and)
	if err != nil {
		return 0, err
	}
	tok, err := a.forest.SourceTokenID(sym)
	if err != nil {
		return 0, err
	}
	return -int32(tok) - 3, nil
}
