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
	"slices"

	"github.com/bufbuild/parsekit/grammar"
)

// NidsetID is the canonical ID of a [Nidset]. Zero is never a valid ID.
type NidsetID int32

// PowersetID is the canonical ID of a [Powerset]. Zero is never a valid ID.
type PowersetID int32

// Nidset is an unordered set of nids, stored sorted. Two sets with the same
// members always have the same ID within one ASF.
type Nidset struct {
	ID   NidsetID
	Nids []Nid
}

// Powerset is a list of nidsets: the symches of one glade.
type Powerset struct {
	ID      PowersetID
	Nidsets []NidsetID
}

// Nidset returns the nidset with the given ID. The returned slice must not
// be modified.
func (a *ASF) Nidset(id NidsetID) Nidset {
	return Nidset{ID: id, Nids: a.nidsets.Value(id)}
}

// Powerset returns the powerset with the given ID. The returned slice must
// not be modified.
func (a *ASF) Powerset(id PowersetID) Powerset {
	return Powerset{ID: id, Nidsets: a.powersets.Value(id)}
}

// obtainNidset returns the canonical ID of the set of nids, allocating one
// if this set has not been seen before.
//
// Every nidset gets a glade slot when it is created, so that a nidset ID is
// also the arena pointer of its glade.
func (a *ASF) obtainNidset(nids []Nid) NidsetID {
	set := slices.Clone(nids)
	slices.Sort(set)
	set = slices.Compact(set)

	id, inserted := a.nidsets.Intern(set)
	if inserted {
		ptr := a.glades.New(Glade{id: GladeID(id), symbol: grammar.NoSymbol})
		if int(ptr) != int(id) {
			panic(fmt.Sprintf("asf: glade %d allocated for nidset %d", ptr, id))
		}
	}
	return id
}

// obtainPowerset is like obtainNidset, but for lists of nidsets. Unlike
// nidsets, order is significant.
func (a *ASF) obtainPowerset(ids []NidsetID) PowersetID {
	id, _ := a.powersets.Intern(ids)
	return id
}
