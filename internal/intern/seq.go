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

package intern

import (
	"encoding/binary"
	"fmt"
	"slices"
	"unsafe"
)

// Int is an integer type that can be stored in a [Seq] table.
type Int interface {
	~int32 | ~uint32
}

// Seq is a hash-consing table for canonical sequences of 32-bit integers.
//
// Each distinct sequence is assigned an ID the first time it is seen; the
// same content always maps to the same ID afterwards. IDs start at 1 and
// grow monotonically; 0 is never handed out. Stored sequences must not be
// mutated.
//
// Unlike [Table], a Seq is not safe for concurrent use. The zero value is
// empty and ready to use.
type Seq[E Int, I Int] struct {
	index   map[string]I
	table   [][]E
	scratch []byte
}

// Intern returns the ID for s, along with whether s was newly inserted.
//
// s is copied if it needs to be stored, so callers may reuse it.
func (t *Seq[E, I]) Intern(s []E) (id I, inserted bool) {
	t.scratch = t.scratch[:0]
	for _, e := range s {
		t.scratch = binary.LittleEndian.AppendUint32(t.scratch, uint32(e))
	}

	// Indexing a map with string(bytes) does not allocate.
	if id, ok := t.index[string(t.scratch)]; ok {
		return id, false
	}

	t.table = append(t.table, slices.Clone(s))
	id = I(len(t.table))
	if int(id) != len(t.table) || id <= 0 {
		panic(fmt.Sprintf("intern: %d sequence IDs exhausted for %d-byte ID", len(t.table), unsafe.Sizeof(id)))
	}

	if t.index == nil {
		t.index = make(map[string]I)
	}
	t.index[string(t.scratch)] = id
	return id, true
}

// Value returns the sequence for id. The returned slice must not be mutated.
//
// Panics if id was not returned by this table.
func (t *Seq[E, I]) Value(id I) []E {
	if id <= 0 || int(id) > len(t.table) {
		panic(fmt.Sprintf("intern: sequence ID %d out of range", id))
	}
	return t.table[int(id)-1]
}

// Len returns the number of sequences interned so far, which is also the
// largest ID handed out.
func (t *Seq[E, I]) Len() int {
	return len(t.table)
}
