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

package intern_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/parsekit/internal/intern"
)

func TestIntern(t *testing.T) {
	t.Parallel()

	data := []string{
		"",
		"a",
		"abc",
		"NP",
		":start",
		"very long",
		" ",
	}

	var table intern.Table
	for i := range 3 {
		for _, s := range data {
			t.Run(fmt.Sprintf("%s/%d", s, i), func(t *testing.T) {
				t.Parallel()

				id := table.Intern(s)
				assert.Equal(t, s, table.Value(id), "id: %v", id)
				assert.Equal(t, s == "", id == 0)
			})
		}
	}
}

func TestSeq(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	var table intern.Seq[int32, int32]

	a, inserted := table.Intern([]int32{1, 2, 3})
	assert.True(inserted)
	assert.Equal(int32(1), a)

	b, inserted := table.Intern([]int32{-44, 2})
	assert.True(inserted)
	assert.Equal(int32(2), b)

	again, inserted := table.Intern([]int32{1, 2, 3})
	assert.False(inserted)
	assert.Equal(a, again)

	empty, inserted := table.Intern(nil)
	assert.True(inserted)
	assert.Equal(int32(3), empty)

	assert.Equal([]int32{-44, 2}, table.Value(b))
	assert.Empty(table.Value(empty))
	assert.Equal(3, table.Len())

	assert.Panics(func() { table.Value(0) })
	assert.Panics(func() { table.Value(4) })
}

func TestSeqCopiesInput(t *testing.T) {
	t.Parallel()

	var table intern.Seq[int32, int32]
	in := []int32{7, 8}
	id, _ := table.Intern(in)
	in[0] = 9

	assert.Equal(t, []int32{7, 8}, table.Value(id))
	other, inserted := table.Intern(in)
	assert.True(t, inserted)
	assert.NotEqual(t, id, other)
}
