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

package slicesx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bufbuild/parsekit/internal/ext/slicesx"
)

func TestPartitionKey(t *testing.T) {
	t.Parallel()

	type run struct {
		start int
		elems []int
	}
	var got []run
	s := []int{1, 1, 2, 3, 3, 3}
	for start, elems := range slicesx.PartitionKey(s, func(n int) int { return n }) {
		got = append(got, run{start, elems})
	}
	assert.Equal(t, []run{{0, []int{1, 1}}, {2, []int{2}}, {3, []int{3, 3, 3}}}, got)

	got = nil
	for start, elems := range slicesx.PartitionKey([]int(nil), func(n int) int { return n }) {
		got = append(got, run{start, elems})
	}
	assert.Empty(t, got)
}

func TestGet(t *testing.T) {
	t.Parallel()

	s := []string{"a", "b"}
	v, ok := slicesx.Get(s, 1)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = slicesx.Get(s, -1)
	assert.False(t, ok)
	_, ok = slicesx.Last([]string{})
	assert.False(t, ok)

	assert.Equal(t, 2, slicesx.LastIndexFunc([]int{1, 2, 1}, func(n int) bool { return n == 1 }))
	assert.Equal(t, "1->2", slicesx.Join([]int{1, 2}, "->"))
}
