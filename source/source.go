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

// Package source describes parser input: named text and the positions
// within it that diagnostics refer to.
package source

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/bufbuild/parsekit/internal/interval"
)

// Input is a named piece of text to be parsed.
type Input struct {
	Name string
	Text string
}

// Pos is a location in an [Input].
type Pos struct {
	Filename string
	// Offset is the byte offset from the start of the text.
	Offset int
	// Line and Col are one-based. Col counts grapheme clusters, not bytes.
	Line, Col int
}

// String implements [fmt.Stringer].
func (p Pos) String() string {
	if p.Line <= 0 || p.Col <= 0 {
		return p.Filename
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Col)
}

// File is an [Input] with a line index for resolving byte offsets into
// positions.
type File struct {
	Input

	// Maps byte ranges of each line, newline included, to the line number.
	lines interval.Map[int, int]
}

// NewFile builds a line index for in.
func NewFile(in Input) *File {
	f := &File{Input: in}

	start, line := 0, 1
	for {
		nl := strings.IndexByte(in.Text[start:], '\n')
		if nl < 0 {
			break
		}
		f.lines.Insert(start, start+nl, line)
		start += nl + 1
		line++
	}
	// The last line also owns the end-of-text offset.
	f.lines.Insert(start, len(in.Text), line)
	return f
}

// Lines returns the number of lines in the file. A trailing newline starts
// a new, empty line.
func (f *File) Lines() int {
	return f.lines.Len()
}

// Pos resolves a byte offset into a position. Offsets outside of the text are
// clamped to its bounds.
func (f *File) Pos(offset int) Pos {
	offset = min(max(offset, 0), len(f.Text))
	line := f.lines.Get(offset)
	col := 1 + uniseg.GraphemeClusterCount(f.Text[line.Start:offset])
	return Pos{
		Filename: f.Name,
		Offset:   offset,
		Line:     *line.Value,
		Col:      col,
	}
}

// Slice returns the text between two byte offsets, clamped to the text.
func (f *File) Slice(start, end int) string {
	start = min(max(start, 0), len(f.Text))
	end = min(max(end, start), len(f.Text))
	return f.Text[start:end]
}
