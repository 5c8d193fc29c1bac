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

package reporter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/bufbuild/parsekit/source"
)

// TabstopWidth is the size tabstops are rendered as.
const TabstopWidth = 4

// Level is the severity a diagnostic is rendered with.
type Level int

const (
	LevelError Level = iota
	LevelWarning
)

// String implements [fmt.Stringer].
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Render formats a diagnostic together with the line of text it points at
// and a caret under the offending column:
//
//	error: syntax error: unexpected "x"
//	 --> in:1:2
//	   |
//	 1 | fx
//	   |  ^
//
// If file is nil or does not contain the position, only the message and
// location are rendered.
func Render(level Level, err ErrorWithPos, file *source.File) string {
	pos := err.GetPosition()

	var out strings.Builder
	fmt.Fprintf(&out, "%s: %v", level, err.Unwrap())

	lineNo := strconv.Itoa(max(pos.Line, 0))
	bar := strings.Repeat(" ", max(2, len(lineNo)))
	if pos.Line <= 0 {
		fmt.Fprintf(&out, "\n%s--> %s:?:?", bar[1:], pos.Filename)
		return out.String()
	}
	fmt.Fprintf(&out, "\n%s--> %s", bar[1:], pos)
	if file == nil || pos.Offset > len(file.Text) {
		return out.String()
	}

	start := strings.LastIndexByte(file.Text[:pos.Offset], '\n') + 1
	end := strings.IndexByte(file.Text[start:], '\n')
	if end < 0 {
		end = len(file.Text)
	} else {
		end += start
	}
	line := strings.TrimSuffix(file.Text[start:end], "\r")

	text, _ := measure(line)
	_, column := measure(file.Text[start:min(pos.Offset, start+len(line))])

	fmt.Fprintf(&out, "\n%s |", bar)
	fmt.Fprintf(&out, "\n%*s | %s", len(bar), lineNo, text)
	fmt.Fprintf(&out, "\n%s | %s^", bar, strings.Repeat(" ", column))
	return out.String()
}

// measure expands tabs and escapes unprintable runes in s, returning the
// rendered text and its width in terminal cells.
func measure(s string) (string, int) {
	var out strings.Builder
	var column int
	for s != "" {
		next := strings.IndexFunc(s, func(r rune) bool { return r == '\t' || nonPrint(r) })
		if next < 0 {
			out.WriteString(s)
			column += uniseg.StringWidth(s)
			break
		}

		chunk := s[:next]
		out.WriteString(chunk)
		column += uniseg.StringWidth(chunk)

		r, n := utf8.DecodeRuneInString(s[next:])
		s = s[next+n:]
		if r == '\t' {
			pad := TabstopWidth - column%TabstopWidth
			out.WriteString(strings.Repeat(" ", pad))
			column += pad
			continue
		}
		escape := fmt.Sprintf("<U+%04X>", r)
		out.WriteString(escape)
		column += len(escape)
	}
	return out.String(), column
}

func nonPrint(r rune) bool {
	return r != ' ' && !unicode.IsPrint(r)
}
