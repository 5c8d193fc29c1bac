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

// Package lexer turns input into the token alternatives the recognizer
// consumes.
//
// A [TokenSource] yields, for each position in the input, every token that
// could start there. More than one alternative at a position is how lexical
// ambiguity reaches the parse forest.
package lexer

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/bufbuild/parsekit/grammar"
)

// ErrNoToken is returned by a [TokenSource] when no terminal matches the
// input at some position.
var ErrNoToken = errors.New("lexer: no token matches input")

// Token is one lexical alternative.
type Token struct {
	Symbol grammar.Symbol
	// Start is the byte offset at which the token begins; Len is its length
	// in earlemes, which for the byte scanner is also its length in bytes.
	Start, Len int
	// Value is an opaque value carried into the forest; the byte scanner
	// stores the byte itself.
	Value int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Start + t.Len
}

// TokenSource produces tokens one position at a time.
//
// Next returns all alternatives at the next position, or [io.EOF] once the
// input is exhausted. Any other error ends scanning.
type TokenSource interface {
	Next() ([]Token, error)
}

// ByteScanner is a [TokenSource] that produces one position per byte. The
// alternatives at each position are the terminals accepting that byte.
type ByteScanner struct {
	g      *grammar.Grammar
	r      io.ByteReader
	offset int
}

// NewByteScanner returns a scanner over r for grammar g.
func NewByteScanner(g *grammar.Grammar, r io.Reader) *ByteScanner {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &ByteScanner{g: g, r: br}
}

// Offset returns the offset of the next byte to be scanned.
func (s *ByteScanner) Offset() int {
	return s.offset
}

// Next implements [TokenSource].
func (s *ByteScanner) Next() ([]Token, error) {
	c, err := s.r.ReadByte()
	if err != nil {
		return nil, err
	}
	start := s.offset
	s.offset++

	terms := s.g.TerminalsFor(c)
	if len(terms) == 0 {
		return nil, &NoTokenError{Offset: start, Byte: c}
	}
	toks := make([]Token, len(terms))
	for i, sym := range terms {
		toks[i] = Token{Symbol: sym, Start: start, Len: 1, Value: int(c)}
	}
	return toks, nil
}

// NoTokenError describes a byte that no terminal accepts.
type NoTokenError struct {
	Offset int
	Byte   byte
}

func (e *NoTokenError) Error() string {
	return fmt.Sprintf("%v: byte %q at offset %d", ErrNoToken, e.Byte, e.Offset)
}

func (e *NoTokenError) Unwrap() error {
	return ErrNoToken
}

// Slice is a [TokenSource] over precomputed positions. Each element holds
// the alternatives of one position; an empty element is a position with no
// tokens, which is only useful together with multi-earleme tokens.
type Slice [][]Token

// Next implements [TokenSource].
func (s *Slice) Next() ([]Token, error) {
	if len(*s) == 0 {
		return nil, io.EOF
	}
	toks := (*s)[0]
	*s = (*s)[1:]
	return toks, nil
}

var (
	_ TokenSource = (*ByteScanner)(nil)
	_ TokenSource = (*Slice)(nil)
)
