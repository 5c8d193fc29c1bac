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

// Package parsekit parses text with general context-free grammars,
// ambiguous ones included, and exposes every parse through an Ambiguous
// Syntax Forest.
//
// The sub-packages are the phases of a parse:
//  1. Build and compile a grammar.
//     Also see: grammar.Builder
//  2. Scan input into token alternatives.
//     Also see: lexer.ByteScanner
//  3. Recognize the tokens with an Earley recognizer.
//     Also see: recognizer.Recognizer
//  4. Build the packed parse forest.
//     Also see: forest.New
//  5. View the forest as an ASF and traverse it.
//     Also see: asf.New, asf.Traverse
//
// A [Parser] runs all of these phases. Its zero value is not usable: the
// Grammar field is required.
//
//	p := parsekit.Parser{Grammar: g}
//	root, err := p.Parse(ctx, source.Input{Name: "in", Text: "ff"})
//
// # Ambiguity
//
// When the grammar is ambiguous, [Parser.Parse] returns one tree (the first
// factoring at every choice), while [Parser.Forest] returns the ASF itself,
// which a caller can walk with an [asf.Traverser] to see every parse. The
// number of factorings kept per choice is bounded by FactoringMax; going
// over the bound is reported as a warning.
//
// # Reporting
//
// Syntax errors are reported through the configured reporter.Reporter as
// reporter.ErrorWithPos values, which carry the file, line and column.
package parsekit
