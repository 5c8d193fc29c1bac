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

package parsekit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bufbuild/parsekit/asf"
	"github.com/bufbuild/parsekit/forest"
	"github.com/bufbuild/parsekit/grammar"
	"github.com/bufbuild/parsekit/internal/ext/slicesx"
	"github.com/bufbuild/parsekit/lexer"
	"github.com/bufbuild/parsekit/recognizer"
	"github.com/bufbuild/parsekit/reporter"
	"github.com/bufbuild/parsekit/source"
	"github.com/bufbuild/parsekit/tree"
)

var (
	// ErrNoGrammar is returned when a Parser has no grammar.
	ErrNoGrammar = errors.New("parsekit: no grammar")
	// ErrSyntax is the underlying error of every reported syntax error.
	ErrSyntax = errors.New("syntax error")
)

// Parser parses input with a compiled grammar.
//
// A Parser is safe for concurrent use, provided its Reporter is.
type Parser struct {
	// The grammar to parse with. This field is required.
	Grammar *grammar.Grammar
	// A custom error and warning reporter. If unspecified, a default
	// reporter is used, which fails the parse on the first error and
	// ignores warnings.
	Reporter reporter.Reporter
	// The maximum number of factorings kept per symch of the ASF. If
	// unspecified, asf.DefaultFactoringMax is used.
	FactoringMax int
	// The maximum parallelism of ParseAll. If unspecified or set to a
	// non-positive value, then min(runtime.NumCPU(), runtime.GOMAXPROCS(-1))
	// will be used.
	MaxParallelism int
}

// Recognize scans and recognizes src, returning its parse forest. The caller
// owns the returned forest's reference.
//
// ctx is checked between earlemes.
func (p *Parser) Recognize(ctx context.Context, src source.Input) (*forest.Bocage, error) {
	if p.Grammar == nil {
		return nil, ErrNoGrammar
	}
	h := reporter.NewHandler(p.Reporter)
	file := source.NewFile(src)
	return p.recognize(ctx, h, file, lexer.NewByteScanner(p.Grammar, strings.NewReader(src.Text)))
}

// RecognizeTokens is like [Parser.Recognize], but takes tokens from ts
// instead of scanning src byte by byte. Token lengths are in earlemes; src
// only serves to resolve positions.
func (p *Parser) RecognizeTokens(ctx context.Context, src source.Input, ts lexer.TokenSource) (*forest.Bocage, error) {
	if p.Grammar == nil {
		return nil, ErrNoGrammar
	}
	return p.recognize(ctx, reporter.NewHandler(p.Reporter), source.NewFile(src), ts)
}

// Forest parses src and returns its ASF, which must be closed.
func (p *Parser) Forest(ctx context.Context, src source.Input) (*asf.ASF, error) {
	if p.Grammar == nil {
		return nil, ErrNoGrammar
	}
	h := reporter.NewHandler(p.Reporter)
	file := source.NewFile(src)
	f, err := p.recognize(ctx, h, file, lexer.NewByteScanner(p.Grammar, strings.NewReader(src.Text)))
	if err != nil {
		return nil, err
	}
	defer f.Unref()

	return asf.New(f, asf.Config{
		FactoringMax: p.FactoringMax,
		Reporter:     reporter.NewReporter(nil, h.Warner()),
		File:         file,
		Grammar:      p.Grammar,
	})
}

// ParseAndTraverse parses src and runs t over its ASF.
func ParseAndTraverse[R, S any](ctx context.Context, p *Parser, src source.Input, init S, t asf.Traverser[R, S]) (R, S, error) {
	a, err := p.Forest(ctx, src)
	if err != nil {
		var zero R
		return zero, init, err
	}
	defer a.Close()
	return asf.Traverse(a, init, t)
}

// Parse parses src and returns one of its parse trees.
func (p *Parser) Parse(ctx context.Context, src source.Input) (*tree.Node, error) {
	a, err := p.Forest(ctx, src)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return tree.Prune(a)
}

// ParseAll parses every input in parallel, returning one tree per input in
// the same order. The first failure cancels the remaining parses.
func (p *Parser) ParseAll(ctx context.Context, srcs ...source.Input) ([]*tree.Node, error) {
	if len(srcs) == 0 {
		return nil, nil
	}

	par := p.MaxParallelism
	if par <= 0 {
		par = min(runtime.GOMAXPROCS(-1), runtime.NumCPU())
	}
	sem := semaphore.NewWeighted(int64(par))
	grp, ctx := errgroup.WithContext(ctx)

	trees := make([]*tree.Node, len(srcs))
	for i, src := range srcs {
		grp.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			n, err := p.Parse(ctx, src)
			if err != nil {
				return err
			}
			trees[i] = n
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return trees, nil
}

func (p *Parser) recognize(ctx context.Context, h *reporter.Handler, file *source.File, ts lexer.TokenSource) (*forest.Bocage, error) {
	r := recognizer.New(p.Grammar)
	r.StartInput()
	// Token positions are byte offsets, but only the byte scanner has one
	// earleme per byte.
	_, byByte := ts.(*lexer.ByteScanner)
	var offset int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		toks, err := ts.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var noTok *lexer.NoTokenError
		switch {
		case errors.As(err, &noTok):
			return nil, p.reject(h, file, r, noTok.Offset, strconv.Quote(string([]byte{noTok.Byte})))
		case errors.Is(err, lexer.ErrNoToken):
			return nil, p.reject(h, file, r, offset, "input")
		case err != nil:
			return nil, err
		}
		if len(toks) > 0 {
			offset = toks[0].Start
		}

		var accepted bool
		for _, tok := range toks {
			err := r.Alternative(tok.Symbol, tok.Value, tok.Len)
			switch {
			case err == nil:
				accepted = true
			case errors.Is(err, recognizer.ErrUnexpectedToken):
			default:
				return nil, err
			}
		}
		if (len(toks) > 0 && !accepted) || r.IsExhausted() {
			return nil, p.reject(h, file, r, offset, p.describe(file, toks, byByte))
		}
		if err := r.EarlemeComplete(); err != nil {
			return nil, err
		}
	}

	// Finish any tokens that reach past the last position.
	for r.Current() < r.Furthest() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.EarlemeComplete(); err != nil {
			return nil, err
		}
	}

	f, err := forest.New(r)
	if errors.Is(err, forest.ErrNoParse) {
		return nil, p.reject(h, file, r, len(file.Text), "end of input")
	}
	return f, err
}

// describe names the tokens rejected at one position: the input byte for
// the byte scanner, otherwise the symbols offered.
func (p *Parser) describe(file *source.File, toks []lexer.Token, byByte bool) string {
	if len(toks) == 0 {
		return "input"
	}
	if start := toks[0].Start; byByte && start < len(file.Text) {
		return strconv.Quote(file.Text[start : start+1])
	}
	var names []string
	for _, tok := range toks {
		if name := p.Grammar.Name(tok.Symbol); !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return strings.Join(names, " or ")
}

// reject reports a syntax error at a byte offset.
func (p *Parser) reject(h *reporter.Handler, file *source.File, r *recognizer.Recognizer, offset int, what string) error {
	expected := slicesx.Transform(r.Expected(), p.Grammar.Name)
	msg := fmt.Sprintf("unexpected %s", what)
	if len(expected) > 0 {
		msg += fmt.Sprintf(", expected %s", strings.Join(expected, " or "))
	}
	_ = h.HandleErrorf(file.Pos(offset), "%w: %s", ErrSyntax, msg)
	return h.Error()
}
