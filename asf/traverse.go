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

// Traverser walks an ASF, producing a result of type R while threading a
// state of type S.
//
// TraverseGlade is called on the peak. To descend, an implementation looks
// up the glades of a factoring with [ASF.Glade] and calls itself; glades are
// only computed when asked for.
type Traverser[R, S any] interface {
	TraverseGlade(a *ASF, g *Glade, state S) (R, S, error)
}

// TraverserFunc adapts a function into a [Traverser].
type TraverserFunc[R, S any] func(a *ASF, g *Glade, state S) (R, S, error)

// TraverseGlade implements [Traverser].
func (f TraverserFunc[R, S]) TraverseGlade(a *ASF, g *Glade, state S) (R, S, error) {
	return f(a, g, state)
}

// Traverse runs t over a, starting at the peak with state init.
func Traverse[R, S any](a *ASF, init S, t Traverser[R, S]) (R, S, error) {
	var zero R
	id, err := a.Peak()
	if err != nil {
		return zero, init, err
	}
	g, err := a.Glade(id)
	if err != nil {
		return zero, init, err
	}
	return t.TraverseGlade(a, g, init)
}
