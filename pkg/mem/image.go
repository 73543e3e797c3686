// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package mem

import (
	"slices"
)

// Image is a sparse snapshot of memory, mapping addresses to values.  An
// image serves both as the initial state owned by the controller before
// execution and, after finalization, as a queryable final snapshot.  Cells
// never written read as zero.
type Image struct {
	pageBits uint
	spaces   map[Space]*Paged[Value]
}

// NewImage constructs an empty (all zero) image whose pages hold
// 2^pageBits cells each.
func NewImage(pageBits uint) *Image {
	if pageBits == 0 {
		pageBits = DefaultPageBits
	}
	//
	return &Image{pageBits, make(map[Space]*Paged[Value])}
}

// Get returns the value of a single cell.
func (p *Image) Get(space Space, ptr Pointer) Value {
	if cells, ok := p.spaces[space]; ok {
		return cells.Get(ptr)
	}
	//
	return Value{}
}

// Set assigns a single cell.
func (p *Image) Set(space Space, ptr Pointer, value Value) {
	p.cellsOf(space).Set(ptr, value)
}

// GetBlock reads size contiguous cells starting at ptr.
func (p *Image) GetBlock(space Space, ptr Pointer, size uint) Block {
	block := make(Block, size)
	//
	if cells, ok := p.spaces[space]; ok {
		for i := range block {
			block[i] = cells.Get(ptr + uint64(i))
		}
	}
	//
	return block
}

// SetBlock assigns size contiguous cells starting at ptr.
func (p *Image) SetBlock(space Space, ptr Pointer, values Block) {
	cells := p.cellsOf(space)
	//
	for i, value := range values {
		cells.Set(ptr+uint64(i), value)
	}
}

// Clone produces a deep copy of this image.
func (p *Image) Clone() *Image {
	spaces := make(map[Space]*Paged[Value], len(p.spaces))
	//
	for space, cells := range p.spaces {
		spaces[space] = cells.Clone()
	}
	//
	return &Image{p.pageBits, spaces}
}

// Spaces returns every address space with at least one allocated page, in
// increasing order.
func (p *Image) Spaces() []Space {
	spaces := make([]Space, 0, len(p.spaces))
	for space := range p.spaces {
		spaces = append(spaces, space)
	}
	//
	slices.Sort(spaces)
	//
	return spaces
}

// ForEachPage iterates the allocated pages of a given space in increasing
// pointer order.  Spaces never touched yield nothing.
func (p *Image) ForEachPage(space Space, fn func(base Pointer, page []Value)) {
	if cells, ok := p.spaces[space]; ok {
		cells.ForEachPage(fn)
	}
}

// Cells exposes the paged cell store of a given space, or nil if the space
// was never touched.  The returned store is a shared view: callers intending
// to mutate must clone it first.
func (p *Image) Cells(space Space) *Paged[Value] {
	return p.spaces[space]
}

// PageBits returns the log2 page size of this image.
func (p *Image) PageBits() uint {
	return p.pageBits
}

func (p *Image) cellsOf(space Space) *Paged[Value] {
	cells, ok := p.spaces[space]
	//
	if !ok {
		cells = NewPaged[Value](p.pageBits)
		p.spaces[space] = cells
	}
	//
	return cells
}
