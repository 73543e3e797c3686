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

// Paged is a sparse array indexed by pointer, backed by fixed-size pages
// allocated on demand.  Unset cells read as the zero value.  Pages enable
// bulk, cache-friendly iteration during replay, in contrast to hashing every
// individual (space, pointer) pair.
type Paged[T any] struct {
	pageBits uint
	pages    map[uint64][]T
}

// NewPaged constructs an empty paged array with pages of 2^pageBits cells
// (zero selects DefaultPageBits).
func NewPaged[T any](pageBits uint) *Paged[T] {
	if pageBits == 0 {
		pageBits = DefaultPageBits
	}
	//
	return &Paged[T]{pageBits, make(map[uint64][]T)}
}

// Get returns the cell at a given pointer, or the zero value if it was never
// set.
func (p *Paged[T]) Get(ptr Pointer) T {
	var empty T
	//
	if page, ok := p.pages[ptr>>p.pageBits]; ok {
		return page[ptr&p.pageMask()]
	}
	//
	return empty
}

// Set assigns the cell at a given pointer, allocating its page if necessary.
func (p *Paged[T]) Set(ptr Pointer, value T) {
	index := ptr >> p.pageBits
	//
	page, ok := p.pages[index]
	if !ok {
		page = make([]T, 1<<p.pageBits)
		p.pages[index] = page
	}
	//
	page[ptr&p.pageMask()] = value
}

// Clone produces a deep copy of this paged array.
func (p *Paged[T]) Clone() *Paged[T] {
	pages := make(map[uint64][]T, len(p.pages))
	//
	for index, page := range p.pages {
		pages[index] = slices.Clone(page)
	}
	//
	return &Paged[T]{p.pageBits, pages}
}

// PageCount returns the number of allocated pages.
func (p *Paged[T]) PageCount() uint {
	return uint(len(p.pages))
}

// ForEachPage iterates all allocated pages in increasing pointer order,
// supplying the pointer of each page's first cell along with its contents.
func (p *Paged[T]) ForEachPage(fn func(base Pointer, page []T)) {
	indices := make([]uint64, 0, len(p.pages))
	for index := range p.pages {
		indices = append(indices, index)
	}
	//
	slices.Sort(indices)
	//
	for _, index := range indices {
		fn(index<<p.pageBits, p.pages[index])
	}
}

func (p *Paged[T]) pageMask() uint64 {
	return (uint64(1) << p.pageBits) - 1
}
