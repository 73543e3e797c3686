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
package offline

import (
	"github.com/consensys/go-zkmem/pkg/mem"
)

// Chunk is one aligned block of the finalized representation, tagged with
// the timestamp of its last touch.  A chunk whose cells were never accessed
// carries timestamp zero.
type Chunk struct {
	// Space this chunk belongs to.
	Space mem.Space
	// Index of this chunk, i.e. pointer / chunkSize.
	Index uint64
	// Timestamp of the most recent access touching any cell of this chunk.
	Timestamp mem.Timestamp
	// Values of the chunk's cells, exactly chunkSize of them.
	Values mem.Block
}

// Pointer returns the pointer of this chunk's first cell.
func (p *Chunk) Pointer(chunkSize uint) mem.Pointer {
	return p.Index * uint64(chunkSize)
}

// Equipartition is the finalized representation of memory: every touched
// region re-expressed as disjoint, aligned chunks of exactly chunkSize
// values.  Chunks are ordered space-major, index-minor.  An equipartition is
// produced once, by finalization, and thereafter immutable.
type Equipartition struct {
	chunkSize uint
	chunks    []Chunk
	lookup    map[mem.Address]int
}

// NewEquipartition constructs an equipartition over a given ordered chunk
// list, taking ownership of it.
func NewEquipartition(chunkSize uint, chunks []Chunk) *Equipartition {
	lookup := make(map[mem.Address]int, len(chunks))
	//
	for i, chunk := range chunks {
		lookup[mem.Address{Space: chunk.Space, Pointer: chunk.Index}] = i
	}
	//
	return &Equipartition{chunkSize, chunks, lookup}
}

// ChunkSize returns the (uniform) size of every chunk.
func (p *Equipartition) ChunkSize() uint {
	return p.chunkSize
}

// Len returns the number of chunks.
func (p *Equipartition) Len() uint {
	return uint(len(p.chunks))
}

// Chunks exposes the ordered chunk list.  The returned slice must not be
// mutated.
func (p *Equipartition) Chunks() []Chunk {
	return p.chunks
}

// Chunk looks up the chunk with a given index in a given space.
func (p *Equipartition) Chunk(space mem.Space, index uint64) (Chunk, bool) {
	if i, ok := p.lookup[mem.Address{Space: space, Pointer: index}]; ok {
		return p.chunks[i], true
	}
	//
	return Chunk{}, false
}

// Get returns the value of a single cell, or zero if its chunk was never
// touched.
func (p *Equipartition) Get(space mem.Space, ptr mem.Pointer) mem.Value {
	index := ptr / uint64(p.chunkSize)
	//
	if chunk, ok := p.Chunk(space, index); ok {
		return chunk.Values[ptr%uint64(p.chunkSize)]
	}
	//
	return mem.Value{}
}
