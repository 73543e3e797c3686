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
package merkle

import (
	"slices"

	"github.com/consensys/go-zkmem/pkg/mem"
	"github.com/consensys/go-zkmem/pkg/mem/offline"
)

// Tree commits to the full memory equipartition of a configuration.  Each
// address space forms a complete binary tree whose leaves are its chunks,
// with depth pointerMaxBits - log2(chunkSize); the per-space roots are then
// folded pairwise into a single root.  Since almost every chunk of the
// addressable range is all-zero, subtrees containing no explicit chunk take
// precomputed default digests rather than being hashed out.
type Tree struct {
	config mem.Config
	hasher Hasher
	// Depth of each per-space tree.
	depth uint
	// defaults[k] is the digest of an all-zero subtree with 2^k leaves.
	defaults []Digest
}

// NewTree constructs a commitment tree for a given configuration and hasher.
func NewTree(config mem.Config, hasher Hasher) *Tree {
	depth := config.PointerMaxBits - mem.Log2(config.ChunkSize)
	defaults := make([]Digest, depth+1)
	//
	defaults[0] = hasher.Leaf(make(mem.Block, config.ChunkSize))
	for k := uint(1); k <= depth; k++ {
		defaults[k] = hasher.Compress(defaults[k-1], defaults[k-1])
	}
	//
	return &Tree{config, hasher, depth, defaults}
}

// Root commits to the memory state described by an equipartition overlaid
// on an image: chunks present in the partition take their finalized values,
// all others fall back to the image (and ultimately to zero).  Either
// argument may be nil.
func (p *Tree) Root(partition *offline.Equipartition, image *mem.Image) Digest {
	roots := make([]Digest, 0, p.config.AddressSpaceCount)
	//
	for i := mem.Space(0); i < p.config.AddressSpaceCount; i++ {
		space := p.config.AddressSpaceOffset + i
		indices, blocks := p.spaceChunks(space, partition, image)
		//
		roots = append(roots, p.subtreeRoot(p.depth, 0, indices, blocks))
	}
	//
	return p.foldRoots(roots)
}

// RootOfImage commits to a plain memory snapshot, such as the initial image
// of a continuable segment.
func (p *Tree) RootOfImage(image *mem.Image) Digest {
	return p.Root(nil, image)
}

// DefaultRoot returns the commitment of all-zero memory.
func (p *Tree) DefaultRoot() Digest {
	return p.foldRoots(slices.Repeat([]Digest{p.defaults[p.depth]}, int(p.config.AddressSpaceCount)))
}

// ===================================================================
// Helpers
// ===================================================================

// spaceChunks collects every chunk of a given space with explicit values,
// as a sorted index list plus index-to-values mapping.
func (p *Tree) spaceChunks(space mem.Space, partition *offline.Equipartition,
	image *mem.Image) ([]uint64, map[uint64]mem.Block) {
	//
	var (
		chunkSize = uint64(p.config.ChunkSize)
		blocks    = make(map[uint64]mem.Block)
	)
	// Image chunks first, so partition chunks take precedence.
	if image != nil {
		image.ForEachPage(space, func(base mem.Pointer, page []mem.Value) {
			first := base / chunkSize
			last := (base + uint64(len(page)) - 1) / chunkSize
			//
			for index := first; index <= last; index++ {
				if _, ok := blocks[index]; !ok {
					blocks[index] = image.GetBlock(space, index*chunkSize, p.config.ChunkSize)
				}
			}
		})
	}
	//
	if partition != nil {
		for _, chunk := range partition.Chunks() {
			if chunk.Space == space {
				blocks[chunk.Index] = chunk.Values
			}
		}
	}
	//
	indices := make([]uint64, 0, len(blocks))
	for index := range blocks {
		indices = append(indices, index)
	}
	//
	slices.Sort(indices)
	//
	return indices, blocks
}

// subtreeRoot computes the digest of the subtree of 2^level leaves starting
// at a given leaf index, where indices lists (in order) the leaves within
// it holding explicit values.
func (p *Tree) subtreeRoot(level uint, base uint64, indices []uint64, blocks map[uint64]mem.Block) Digest {
	if len(indices) == 0 {
		return p.defaults[level]
	}
	//
	if level == 0 {
		return p.hasher.Leaf(blocks[base])
	}
	//
	mid := base + uint64(1)<<(level-1)
	// Partition explicit leaves around the midpoint.
	split, _ := slices.BinarySearch(indices, mid)
	//
	left := p.subtreeRoot(level-1, base, indices[:split], blocks)
	right := p.subtreeRoot(level-1, mid, indices[split:], blocks)
	//
	return p.hasher.Compress(left, right)
}

// foldRoots combines the per-space roots pairwise into a single digest,
// padding with the all-zero space digest up to a power of two.
func (p *Tree) foldRoots(roots []Digest) Digest {
	for len(roots)&(len(roots)-1) != 0 {
		roots = append(roots, p.defaults[p.depth])
	}
	//
	for len(roots) > 1 {
		folded := make([]Digest, len(roots)/2)
		//
		for i := range folded {
			folded[i] = p.hasher.Compress(roots[2*i], roots[2*i+1])
		}
		//
		roots = folded
	}
	//
	return roots[0]
}
