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
	"testing"

	"github.com/consensys/go-zkmem/pkg/mem"
	"github.com/consensys/go-zkmem/pkg/mem/offline"
	"github.com/consensys/go-zkmem/pkg/mem/online"
	"github.com/stretchr/testify/require"
)

func Test_Hasher_01(t *testing.T) {
	hasher := NewMiMCHasher()
	//
	block := mem.Block{mem.NewValue(1), mem.NewValue(2)}
	other := mem.Block{mem.NewValue(2), mem.NewValue(1)}
	//
	require.Equal(t, hasher.Leaf(block), hasher.Leaf(block))
	require.NotEqual(t, hasher.Leaf(block), hasher.Leaf(other))
	//
	left := hasher.Leaf(block)
	right := hasher.Leaf(other)
	//
	require.Equal(t, hasher.Compress(left, right), hasher.Compress(left, right))
	require.NotEqual(t, hasher.Compress(left, right), hasher.Compress(right, left))
}

func Test_Tree_01(t *testing.T) {
	// All-zero memory commits to the default root, however expressed.
	tree := NewTree(smallConfig(), NewMiMCHasher())
	//
	require.Equal(t, tree.DefaultRoot(), tree.Root(nil, nil))
	require.Equal(t, tree.DefaultRoot(), tree.RootOfImage(mem.NewImage(0)))
}

func Test_Tree_02(t *testing.T) {
	// Sparse commitment with default subtrees matches a naive recomputation
	// over the full addressable range.
	config := smallConfig()
	hasher := NewMiMCHasher()
	tree := NewTree(config, hasher)
	//
	image := mem.NewImage(0)
	image.Set(1, 0, mem.NewValue(10))
	image.Set(1, 7, mem.NewValue(11))
	image.Set(2, 13, mem.NewValue(12))
	//
	require.Equal(t, naiveRoot(config, hasher, image), tree.RootOfImage(image))
}

func Test_Tree_03(t *testing.T) {
	// Partition chunks take precedence over the underlying image.
	config := smallConfig()
	hasher := NewMiMCHasher()
	tree := NewTree(config, hasher)
	//
	image := mem.NewImage(0)
	image.Set(1, 4, mem.NewValue(1))
	//
	chunk := offline.Chunk{
		Space:     1,
		Index:     2,
		Timestamp: 5,
		Values:    mem.Block{mem.NewValue(2), mem.NewValue(3)},
	}
	partition := offline.NewEquipartition(config.ChunkSize, []offline.Chunk{chunk})
	//
	overlay := image.Clone()
	overlay.SetBlock(1, 4, chunk.Values)
	//
	require.Equal(t, tree.RootOfImage(overlay), tree.Root(partition, image))
	require.NotEqual(t, tree.RootOfImage(image), tree.Root(partition, image))
}

func Test_Tree_04(t *testing.T) {
	// The finalized equipartition overlaid on the initial image commits to
	// exactly the final memory snapshot.
	config := smallConfig()
	memory := online.New(config, nil)
	//
	_, _, err := memory.Write(1, 0, mem.Block{mem.NewValue(1)})
	require.NoError(t, err)
	_, _, err = memory.Write(2, 8, mem.Block{mem.NewValue(2), mem.NewValue(3)})
	require.NoError(t, err)
	_, _, err = memory.Read(1, 4, 2)
	require.NoError(t, err)
	//
	initial, final, accessLog := memory.Release()
	//
	outcome, err := offline.New(config, initial.Clone(), accessLog).Replay()
	require.NoError(t, err)
	//
	tree := NewTree(config, NewMiMCHasher())
	//
	require.Equal(t, tree.RootOfImage(final), tree.Root(outcome.Equipartition, initial))
	require.Equal(t, tree.RootOfImage(outcome.Image), tree.Root(outcome.Equipartition, initial))
}

// ===================================================================
// Test Helpers
// ===================================================================

func smallConfig() mem.Config {
	config := mem.DefaultConfig()
	config.AddressSpaceCount = 2
	config.PointerMaxBits = 4
	config.ChunkSize = 2
	config.AccessSizes = []uint{1, 2}
	//
	return config
}

// naiveRoot recomputes the commitment by hashing out every leaf of every
// space, defaults included.
func naiveRoot(config mem.Config, hasher Hasher, image *mem.Image) Digest {
	chunkSize := uint64(config.ChunkSize)
	leaves := config.PointerBound() / chunkSize
	//
	var roots []Digest
	//
	for i := mem.Space(0); i < config.AddressSpaceCount; i++ {
		space := config.AddressSpaceOffset + i
		level := make([]Digest, leaves)
		//
		for index := uint64(0); index < leaves; index++ {
			level[index] = hasher.Leaf(image.GetBlock(space, index*chunkSize, config.ChunkSize))
		}
		//
		for len(level) > 1 {
			folded := make([]Digest, len(level)/2)
			for j := range folded {
				folded[j] = hasher.Compress(level[2*j], level[2*j+1])
			}
			//
			level = folded
		}
		//
		roots = append(roots, level[0])
	}
	//
	for len(roots) > 1 {
		folded := make([]Digest, len(roots)/2)
		for j := range folded {
			folded[j] = hasher.Compress(roots[2*j], roots[2*j+1])
		}
		//
		roots = folded
	}
	//
	return roots[0]
}
