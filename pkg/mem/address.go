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
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
)

// Space identifies a memory region.  Space 0 is reserved for immediates:
// reading pointer p in space 0 always yields the value p, and writes to space
// 0 always fail.
type Space = uint32

// ImmediateSpace is the reserved address space whose cells are their own
// pointers.
const ImmediateSpace Space = 0

// Pointer is an offset within an address space.  Every valid pointer is
// strictly below 2^PointerMaxBits for the configuration in play.
type Pointer = uint64

// Value is a single memory cell.  Cells are elements of the bls12-377 scalar
// field, since that is what the downstream proof layer consumes.
type Value = fr.Element

// Block is an aligned, contiguous run of values whose length is a power of
// two drawn from the configured access sizes.
type Block = []Value

// Timestamp totally orders all accesses made through one controller.  The
// zero timestamp is reserved for the initial memory image.
type Timestamp = uint64

// Address identifies a single cell as a (space, pointer) pair.
type Address struct {
	Space   Space
	Pointer Pointer
}

func (p Address) String() string {
	return fmt.Sprintf("%d:%d", p.Space, p.Pointer)
}

// NewValue constructs a memory cell holding a given (small) integer.
func NewValue(val uint64) Value {
	return fr.NewElement(val)
}

// IsPowerOf2 checks whether a given access size is a power of two.
func IsPowerOf2(size uint) bool {
	return size != 0 && size&(size-1) == 0
}

// Log2 returns the base-2 logarithm of a power-of-two size.
func Log2(size uint) uint {
	return uint(bits.TrailingZeros(size))
}

// ImmediateBlock constructs the block returned by reads of the immediate
// space, namely [ptr, ptr+1, ..., ptr+size-1].
func ImmediateBlock(ptr Pointer, size uint) Block {
	block := make(Block, size)
	//
	for i := range block {
		block[i] = fr.NewElement(ptr + uint64(i))
	}
	//
	return block
}
