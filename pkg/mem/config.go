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
	"slices"
)

// DefaultPageBits gives image pages of 4096 cells unless configured
// otherwise.
const DefaultPageBits = 12

// Config determines the shape of one memory instance.  It is consumed at
// construction and never changes thereafter.
type Config struct {
	// AddressSpaceOffset is the first writable address space.  Spaces below
	// it (in practice just the immediate space 0) reject writes.
	AddressSpaceOffset Space
	// AddressSpaceCount is the number of writable address spaces.  Together
	// with AddressSpaceOffset this fixes the universe [offset, offset+count).
	AddressSpaceCount Space
	// PointerMaxBits bounds every pointer: ptr+size <= 2^PointerMaxBits.
	PointerMaxBits uint
	// TimestampMaxBits bounds the global timestamp counter.
	TimestampMaxBits uint
	// ChunkSize is the block size of the canonical finalized representation.
	// Must be a power of two.
	ChunkSize uint
	// AccessSizes lists the supported access block sizes.  Each must be a
	// power of two; together with ChunkSize they must form an adjacent
	// factor-of-two chain so that any used size can be bridged to ChunkSize.
	AccessSizes []uint
	// PageBits is the log2 size of image pages (0 selects DefaultPageBits).
	PageBits uint
}

// DefaultConfig returns a configuration suitable for a 32-bit RISC-V guest:
// four writable spaces, byte-granularity chunks of 8 cells, and access sizes
// up to 32 cells.
func DefaultConfig() Config {
	return Config{
		AddressSpaceOffset: 1,
		AddressSpaceCount:  4,
		PointerMaxBits:     29,
		TimestampMaxBits:   29,
		ChunkSize:          8,
		AccessSizes:        []uint{1, 2, 4, 8, 16, 32},
	}
}

// MaxAccessSize returns the largest supported access size.
func (p *Config) MaxAccessSize() uint {
	return slices.Max(p.AccessSizes)
}

// MinAccessSize returns the smallest supported access size.
func (p *Config) MinAccessSize() uint {
	return slices.Min(p.AccessSizes)
}

// SupportsSize checks whether blocks of a given size can be accessed.
func (p *Config) SupportsSize(size uint) bool {
	return slices.Contains(p.AccessSizes, size)
}

// ValidSpace checks whether a given space lies in the writable universe.
func (p *Config) ValidSpace(space Space) bool {
	return space >= p.AddressSpaceOffset && space < p.AddressSpaceOffset+p.AddressSpaceCount
}

// PointerBound returns 2^PointerMaxBits, the exclusive upper bound on
// ptr+size for every access.
func (p *Config) PointerBound() uint64 {
	return uint64(1) << p.PointerMaxBits
}

// TimestampBound returns 2^TimestampMaxBits, the exclusive upper bound on
// the global timestamp.
func (p *Config) TimestampBound() uint64 {
	return uint64(1) << p.TimestampMaxBits
}

// Validate checks this configuration is usable, returning ErrConfig
// otherwise.  In particular, the supported sizes and the chunk size must
// form an unbroken chain of adjacent (factor of two) sizes, since adapter
// reconciliation only ever merges or splits between adjacent sizes.
func (p *Config) Validate() error {
	if p.AddressSpaceCount == 0 {
		return fmt.Errorf("%w: no writable address spaces", ErrConfig)
	}
	//
	if p.PointerMaxBits == 0 || p.PointerMaxBits > 48 {
		return fmt.Errorf("%w: pointer width %d unsupported", ErrConfig, p.PointerMaxBits)
	}
	//
	if p.TimestampMaxBits == 0 || p.TimestampMaxBits > 48 {
		return fmt.Errorf("%w: timestamp width %d unsupported", ErrConfig, p.TimestampMaxBits)
	}
	//
	if !IsPowerOf2(p.ChunkSize) {
		return fmt.Errorf("%w: chunk size %d not a power of two", ErrConfig, p.ChunkSize)
	}
	//
	if uint64(p.ChunkSize) > p.PointerBound() {
		return fmt.Errorf("%w: chunk size %d exceeds pointer range", ErrConfig, p.ChunkSize)
	}
	//
	if len(p.AccessSizes) == 0 {
		return fmt.Errorf("%w: no supported access sizes", ErrConfig)
	}
	//
	for _, size := range p.AccessSizes {
		if !IsPowerOf2(size) {
			return fmt.Errorf("%w: access size %d not a power of two", ErrConfig, size)
		}
	}
	// Reconciliation bridges sizes one doubling (or halving) at a time.
	// Hence, every power of two between the smallest and largest usable size
	// must itself be usable, and the chunk size must sit on the chain.
	return p.checkSizeChain()
}

func (p *Config) checkSizeChain() error {
	lowest := min(p.MinAccessSize(), p.ChunkSize)
	highest := max(p.MaxAccessSize(), p.ChunkSize)
	//
	for size := lowest; size < highest; size *= 2 {
		if !p.SupportsSize(size) && size != p.ChunkSize {
			return fmt.Errorf("%w: size chain broken at %d (cannot bridge %d..%d to chunk size %d)",
				ErrConfig, size, p.MinAccessSize(), p.MaxAccessSize(), p.ChunkSize)
		}
	}
	//
	return nil
}
