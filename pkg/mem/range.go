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
	"sync/atomic"
)

// RangeChecker validates that numeric values fit within a given bit width.
// In the full system this is backed by a range-check circuit; here it is
// specified only at its interface.  Implementations are shared, read-mostly
// collaborators: many subsystems may hold references and record usages
// concurrently.
type RangeChecker interface {
	// Check fails if value >= 2^bits.
	Check(value uint64, bits uint) error
}

// MaxRangeBits bounds the bit widths a counting range checker tracks.
const MaxRangeBits = 48

// CountingRangeChecker is the default RangeChecker.  Besides validating
// bounds it tallies how many checks were made at each bit width, since the
// proof layer sizes its range-check table from exactly these counts.
// Counters are atomic: holders only ever add usages, never remove them, so
// no further locking is required.
type CountingRangeChecker struct {
	counts [MaxRangeBits + 1]atomic.Uint64
}

// NewCountingRangeChecker constructs a fresh checker with all counts zero.
func NewCountingRangeChecker() *CountingRangeChecker {
	return &CountingRangeChecker{}
}

// Check implementation for the RangeChecker interface.
func (p *CountingRangeChecker) Check(value uint64, bits uint) error {
	if bits > MaxRangeBits {
		return fmt.Errorf("%w: range width %d exceeds %d bits", ErrConfig, bits, MaxRangeBits)
	}
	//
	if bits < 64 && value >= uint64(1)<<bits {
		return fmt.Errorf("%w: value %d exceeds %d bits", ErrOutOfBounds, value, bits)
	}
	//
	p.counts[bits].Add(1)
	//
	return nil
}

// Count returns how many successful checks were made at a given bit width.
func (p *CountingRangeChecker) Count(bits uint) uint64 {
	if bits > MaxRangeBits {
		return 0
	}
	//
	return p.counts[bits].Load()
}

// TotalCount returns how many successful checks were made overall.
func (p *CountingRangeChecker) TotalCount() uint64 {
	var total uint64
	//
	for i := range p.counts {
		total += p.counts[i].Load()
	}
	//
	return total
}
