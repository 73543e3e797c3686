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
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/go-zkmem/pkg/mem"
)

// AdapterKind distinguishes the two kinds of reconciliation step.
type AdapterKind uint8

const (
	// Merge combines two adjacent segments of size n/2 into one of size n.
	Merge AdapterKind = iota
	// Split subdivides one segment of size n into two of size n/2.
	Split
)

func (k AdapterKind) String() string {
	if k == Merge {
		return "merge"
	}
	//
	return "split"
}

// AdapterOp records one merge or split performed during reconciliation.
// Adapter steps only re-group bookkeeping: they never change any cell's
// value or its last-write timestamp.  The sequence of steps is handed to
// the proof layer for constraint generation, and its per-size counts drive
// trace sizing.
type AdapterOp struct {
	// Kind of step (merge or split).
	Kind AdapterKind
	// Space the step applies to.
	Space mem.Space
	// Pointer of the first affected cell.
	Pointer mem.Pointer
	// Size of the larger of the two granularities involved, i.e. the result
	// size for merges and the source size for splits.
	Size uint
	// Timestamp carried by the affected segment(s) at the time of the step.
	Timestamp mem.Timestamp
}

// AdapterInventory aggregates the reconciliation steps of one finalize
// pass across all address spaces.
type AdapterInventory struct {
	ops    []AdapterOp
	counts map[uint]uint64
}

// NewAdapterInventory aggregates per-space step sequences, in increasing
// space order.
func NewAdapterInventory(perSpace ...[]AdapterOp) *AdapterInventory {
	var ops []AdapterOp
	//
	counts := make(map[uint]uint64)
	//
	for _, steps := range perSpace {
		ops = append(ops, steps...)
		//
		for _, op := range steps {
			counts[op.Size]++
		}
	}
	//
	return &AdapterInventory{ops, counts}
}

// Ops exposes every reconciliation step, grouped by space and ordered
// within each space.  The returned slice must not be mutated.
func (p *AdapterInventory) Ops() []AdapterOp {
	return p.ops
}

// CountBySize returns how many steps were performed at a given (larger)
// size.
func (p *AdapterInventory) CountBySize(size uint) uint64 {
	return p.counts[size]
}

// Len returns the total number of reconciliation steps.
func (p *AdapterInventory) Len() uint64 {
	return uint64(len(p.ops))
}

// ===================================================================
// Per-space reconciliation
// ===================================================================

// spaceAdapter reconciles the access granularities of a single address
// space.  It maintains a partition of the touched pointer range into active
// segments, where each segment is an aligned power-of-two block tagged with
// its last-touch timestamp.  Segments are tracked by a size marker at their
// start pointer; cells not covered by any segment were never accessed.
type spaceAdapter struct {
	config mem.Config
	space  mem.Space
	// Current value of every cell, seeded from the initial image.
	values *mem.Paged[mem.Value]
	// Size marker at each segment start (zero elsewhere).
	segments *mem.Paged[uint32]
	// Last-touch timestamp at each segment start.
	times *mem.Paged[mem.Timestamp]
	// Chunks containing at least one active segment.
	touched *bitset.BitSet
	// Reconciliation steps performed so far, in order.
	ops []AdapterOp
	// Largest segment size which can ever arise.
	maxSize uint
	// Smallest segment size which can ever arise.
	minSize uint
}

func newSpaceAdapter(config mem.Config, space mem.Space, values *mem.Paged[mem.Value]) *spaceAdapter {
	if values == nil {
		values = mem.NewPaged[mem.Value](config.PageBits)
	}
	//
	return &spaceAdapter{
		config:   config,
		space:    space,
		values:   values,
		segments: mem.NewPaged[uint32](config.PageBits),
		times:    mem.NewPaged[mem.Timestamp](config.PageBits),
		touched:  bitset.New(0),
		maxSize:  max(config.MaxAccessSize(), config.ChunkSize),
		minSize:  min(config.MinAccessSize(), config.ChunkSize),
	}
}

// apply replays one log record against the active segments.  The region is
// first reshaped into exactly one segment of the record's size, then the
// record's effect (value update for writes, timestamp update for both) is
// applied in place.
func (p *spaceAdapter) apply(record mem.Record) error {
	var (
		ptr  = record.Pointer
		size = record.Size()
	)
	//
	if !p.config.SupportsSize(size) {
		return fmt.Errorf("%w: logged access size %d unsupported", mem.ErrConfig, size)
	}
	//
	p.reshape(ptr, size)
	//
	for i := uint(0); i < size; i++ {
		current := p.values.Get(ptr + uint64(i))
		// Replay must reconstruct exactly what execution observed.
		if record.Kind == mem.ReadOp && !current.Equal(&record.Values[i]) {
			panic(fmt.Sprintf("replay diverged from logged read at %d:%d", p.space, ptr+uint64(i)))
		} else if record.Previous != nil && !current.Equal(&record.Previous[i]) {
			panic(fmt.Sprintf("replay diverged from logged write at %d:%d", p.space, ptr+uint64(i)))
		}
		//
		if record.Kind == mem.WriteOp {
			p.values.Set(ptr+uint64(i), record.Values[i])
		}
	}
	//
	p.times.Set(ptr, record.Timestamp)
	p.markTouched(ptr, size)
	//
	return nil
}

// finalize reshapes every touched chunk down (or up) to exactly the chunk
// size, filling never-touched cells from the seeded values with timestamp
// zero, and returns the resulting ordered chunk list.
func (p *spaceAdapter) finalize() []Chunk {
	var (
		chunkSize = p.config.ChunkSize
		chunks    []Chunk
	)
	//
	for i, ok := p.touched.NextSet(0); ok; i, ok = p.touched.NextSet(i + 1) {
		base := uint64(i) * uint64(chunkSize)
		//
		p.reshape(base, chunkSize)
		//
		values := make(mem.Block, chunkSize)
		for j := range values {
			values[j] = p.values.Get(base + uint64(j))
		}
		//
		chunks = append(chunks, Chunk{
			Space:     p.space,
			Index:     uint64(i),
			Timestamp: p.times.Get(base),
			Values:    values,
		})
	}
	//
	return chunks
}

// reshape reorganizes the active segments so that [ptr, ptr+size) is
// covered by exactly one segment starting at ptr.  Values and timestamps
// are carried through unchanged; only the grouping changes.
func (p *spaceAdapter) reshape(ptr mem.Pointer, size uint) {
	// A coarser segment containing ptr must be subdivided, one halving at a
	// time, until the slice at ptr has the required size.
	if start, sz, ok := p.findSegment(ptr); ok && sz > size {
		for sz > size {
			p.split(start, sz)
			sz /= 2
			start = ptr &^ uint64(sz-1)
		}
		//
		return
	}
	// Otherwise the region consists of finer segments and (possibly) holes,
	// which are packed together one doubling at a time.
	p.pack(ptr, size)
}

// pack covers [ptr, ptr+size) with exactly one segment by materializing
// holes and merging adjacent finer segments pairwise.
func (p *spaceAdapter) pack(ptr mem.Pointer, size uint) {
	if uint(p.segments.Get(ptr)) == size {
		return
	}
	// A region no part of which was ever accessed materializes directly as
	// one fresh segment, with no adapter step.
	if p.isHole(ptr, size) {
		p.segments.Set(ptr, uint32(size))
		p.times.Set(ptr, 0)
		//
		return
	}
	//
	if size <= p.minSize {
		// Unreachable: a region of minimal size is either a hole or an
		// exact segment.
		panic("internal failure")
	}
	//
	half := size / 2
	p.pack(ptr, half)
	p.pack(ptr+uint64(half), half)
	p.merge(ptr, size)
}

// merge combines the two size/2 segments tiling [ptr, ptr+size) into one.
// Each half keeps its own values; the combined segment carries the later of
// the two last-touch timestamps.
func (p *spaceAdapter) merge(ptr mem.Pointer, size uint) {
	mid := ptr + uint64(size/2)
	timestamp := max(p.times.Get(ptr), p.times.Get(mid))
	//
	p.segments.Set(ptr, uint32(size))
	p.segments.Set(mid, 0)
	p.times.Set(ptr, timestamp)
	p.times.Set(mid, 0)
	//
	p.ops = append(p.ops, AdapterOp{Merge, p.space, ptr, size, timestamp})
}

// split subdivides the segment of a given size at start into two halves,
// each inheriting the original's values and timestamp.
func (p *spaceAdapter) split(start mem.Pointer, size uint) {
	mid := start + uint64(size/2)
	timestamp := p.times.Get(start)
	//
	p.segments.Set(start, uint32(size/2))
	p.segments.Set(mid, uint32(size/2))
	p.times.Set(mid, timestamp)
	//
	p.ops = append(p.ops, AdapterOp{Split, p.space, start, size, timestamp})
}

// findSegment locates the active segment covering a given pointer, if one
// exists.  Since segments are aligned to their own size, only one candidate
// start exists per size.
func (p *spaceAdapter) findSegment(ptr mem.Pointer) (mem.Pointer, uint, bool) {
	for sz := p.maxSize; sz >= p.minSize; sz /= 2 {
		start := ptr &^ uint64(sz-1)
		//
		if uint(p.segments.Get(start)) == sz {
			return start, sz, true
		}
	}
	//
	return 0, 0, false
}

// isHole checks whether no active segment intersects [ptr, ptr+size).
// After reshape's coarse-segment handling, any intersecting segment must
// start within the region.
func (p *spaceAdapter) isHole(ptr mem.Pointer, size uint) bool {
	for i := uint(0); i < size; i++ {
		if p.segments.Get(ptr+uint64(i)) != 0 {
			return false
		}
	}
	//
	return true
}

func (p *spaceAdapter) markTouched(ptr mem.Pointer, size uint) {
	first := ptr / uint64(p.config.ChunkSize)
	last := (ptr + uint64(size) - 1) / uint64(p.config.ChunkSize)
	//
	for i := first; i <= last; i++ {
		p.touched.Set(uint(i))
	}
}
