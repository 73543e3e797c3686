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
package online

import (
	"fmt"

	"github.com/consensys/go-zkmem/pkg/mem"
)

// Memory serves read/write calls during execution with last-write-wins
// semantics, recording every access in an append-only log.  A single
// execution thread drives all calls strictly sequentially; there is no
// internal concurrency and no operation suspends.  Once released to the
// replay engine, a memory rejects all further mutation.
type Memory struct {
	config mem.Config
	// Snapshot of memory as it was at construction.
	initial *mem.Image
	// Current memory state, updated in place by writes.
	state *mem.Image
	// Time-ordered record of every access.
	log *mem.Log
	// Global counter defining the total order over all accesses.
	timestamp mem.Timestamp
	// Set once ownership has been transferred to the replay engine.
	released bool
}

// New constructs a memory over a given starting image, taking ownership of
// it.  A nil image starts from all-zero memory.
func New(config mem.Config, image *mem.Image) *Memory {
	if image == nil {
		image = mem.NewImage(config.PageBits)
	}
	//
	return &Memory{
		config:  config,
		initial: image.Clone(),
		state:   image,
		log:     mem.NewLog(),
	}
}

// Read returns the block of size cells at ptr, logging the access and
// advancing the timestamp.  Reads of the immediate space yield the pointer
// itself (and its successors) without consuming the log.
func (p *Memory) Read(space mem.Space, ptr mem.Pointer, size uint) (mem.RecordID, mem.Block, error) {
	if err := p.checkAccess(space, ptr, size, false); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	// Immediate space: the value of pointer p is p itself.
	if space == mem.ImmediateSpace {
		return mem.InvalidRecordID, mem.ImmediateBlock(ptr, size), nil
	}
	//
	if err := p.bumpTimestamp(); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	//
	values := p.state.GetBlock(space, ptr, size)
	//
	id := p.log.Append(mem.Record{
		Timestamp: p.timestamp,
		Kind:      mem.ReadOp,
		Space:     space,
		Pointer:   ptr,
		Values:    values,
	})
	//
	return id, values, nil
}

// Write replaces the block of len(values) cells at ptr, logging the access
// and advancing the timestamp.  The overwritten values are returned, which
// is exactly what a read immediately beforehand would have yielded.
func (p *Memory) Write(space mem.Space, ptr mem.Pointer, values mem.Block) (mem.RecordID, mem.Block, error) {
	size := uint(len(values))
	//
	if err := p.checkAccess(space, ptr, size, true); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	//
	if err := p.bumpTimestamp(); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	//
	previous := p.state.GetBlock(space, ptr, size)
	p.state.SetBlock(space, ptr, values)
	//
	id := p.log.Append(mem.Record{
		Timestamp: p.timestamp,
		Kind:      mem.WriteOp,
		Space:     space,
		Pointer:   ptr,
		Values:    values,
		Previous:  previous,
	})
	//
	return id, previous, nil
}

// UnsafeRead peeks at a single cell without logging or advancing the
// timestamp.  Intended only for diagnostics; values obtained this way must
// never feed the proof.
func (p *Memory) UnsafeRead(space mem.Space, ptr mem.Pointer) mem.Value {
	if space == mem.ImmediateSpace {
		return mem.NewValue(ptr)
	}
	//
	return p.state.Get(space, ptr)
}

// Timestamp returns the current value of the global counter.
func (p *Memory) Timestamp() mem.Timestamp {
	return p.timestamp
}

// IncrementTimestamp advances time by one step without touching memory.
func (p *Memory) IncrementTimestamp() error {
	return p.IncrementTimestampBy(1)
}

// IncrementTimestampBy advances time by n steps without touching memory,
// modeling operations which consume cycles but make no accesses.
func (p *Memory) IncrementTimestampBy(n uint64) error {
	if p.released {
		return mem.ErrAlreadyFinalized
	}
	//
	// Guard against uint64 wraparound: timestamp < bound always holds.
	if n >= p.config.TimestampBound()-p.timestamp {
		return fmt.Errorf("%w: %d+%d exceeds %d bits",
			mem.ErrTimestampOverflow, p.timestamp, n, p.config.TimestampMaxBits)
	}
	//
	p.timestamp += n
	//
	return nil
}

// Log exposes the access log recorded so far.
func (p *Memory) Log() *mem.Log {
	return p.log
}

// Image exposes the current memory state.
func (p *Memory) Image() *mem.Image {
	return p.state
}

// Release transfers ownership of the initial image, the final state and the
// access log to the replay engine.  After release, every mutating call
// fails with ErrAlreadyFinalized; since there is exactly one writer and no
// further mutation is possible, no locking is required downstream.
func (p *Memory) Release() (initial *mem.Image, final *mem.Image, log *mem.Log) {
	p.released = true
	//
	return p.initial, p.state, p.log
}

// ===================================================================
// Helpers
// ===================================================================

func (p *Memory) checkAccess(space mem.Space, ptr mem.Pointer, size uint, write bool) error {
	if p.released {
		return mem.ErrAlreadyFinalized
	}
	//
	if !p.config.SupportsSize(size) {
		return fmt.Errorf("%w: %d", mem.ErrUnsupportedAccessSize, size)
	}
	//
	if ptr >= p.config.PointerBound() || ptr+uint64(size) > p.config.PointerBound() {
		return fmt.Errorf("%w: %d+%d exceeds %d bits",
			mem.ErrOutOfBounds, ptr, size, p.config.PointerMaxBits)
	}
	//
	if ptr%uint64(size) != 0 {
		return fmt.Errorf("%w: %d not a multiple of %d", mem.ErrMisaligned, ptr, size)
	}
	//
	if space == mem.ImmediateSpace {
		if write {
			return fmt.Errorf("%w: cannot write immediate space", mem.ErrInvalidAddressSpace)
		}
	} else if !p.config.ValidSpace(space) {
		return fmt.Errorf("%w: %d", mem.ErrInvalidAddressSpace, space)
	}
	//
	return nil
}

func (p *Memory) bumpTimestamp() error {
	if p.timestamp+1 >= p.config.TimestampBound() {
		return fmt.Errorf("%w: %d bits exhausted", mem.ErrTimestampOverflow, p.config.TimestampMaxBits)
	}
	//
	p.timestamp++
	//
	return nil
}
