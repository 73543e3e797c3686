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

// Package zkmem provides the memory consistency and finalization engine of a
// zero-knowledge virtual machine.  Programs execute against an online memory
// whose every access is logged; finalization replays the log, reconciles
// mixed access granularities and produces a fixed-chunk representation of
// final memory state, optionally committed to via a Merkle root so that
// execution can resume across proof segments.
package zkmem

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-zkmem/pkg/mem"
	"github.com/consensys/go-zkmem/pkg/mem/merkle"
	"github.com/consensys/go-zkmem/pkg/mem/offline"
	"github.com/consensys/go-zkmem/pkg/mem/online"
)

// Controller orchestrates the online access layer, the range checker, the
// offline replay engine and the boundary strategy.  A controller is either
// volatile (single-shot execution, no commitment) or persistent (resumable
// execution, Merkle-committed boundaries); the choice is made at
// construction and only boundary behaviour differs.
type Controller struct {
	config  mem.Config
	checker mem.RangeChecker
	online  *online.Memory
	// Commitment collaborators (persistent mode only).
	tree *merkle.Tree
	// Whether this controller commits to its boundaries.
	persistent bool
	// Starting commitment, fixed by SetInitialMemory.
	initialRoot merkle.Digest
	initialSet  bool
	// Cached finalization result.
	finalized *Finalized
}

// NewVolatile constructs a controller for single-shot, non-resumable
// execution over a given initial image (nil for all-zero memory).  A nil
// range checker selects the counting default.
func NewVolatile(config mem.Config, checker mem.RangeChecker, image *mem.Image) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	//
	if checker == nil {
		checker = mem.NewCountingRangeChecker()
	}
	//
	return &Controller{
		config:  config,
		checker: checker,
		online:  online.New(config, image),
	}, nil
}

// NewPersistent constructs a controller whose memory boundaries are
// committed via Merkle roots, enabling state continuity across resumable
// execution segments.  SetInitialMemory must be called before any access.
// A nil hasher selects the MiMC default.
func NewPersistent(config mem.Config, checker mem.RangeChecker, hasher merkle.Hasher) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	//
	if checker == nil {
		checker = mem.NewCountingRangeChecker()
	}
	//
	if hasher == nil {
		hasher = merkle.NewMiMCHasher()
	}
	//
	return &Controller{
		config:     config,
		checker:    checker,
		online:     online.New(config, nil),
		tree:       merkle.NewTree(config, hasher),
		persistent: true,
	}, nil
}

// SetInitialMemory fixes the starting state (and hence the starting
// commitment) of a persistent controller.  It must be called exactly once,
// before any access.
func (p *Controller) SetInitialMemory(image *mem.Image) error {
	if !p.persistent {
		return fmt.Errorf("%w: volatile memory has no commitment", mem.ErrConfig)
	}
	//
	if p.initialSet {
		return fmt.Errorf("%w: initial memory already fixed", mem.ErrConfig)
	}
	//
	if p.online.Log().Len() > 0 || p.online.Timestamp() > 0 {
		return fmt.Errorf("%w: initial memory set after first access", mem.ErrConfig)
	}
	//
	if err := checkImageExtents(p.config, image); err != nil {
		return err
	}
	//
	p.online = online.New(p.config, image)
	p.initialRoot = p.tree.RootOfImage(p.online.Image())
	p.initialSet = true
	//
	return nil
}

// Read returns the block of size cells at ptr, logging the access.  The
// pointer and resulting timestamp pass through the range checker, since the
// proof layer sizes its range tables from exactly these checks.
func (p *Controller) Read(space mem.Space, ptr mem.Pointer, size uint) (mem.RecordID, mem.Block, error) {
	if err := p.checkAccess(ptr); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	//
	id, values, err := p.online.Read(space, ptr, size)
	if err != nil {
		return id, nil, err
	}
	//
	return id, values, p.checker.Check(p.online.Timestamp(), p.config.TimestampMaxBits)
}

// Write replaces the block at ptr with the given values, logging the access
// and returning the overwritten block.
func (p *Controller) Write(space mem.Space, ptr mem.Pointer, values mem.Block) (mem.RecordID, mem.Block, error) {
	if err := p.checkAccess(ptr); err != nil {
		return mem.InvalidRecordID, nil, err
	}
	//
	id, previous, err := p.online.Write(space, ptr, values)
	if err != nil {
		return id, nil, err
	}
	//
	return id, previous, p.checker.Check(p.online.Timestamp(), p.config.TimestampMaxBits)
}

// UnsafeRead peeks at a single cell without logging or advancing time.
// Diagnostic only; values obtained this way must never feed the proof.
func (p *Controller) UnsafeRead(space mem.Space, ptr mem.Pointer) mem.Value {
	if p.finalized != nil {
		return p.finalized.image.Get(space, ptr)
	}
	//
	return p.online.UnsafeRead(space, ptr)
}

// Timestamp returns the current value of the global counter.
func (p *Controller) Timestamp() mem.Timestamp {
	return p.online.Timestamp()
}

// IncrementTimestamp advances time by one step without touching memory.
func (p *Controller) IncrementTimestamp() error {
	return p.online.IncrementTimestamp()
}

// IncrementTimestampBy advances time by n steps without touching memory,
// modeling multi-cycle instructions.
func (p *Controller) IncrementTimestampBy(n uint64) error {
	return p.online.IncrementTimestampBy(n)
}

// Image exposes the current memory state or, after finalization, the final
// snapshot.
func (p *Controller) Image() *mem.Image {
	if p.finalized != nil {
		return p.finalized.image
	}
	//
	return p.online.Image()
}

// Log exposes the access log recorded so far.
func (p *Controller) Log() *mem.Log {
	return p.online.Log()
}

// Config returns the configuration this controller was built with.
func (p *Controller) Config() mem.Config {
	return p.config
}

// Finalize consumes the online memory, replays its log and produces the
// timestamped equipartition of final memory state (plus, in persistent
// mode, the final Merkle root).  Finalize is idempotent: repeated calls
// return the cached result.  Mutating accesses after finalize fail with
// ErrAlreadyFinalized.
func (p *Controller) Finalize() (*Finalized, error) {
	if p.finalized != nil {
		return p.finalized, nil
	}
	//
	if p.persistent && !p.initialSet {
		return nil, fmt.Errorf("%w: initial memory never set", mem.ErrConfig)
	}
	// Ownership transfer: exactly one writer existed, and no further
	// mutation is possible from here on.
	initial, _, accessLog := p.online.Release()
	replayer := offline.New(p.config, initial, accessLog)
	//
	outcome, err := replayer.Replay()
	if err != nil {
		return nil, err
	}
	//
	finalized := &Finalized{
		partition:  outcome.Equipartition,
		inventory:  outcome.Inventory,
		image:      outcome.Image,
		offline:    replayer,
		persistent: p.persistent,
	}
	//
	if p.persistent {
		finalized.initialRoot = p.initialRoot
		finalized.finalRoot = p.tree.Root(outcome.Equipartition, initial)
		//
		log.Debugf("memory finalized: %d chunks, root %x", outcome.Equipartition.Len(), finalized.finalRoot)
	}
	//
	p.finalized = finalized
	//
	return finalized, nil
}

// checkImageExtents rejects images holding nonzero cells outside the
// configured universe, which the commitment tree could not represent.
func checkImageExtents(config mem.Config, image *mem.Image) error {
	if image == nil {
		return nil
	}
	//
	bound := config.PointerBound()
	//
	for _, space := range image.Spaces() {
		if !config.ValidSpace(space) {
			return fmt.Errorf("%w: initial image touches space %d", mem.ErrInvalidAddressSpace, space)
		}
		//
		var err error
		//
		image.ForEachPage(space, func(base mem.Pointer, page []mem.Value) {
			if err != nil || base+uint64(len(page)) <= bound {
				return
			}
			//
			for i := range page {
				if base+uint64(i) >= bound && !page[i].IsZero() {
					err = fmt.Errorf("%w: initial image cell %d:%d exceeds %d bits",
						mem.ErrOutOfBounds, space, base+uint64(i), config.PointerMaxBits)
					//
					return
				}
			}
		})
		//
		if err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *Controller) checkAccess(ptr mem.Pointer) error {
	if p.persistent && !p.initialSet {
		return fmt.Errorf("%w: initial memory never set", mem.ErrConfig)
	}
	//
	return p.checker.Check(ptr, p.config.PointerMaxBits)
}

// ===================================================================
// Finalized
// ===================================================================

// Finalized holds the artifacts of one finalize pass, handed to the proof
// layer: the equipartition, the adapter steps, the final snapshot and (for
// persistent memories) the boundary commitments.
type Finalized struct {
	partition  *offline.Equipartition
	inventory  *offline.AdapterInventory
	image      *mem.Image
	offline    *offline.Memory
	persistent bool
	//
	initialRoot merkle.Digest
	finalRoot   merkle.Digest
}

// Equipartition returns the finalized chunk representation.
func (p *Finalized) Equipartition() *offline.Equipartition {
	return p.partition
}

// Inventory returns the adapter steps performed during reconciliation.
func (p *Finalized) Inventory() *offline.AdapterInventory {
	return p.inventory
}

// Image returns the final memory snapshot.
func (p *Finalized) Image() *mem.Image {
	return p.image
}

// Log returns the access log this result was replayed from.
func (p *Finalized) Log() *mem.Log {
	return p.offline.Log()
}

// History reconstructs the ordered access history of a single cell, for
// proof-time auxiliary column generation.
func (p *Finalized) History(space mem.Space, ptr mem.Pointer) []offline.HistoryEntry {
	return p.offline.History(space, ptr)
}

// InitialRoot returns the starting commitment of a persistent memory.
func (p *Finalized) InitialRoot() (merkle.Digest, bool) {
	return p.initialRoot, p.persistent
}

// FinalRoot returns the ending commitment of a persistent memory.  For
// continuations, it must equal the starting root declared by the next
// segment.
func (p *Finalized) FinalRoot() (merkle.Digest, bool) {
	return p.finalRoot, p.persistent
}
