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
package zkmem

import (
	"math/bits"

	"github.com/consensys/go-zkmem/pkg/mem"
)

// Per-row overhead columns (space, pointer, timestamp and selector data)
// assumed by the estimators below.
const overheadColumns = 4

// ExpectedTraceHeight coarsely estimates the number of trace rows the proof
// layer will spend on this memory: one row per logged access plus one per
// adapter step, rounded up to the next power of two.  Before finalization
// the adapter steps are themselves estimated; afterwards the actual count
// is used.
func (p *Controller) ExpectedTraceHeight() uint64 {
	height := uint64(p.Log().Len()) + p.adapterSteps()
	//
	return nextPow2(height)
}

// ExpectedTraceCells coarsely estimates the number of trace cells, i.e. the
// per-row column footprint summed over access rows and adapter rows.  Like
// ExpectedTraceHeight, this is a planning figure, not a bound.
func (p *Controller) ExpectedTraceCells() uint64 {
	var cells uint64
	//
	for _, record := range p.Log().Records() {
		cells += uint64(record.Size()) + overheadColumns
	}
	// An adapter row carries the values of the larger granularity involved.
	if p.finalized != nil {
		for _, op := range p.finalized.inventory.Ops() {
			cells += uint64(op.Size) + overheadColumns
		}
	} else {
		cells += p.adapterSteps() * uint64(p.config.ChunkSize+overheadColumns)
	}
	//
	return cells
}

// adapterSteps returns the number of reconciliation steps, estimating it
// from the log when finalization has not happened yet.  The estimate
// assumes every access bridges between its own size and the chunk size
// twice (once on access, once during the boundary fill), one doubling or
// halving at a time.
func (p *Controller) adapterSteps() uint64 {
	if p.finalized != nil {
		return p.finalized.inventory.Len()
	}
	//
	var (
		steps    uint64
		chunkLog = mem.Log2(p.config.ChunkSize)
	)
	//
	for _, record := range p.Log().Records() {
		sizeLog := mem.Log2(record.Size())
		//
		if sizeLog > chunkLog {
			steps += 2 * uint64(sizeLog-chunkLog)
		} else {
			steps += 2 * uint64(chunkLog-sizeLog)
		}
	}
	//
	return steps
}

func nextPow2(n uint64) uint64 {
	if n <= 1 {
		return n
	}
	//
	return uint64(1) << bits.Len64(n-1)
}
