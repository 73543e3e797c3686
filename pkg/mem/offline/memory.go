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

// Package offline replays a captured access log against the initial memory
// image, reconciling mixed access granularities so that final memory state
// can be expressed as a fixed-size chunk equipartition suitable for
// cryptographic commitment.
package offline

import (
	log "github.com/sirupsen/logrus"

	"github.com/consensys/go-zkmem/pkg/mem"
	"github.com/consensys/go-zkmem/pkg/util"
)

// Memory owns the initial image and the replay pipeline.  Replay is a pure,
// deterministic batch computation over the already-captured log:
// correctness only requires the total order within each address space,
// which is a subsequence of the global log, so independent spaces replay in
// parallel.
type Memory struct {
	config  mem.Config
	initial *mem.Image
	log     *mem.Log
}

// New constructs an offline memory over a given initial image and access
// log, taking ownership of both.
func New(config mem.Config, initial *mem.Image, accessLog *mem.Log) *Memory {
	if initial == nil {
		initial = mem.NewImage(config.PageBits)
	}
	//
	return &Memory{config, initial, accessLog}
}

// Initial exposes the initial memory image.
func (p *Memory) Initial() *mem.Image {
	return p.initial
}

// Log exposes the access log being replayed.
func (p *Memory) Log() *mem.Log {
	return p.log
}

// Outcome is the result of one replay pass.
type Outcome struct {
	// Equipartition holds the finalized chunks of every touched region.
	Equipartition *Equipartition
	// Inventory holds the reconciliation steps which re-expressed the logged
	// access granularities at the chunk size.
	Inventory *AdapterInventory
	// Image is the final memory snapshot, i.e. the initial image with every
	// logged write applied.
	Image *mem.Image
}

// Replay processes the log in increasing timestamp order, producing the
// timestamped equipartition of final memory state along with the adapter
// steps which justify it.  For every cell the reconstructed value equals
// that of the most recent write before it, or the initial image value if no
// write exists; reconciliation never changes a value or its last-touch
// timestamp.
func (p *Memory) Replay() (*Outcome, error) {
	if err := p.config.Validate(); err != nil {
		return nil, err
	}
	//
	stats := util.NewPerfStats()
	jobs := p.buildJobs()
	//
	if err := util.ParExec(jobs); err != nil {
		return nil, err
	}
	// Aggregate per-space results in increasing space order.
	var (
		chunks   []Chunk
		perSpace = make([][]AdapterOp, len(jobs))
	)
	//
	for i, job := range jobs {
		chunks = append(chunks, job.chunks...)
		perSpace[i] = job.adapter.ops
	}
	//
	outcome := &Outcome{
		Equipartition: NewEquipartition(p.config.ChunkSize, chunks),
		Inventory:     NewAdapterInventory(perSpace...),
		Image:         p.finalImage(chunks),
	}
	//
	stats.Log("memory replay")
	log.Debugf("replayed %d accesses into %d chunks using %d adapter steps",
		p.log.Len(), outcome.Equipartition.Len(), outcome.Inventory.Len())
	//
	return outcome, nil
}

// History reconstructs the ordered per-cell access history of a given cell,
// for proof-time auxiliary column generation.  The first entry is always
// the initial value at timestamp zero.
func (p *Memory) History(space mem.Space, ptr mem.Pointer) []HistoryEntry {
	entries := []HistoryEntry{{0, mem.WriteOp, p.initial.Get(space, ptr)}}
	//
	for _, record := range p.log.Records() {
		size := uint64(record.Size())
		//
		if record.Space != space || ptr < record.Pointer || ptr >= record.Pointer+size {
			continue
		}
		//
		entries = append(entries, HistoryEntry{
			Timestamp: record.Timestamp,
			Kind:      record.Kind,
			Value:     record.Values[ptr-record.Pointer],
		})
	}
	//
	return entries
}

// HistoryEntry is one event in the reconstructed history of a single cell.
type HistoryEntry struct {
	// Timestamp of the event.
	Timestamp mem.Timestamp
	// Kind of event (the initial value is reported as a write).
	Kind mem.OpKind
	// Value the cell held immediately after the event.
	Value mem.Value
}

// ===================================================================
// Replay jobs
// ===================================================================

// spaceJob replays the records of a single address space.  Jobs carry no
// dependencies on each other, hence every space runs in the first wave.
type spaceJob struct {
	index   uint
	adapter *spaceAdapter
	records []mem.Record
	chunks  []Chunk
}

// Jobs implementation for the util.BatchJob interface.
func (p *spaceJob) Jobs() []uint {
	return []uint{p.index}
}

// Dependencies implementation for the util.BatchJob interface.
func (p *spaceJob) Dependencies() []uint {
	return nil
}

// Run implementation for the util.BatchJob interface.
func (p *spaceJob) Run() error {
	for _, record := range p.records {
		if err := p.adapter.apply(record); err != nil {
			return err
		}
	}
	//
	p.chunks = p.adapter.finalize()
	//
	return nil
}

func (p *Memory) buildJobs() []*spaceJob {
	perSpace := make(map[mem.Space][]mem.Record)
	//
	for _, record := range p.log.Records() {
		perSpace[record.Space] = append(perSpace[record.Space], record)
	}
	//
	var jobs []*spaceJob
	//
	for i := mem.Space(0); i < p.config.AddressSpaceCount; i++ {
		space := p.config.AddressSpaceOffset + i
		//
		records := perSpace[space]
		if len(records) == 0 {
			continue
		}
		// Seed the adapter with this space's slice of the initial image.
		values := p.initial.Cells(space)
		if values != nil {
			values = values.Clone()
		}
		//
		jobs = append(jobs, &spaceJob{
			index:   uint(i),
			adapter: newSpaceAdapter(p.config, space, values),
			records: records,
		})
	}
	//
	return jobs
}

func (p *Memory) finalImage(chunks []Chunk) *mem.Image {
	image := p.initial.Clone()
	//
	for _, chunk := range chunks {
		image.SetBlock(chunk.Space, chunk.Pointer(p.config.ChunkSize), chunk.Values)
	}
	//
	return image
}
