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

import "math"

// OpKind distinguishes the two kinds of logged access.
type OpKind uint8

const (
	// ReadOp marks a logged read access.
	ReadOp OpKind = iota
	// WriteOp marks a logged write access.
	WriteOp
)

func (k OpKind) String() string {
	if k == ReadOp {
		return "read"
	}
	//
	return "write"
}

// RecordID is an opaque handle referencing one log record, returned to the
// caller for later correlation with proof-time auxiliary data.  Handles are
// 64 bits wide since 48-bit timestamps admit far more records than a 32-bit
// index could distinguish from the invalid sentinel.
type RecordID uint64

// InvalidRecordID is returned by accesses which consume no log slot, such as
// immediate-space reads.
const InvalidRecordID RecordID = math.MaxUint64

// Record is one entry of the access log: a read or write of a given block at
// a given instant.  Records are never mutated or deleted; they are consumed
// only by finalization.
type Record struct {
	// Timestamp at which this access occurred.
	Timestamp Timestamp
	// Kind of access (read or write).
	Kind OpKind
	// Space accessed.
	Space Space
	// Pointer of the first cell accessed.
	Pointer Pointer
	// Values read, or written, by this access.
	Values Block
	// Previous holds the overwritten values for writes, and is nil for
	// reads.
	Previous Block
}

// Size returns the block size of this access.
func (p *Record) Size() uint {
	return uint(len(p.Values))
}

// Log is the append-only, time-ordered record of all accesses made through
// one memory instance.
type Log struct {
	records []Record
}

// NewLog constructs an empty access log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a record to the log, returning its handle.
func (p *Log) Append(record Record) RecordID {
	id := RecordID(len(p.records))
	p.records = append(p.records, record)
	//
	return id
}

// Get returns the record behind a given handle.
func (p *Log) Get(id RecordID) Record {
	return p.records[id]
}

// Len returns the number of records logged so far.
func (p *Log) Len() uint {
	return uint(len(p.records))
}

// Records exposes the backing records in timestamp order.  The returned
// slice must not be mutated.
func (p *Log) Records() []Record {
	return p.records
}
