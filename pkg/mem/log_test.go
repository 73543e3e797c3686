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
	"math"
	"testing"
)

func Test_Log_01(t *testing.T) {
	// Handles are sequential and resolve back to their records.
	log := NewLog()
	//
	for i := uint64(0); i < 4; i++ {
		record := Record{Timestamp: i + 1, Kind: WriteOp, Space: 1, Pointer: i, Values: Block{NewValue(i)}}
		//
		if id := log.Append(record); id != RecordID(i) {
			t.Errorf("expected handle %d, got %d", i, id)
		}
	}
	//
	if log.Len() != 4 {
		t.Fatalf("expected 4 records, got %d", log.Len())
	}
	//
	if record := log.Get(2); record.Timestamp != 3 || record.Pointer != 2 {
		t.Errorf("handle 2 resolved to %+v", record)
	}
}

func Test_Log_02(t *testing.T) {
	// The invalid sentinel lies beyond every reachable handle.  Handles are
	// 64 bits wide: a 32-bit index would collide with its sentinel under
	// 48-bit timestamps.
	if uint64(InvalidRecordID) != math.MaxUint64 {
		t.Errorf("sentinel %d collides with reachable handles", InvalidRecordID)
	}
	//
	if InvalidRecordID == RecordID(math.MaxUint32) {
		t.Errorf("sentinel within 32-bit handle range")
	}
}
