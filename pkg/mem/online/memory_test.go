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
	"errors"
	"math"
	"testing"

	"github.com/consensys/go-zkmem/pkg/mem"
)

func Test_Memory_01(t *testing.T) {
	// Write immediately followed by read returns the written values.
	memory := New(mem.DefaultConfig(), nil)
	//
	_, _, err := memory.Write(1, 0, block(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("write failed: %s", err)
	}
	//
	_, values, err := memory.Read(1, 0, 4)
	if err != nil {
		t.Fatalf("read failed: %s", err)
	}
	//
	check_Block(t, values, 1, 2, 3, 4)
}

func Test_Memory_02(t *testing.T) {
	// A write returns what a read immediately prior would have returned.
	memory := New(mem.DefaultConfig(), nil)
	//
	_, _, _ = memory.Write(1, 8, block(10, 20))
	_, previous, err := memory.Write(1, 8, block(30, 40))
	//
	if err != nil {
		t.Fatalf("write failed: %s", err)
	}
	//
	check_Block(t, previous, 10, 20)
}

func Test_Memory_03(t *testing.T) {
	// Reads of the immediate space yield the pointer itself.
	memory := New(mem.DefaultConfig(), nil)
	//
	id, values, err := memory.Read(0, 5, 1)
	if err != nil {
		t.Fatalf("immediate read failed: %s", err)
	}
	//
	check_Block(t, values, 5)
	//
	if id != mem.InvalidRecordID {
		t.Errorf("immediate read consumed log slot %d", id)
	}
	//
	if memory.Timestamp() != 0 || memory.Log().Len() != 0 {
		t.Errorf("immediate read advanced time or log")
	}
}

func Test_Memory_04(t *testing.T) {
	// Wide immediate reads enumerate successive pointers.
	memory := New(mem.DefaultConfig(), nil)
	//
	_, values, err := memory.Read(0, 8, 4)
	if err != nil {
		t.Fatalf("immediate read failed: %s", err)
	}
	//
	check_Block(t, values, 8, 9, 10, 11)
}

func Test_Memory_05(t *testing.T) {
	// Writes to the immediate space always fail, leaving state unchanged.
	memory := New(mem.DefaultConfig(), nil)
	//
	_, _, err := memory.Write(0, 5, block(99))
	if !errors.Is(err, mem.ErrInvalidAddressSpace) {
		t.Errorf("immediate write accepted: %v", err)
	}
	//
	if memory.Timestamp() != 0 || memory.Log().Len() != 0 {
		t.Errorf("failed write advanced time or log")
	}
}

func Test_Memory_06(t *testing.T) {
	// Bounds: with 4 pointer bits, 14+4 > 16.
	config := mem.DefaultConfig()
	config.PointerMaxBits = 4
	memory := New(config, nil)
	//
	_, _, err := memory.Write(1, 14, block(1, 2, 3, 4))
	if !errors.Is(err, mem.ErrOutOfBounds) {
		t.Errorf("out-of-bounds write accepted: %v", err)
	}
}

func Test_Memory_07(t *testing.T) {
	memory := New(mem.DefaultConfig(), nil)
	// Unsupported sizes
	_, _, err := memory.Read(1, 0, 3)
	if !errors.Is(err, mem.ErrUnsupportedAccessSize) {
		t.Errorf("size 3 accepted: %v", err)
	}
	//
	_, _, err = memory.Read(1, 0, 64)
	if !errors.Is(err, mem.ErrUnsupportedAccessSize) {
		t.Errorf("size 64 accepted: %v", err)
	}
	// Misalignment
	_, _, err = memory.Read(1, 2, 4)
	if !errors.Is(err, mem.ErrMisaligned) {
		t.Errorf("misaligned read accepted: %v", err)
	}
}

func Test_Memory_08(t *testing.T) {
	// Timestamps increase by exactly one per access.
	memory := New(mem.DefaultConfig(), nil)
	//
	_, _, _ = memory.Write(1, 0, block(1))
	_, _, _ = memory.Read(1, 0, 1)
	//
	if memory.Timestamp() != 2 {
		t.Errorf("expected timestamp 2, got %d", memory.Timestamp())
	}
	//
	if err := memory.IncrementTimestampBy(5); err != nil {
		t.Fatalf("increment failed: %s", err)
	}
	//
	if memory.Timestamp() != 7 {
		t.Errorf("expected timestamp 7, got %d", memory.Timestamp())
	}
	// Log records carry their timestamps
	records := memory.Log().Records()
	if records[0].Timestamp != 1 || records[1].Timestamp != 2 {
		t.Errorf("unexpected record timestamps %d, %d", records[0].Timestamp, records[1].Timestamp)
	}
}

func Test_Memory_09(t *testing.T) {
	// Timestamp overflow
	config := mem.DefaultConfig()
	config.TimestampMaxBits = 2
	memory := New(config, nil)
	//
	for i := uint64(0); i < 3; i++ {
		if _, _, err := memory.Write(1, 0, block(i)); err != nil {
			t.Fatalf("write %d failed: %s", i, err)
		}
	}
	//
	_, _, err := memory.Write(1, 0, block(9))
	if !errors.Is(err, mem.ErrTimestampOverflow) {
		t.Errorf("expected timestamp overflow: %v", err)
	}
}

func Test_Memory_10(t *testing.T) {
	// Initial image values are observable before any write.
	image := mem.NewImage(0)
	image.Set(1, 16, mem.NewValue(77))
	//
	memory := New(mem.DefaultConfig(), image)
	//
	_, values, err := memory.Read(1, 16, 1)
	if err != nil {
		t.Fatalf("read failed: %s", err)
	}
	//
	check_Block(t, values, 77)
	//
	if peek := memory.UnsafeRead(1, 16); peek.Uint64() != 77 {
		t.Errorf("unsafe read returned %s", peek.String())
	}
	// Unsafe reads consume nothing
	if memory.Timestamp() != 1 {
		t.Errorf("unsafe read advanced time")
	}
}

func Test_Memory_11(t *testing.T) {
	// Release fixes history: all further mutation is rejected.
	memory := New(mem.DefaultConfig(), nil)
	_, _, _ = memory.Write(1, 0, block(1))
	//
	initial, final, accessLog := memory.Release()
	//
	before := initial.Get(1, 0)
	if before.Uint64() != 0 {
		t.Errorf("initial image contains later write")
	}
	//
	after := final.Get(1, 0)
	if after.Uint64() != 1 {
		t.Errorf("final image missing write")
	}
	//
	if accessLog.Len() != 1 {
		t.Errorf("expected one record, got %d", accessLog.Len())
	}
	//
	if _, _, err := memory.Write(1, 0, block(2)); !errors.Is(err, mem.ErrAlreadyFinalized) {
		t.Errorf("write after release accepted: %v", err)
	}
	//
	if _, _, err := memory.Read(1, 0, 1); !errors.Is(err, mem.ErrAlreadyFinalized) {
		t.Errorf("read after release accepted: %v", err)
	}
}

func Test_Memory_12(t *testing.T) {
	// Huge timestamp steps overflow cleanly rather than wrapping the
	// counter backwards.
	config := mem.DefaultConfig()
	memory := New(config, nil)
	_, _, _ = memory.Write(1, 0, block(1))
	//
	if err := memory.IncrementTimestampBy(math.MaxUint64); !errors.Is(err, mem.ErrTimestampOverflow) {
		t.Errorf("wrapping step accepted: %v", err)
	}
	//
	if memory.Timestamp() != 1 {
		t.Errorf("failed step moved time to %d", memory.Timestamp())
	}
	//
	if err := memory.IncrementTimestampBy(config.TimestampBound()); !errors.Is(err, mem.ErrTimestampOverflow) {
		t.Errorf("out-of-range step accepted: %v", err)
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func block(values ...uint64) mem.Block {
	b := make(mem.Block, len(values))
	//
	for i, v := range values {
		b[i] = mem.NewValue(v)
	}
	//
	return b
}

func check_Block(t *testing.T, block mem.Block, expected ...uint64) {
	if len(block) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(block))
	}
	//
	for i := range block {
		if block[i].Uint64() != expected[i] {
			t.Errorf("block[%d] == %s, expected %d", i, block[i].String(), expected[i])
		}
	}
}
