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
	"testing"

	"github.com/consensys/go-zkmem/pkg/util"
)

func Test_Image_01(t *testing.T) {
	image := NewImage(0)
	//
	value := image.Get(1, 42)
	if !value.IsZero() {
		t.Errorf("unset cell read as %s", value.String())
	}
}

func Test_Image_02(t *testing.T) {
	image := NewImage(0)
	image.Set(1, 42, NewValue(99))
	//
	check_Cell(t, image, 1, 42, 99)
	// Other spaces unaffected
	if value := image.Get(2, 42); !value.IsZero() {
		t.Errorf("cell 2:42 read as %s", value.String())
	}
}

func Test_Image_03(t *testing.T) {
	// Cells across a page boundary
	image := NewImage(4)
	image.SetBlock(1, 14, []Value{NewValue(1), NewValue(2), NewValue(3), NewValue(4)})
	//
	for i := uint64(0); i < 4; i++ {
		check_Cell(t, image, 1, 14+i, i+1)
	}
	//
	block := image.GetBlock(1, 14, 4)
	for i := range block {
		if block[i].Uint64() != uint64(i+1) {
			t.Errorf("block[%d] == %s", i, block[i].String())
		}
	}
}

func Test_Image_04(t *testing.T) {
	// Clones are deep
	image := NewImage(0)
	image.Set(1, 0, NewValue(1))
	//
	clone := image.Clone()
	clone.Set(1, 0, NewValue(2))
	//
	check_Cell(t, image, 1, 0, 1)
	check_Cell(t, clone, 1, 0, 2)
}

func Test_Image_05(t *testing.T) {
	// Page iteration is ordered by pointer
	image := NewImage(4)
	image.Set(1, 1000, NewValue(1))
	image.Set(1, 10, NewValue(2))
	image.Set(1, 500, NewValue(3))
	//
	last := int64(-1)
	image.ForEachPage(1, func(base Pointer, page []Value) {
		if int64(base) <= last {
			t.Errorf("page %d out of order", base)
		}
		//
		last = int64(base)
	})
}

func Test_Image_06(t *testing.T) {
	random := util.NewRandom(7)
	pointers := util.GenerateRandomUints(random, 1000, 1<<20)
	image := NewImage(0)
	//
	for i, ptr := range pointers {
		image.Set(1, ptr, NewValue(uint64(i)))
	}
	// Last write wins per cell
	expected := make(map[uint64]uint64)
	for i, ptr := range pointers {
		expected[ptr] = uint64(i)
	}
	//
	for ptr, val := range expected {
		check_Cell(t, image, 1, ptr, val)
	}
}

func Test_Paged_01(t *testing.T) {
	paged := NewPaged[uint32](4)
	paged.Set(100, 42)
	//
	if paged.Get(100) != 42 {
		t.Errorf("cell 100 read as %d", paged.Get(100))
	}
	//
	if paged.Get(99) != 0 {
		t.Errorf("unset cell read as %d", paged.Get(99))
	}
	//
	if paged.PageCount() != 1 {
		t.Errorf("expected one page, got %d", paged.PageCount())
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_Cell(t *testing.T, image *Image, space Space, ptr Pointer, expected uint64) {
	if value := image.Get(space, ptr); value.Uint64() != expected {
		t.Errorf("cell %d:%d read as %s, expected %d", space, ptr, value.String(), expected)
	}
}
