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
	"errors"
	"sync"
	"testing"
)

func Test_RangeChecker_01(t *testing.T) {
	checker := NewCountingRangeChecker()
	//
	if err := checker.Check(255, 8); err != nil {
		t.Errorf("255 fits 8 bits: %s", err)
	}
	//
	if err := checker.Check(256, 8); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("256 does not fit 8 bits: %v", err)
	}
}

func Test_RangeChecker_02(t *testing.T) {
	checker := NewCountingRangeChecker()
	//
	for i := uint64(0); i < 10; i++ {
		_ = checker.Check(i, 8)
	}
	//
	_ = checker.Check(0, 16)
	//
	if n := checker.Count(8); n != 10 {
		t.Errorf("expected 10 checks at 8 bits, got %d", n)
	}
	//
	if n := checker.TotalCount(); n != 11 {
		t.Errorf("expected 11 checks overall, got %d", n)
	}
}

func Test_RangeChecker_03(t *testing.T) {
	// Failed checks are not counted.
	checker := NewCountingRangeChecker()
	_ = checker.Check(1000, 8)
	//
	if n := checker.Count(8); n != 0 {
		t.Errorf("failed check counted: %d", n)
	}
}

func Test_RangeChecker_04(t *testing.T) {
	// Concurrent holders only ever add usage counts.
	var wg sync.WaitGroup
	//
	checker := NewCountingRangeChecker()
	//
	for i := 0; i < 8; i++ {
		wg.Add(1)
		//
		go func() {
			defer wg.Done()
			//
			for j := uint64(0); j < 1000; j++ {
				_ = checker.Check(j, 16)
			}
		}()
	}
	//
	wg.Wait()
	//
	if n := checker.Count(16); n != 8000 {
		t.Errorf("expected 8000 checks at 16 bits, got %d", n)
	}
}
