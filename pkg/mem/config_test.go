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
	"testing"
)

func Test_Config_01(t *testing.T) {
	config := DefaultConfig()
	//
	if err := config.Validate(); err != nil {
		t.Errorf("default configuration rejected: %s", err)
	}
}

func Test_Config_02(t *testing.T) {
	// Chain gap: size 2 missing between 1 and 4.
	config := DefaultConfig()
	config.AccessSizes = []uint{1, 4}
	config.ChunkSize = 4
	//
	check_ConfigRejected(t, config)
}

func Test_Config_03(t *testing.T) {
	// Unbroken chain bridging 1 to the chunk size.
	config := DefaultConfig()
	config.AccessSizes = []uint{1, 2, 4}
	config.ChunkSize = 4
	//
	if err := config.Validate(); err != nil {
		t.Errorf("valid configuration rejected: %s", err)
	}
}

func Test_Config_04(t *testing.T) {
	// Chunk size smaller than every access size still bridges, since the
	// chunk itself closes the chain: {4,8} with chunk 2 spans {2,4,8}.
	config := DefaultConfig()
	config.AccessSizes = []uint{4, 8}
	config.ChunkSize = 2
	//
	if err := config.Validate(); err != nil {
		t.Errorf("valid configuration rejected: %s", err)
	}
	// A genuine gap below the smallest access size is still rejected.
	config.AccessSizes = []uint{8, 16}
	//
	check_ConfigRejected(t, config)
}

func Test_Config_05(t *testing.T) {
	config := DefaultConfig()
	config.ChunkSize = 6
	//
	check_ConfigRejected(t, config)
}

func Test_Config_06(t *testing.T) {
	config := DefaultConfig()
	config.AddressSpaceCount = 0
	//
	check_ConfigRejected(t, config)
}

func Test_Config_07(t *testing.T) {
	// Chunk size beyond the pointer range is unusable.
	config := DefaultConfig()
	config.PointerMaxBits = 2
	config.AccessSizes = []uint{1, 2, 4, 8}
	//
	check_ConfigRejected(t, config)
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_ConfigRejected(t *testing.T, config Config) {
	if err := config.Validate(); err == nil {
		t.Errorf("invalid configuration accepted: %+v", config)
	} else if !errors.Is(err, ErrConfig) {
		t.Errorf("unexpected error class: %s", err)
	}
}
