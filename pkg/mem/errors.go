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

import "errors"

// Every violation below indicates either a bug in the caller or an invalid
// access pattern.  Errors are fatal to the triggering call; the engine
// performs no internal retry and no partial-failure recovery.
var (
	// ErrInvalidAddressSpace indicates a write to the immediate space, or an
	// access to a space outside the configured universe.
	ErrInvalidAddressSpace = errors.New("invalid address space")
	// ErrOutOfBounds indicates pointer+size exceeds 2^PointerMaxBits.
	ErrOutOfBounds = errors.New("pointer out-of-bounds")
	// ErrUnsupportedAccessSize indicates an access size which is not a
	// supported power of two, or which exceeds the maximum adapter size.
	ErrUnsupportedAccessSize = errors.New("unsupported access size")
	// ErrMisaligned indicates a pointer which is not a multiple of the access
	// size.  Callers must decompose unaligned accesses themselves.
	ErrMisaligned = errors.New("misaligned pointer")
	// ErrAlreadyFinalized indicates a mutating access issued after finalize.
	ErrAlreadyFinalized = errors.New("memory already finalized")
	// ErrConfig indicates an unusable configuration, such as an access-size
	// set which cannot bridge every used size to the chunk size.
	ErrConfig = errors.New("invalid memory configuration")
	// ErrTimestampOverflow indicates the global timestamp exceeded its
	// configured bit width.
	ErrTimestampOverflow = errors.New("timestamp overflow")
)
