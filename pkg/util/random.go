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
package util

import "math/rand/v2"

// NewRandom constructs a deterministic random source from a given seed, for
// reproducible workloads and tests.
func NewRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GenerateRandomUints generates n random values in the range 0..m using a
// given source.
func GenerateRandomUints(random *rand.Rand, n uint, m uint64) []uint64 {
	items := make([]uint64, n)
	//
	for i := range items {
		items[i] = random.Uint64N(m)
	}
	//
	return items
}
