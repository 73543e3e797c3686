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
package merkle

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-377/fr/mimc"

	"github.com/consensys/go-zkmem/pkg/mem"
)

// Digest is the output of one hashing step.
type Digest [32]byte

// Hasher turns chunks into digests and folds digests pairwise.  In the full
// system this is the circuit-friendly hash the proof layer constrains; it is
// treated here as an external collaborator specified by this contract.
type Hasher interface {
	// Leaf hashes one fixed-size chunk of cells.
	Leaf(block mem.Block) Digest
	// Compress folds two digests into one.
	Compress(left Digest, right Digest) Digest
}

// MiMCHasher is the default Hasher, built on the MiMC permutation over the
// bls12-377 scalar field.  Digests are canonical field-element encodings,
// hence always valid inputs to further hashing.
type MiMCHasher struct{}

// NewMiMCHasher constructs the default hasher.
func NewMiMCHasher() *MiMCHasher {
	return &MiMCHasher{}
}

// Leaf implementation for the Hasher interface.
func (p *MiMCHasher) Leaf(block mem.Block) Digest {
	hasher := mimc.NewMiMC()
	//
	for i := range block {
		bytes := block[i].Bytes()
		// Canonical field encodings never error
		_, _ = hasher.Write(bytes[:])
	}
	//
	return digestOf(hasher.Sum(nil))
}

// Compress implementation for the Hasher interface.
func (p *MiMCHasher) Compress(left Digest, right Digest) Digest {
	hasher := mimc.NewMiMC()
	//
	_, _ = hasher.Write(left[:])
	_, _ = hasher.Write(right[:])
	//
	return digestOf(hasher.Sum(nil))
}

func digestOf(bytes []byte) Digest {
	var digest Digest
	//
	copy(digest[:], bytes)
	//
	return digest
}
