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
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consensys/go-zkmem/pkg/mem"
)

// Get an expected flag, or exit if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// Get an expected uint flag, or exit if an error arises.
func getUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// Get an expected uint64 flag, or exit if an error arises.
func getUint64(cmd *cobra.Command, flag string) uint64 {
	r, err := cmd.Flags().GetUint64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// ===================================================================
// Trace files
// ===================================================================

// jsonTrace is the on-disk form of a recorded execution: the memory
// configuration, the initial image and the access sequence.
type jsonTrace struct {
	Config   jsonConfig   `json:"config"`
	Initial  []jsonCell   `json:"initial"`
	Accesses []jsonAccess `json:"accesses"`
}

type jsonConfig struct {
	AddressSpaceOffset uint32 `json:"address_space_offset"`
	AddressSpaceCount  uint32 `json:"address_space_count"`
	PointerMaxBits     uint   `json:"pointer_max_bits"`
	TimestampMaxBits   uint   `json:"timestamp_max_bits"`
	ChunkSize          uint   `json:"chunk_size"`
	AccessSizes        []uint `json:"access_sizes"`
}

type jsonCell struct {
	Space   uint32 `json:"space"`
	Pointer uint64 `json:"pointer"`
	Value   string `json:"value"`
}

type jsonAccess struct {
	Op      string   `json:"op"`
	Space   uint32   `json:"space"`
	Pointer uint64   `json:"pointer"`
	Size    uint     `json:"size,omitempty"`
	Values  []string `json:"values,omitempty"`
}

// Parse a trace file, or exit if this fails.
func readTraceFile(filename string) *jsonTrace {
	var trace jsonTrace
	//
	bytes, err := os.ReadFile(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	if err := json.Unmarshal(bytes, &trace); err != nil {
		fmt.Printf("%s: %s\n", filename, err)
		os.Exit(2)
	}
	//
	return &trace
}

func (p *jsonConfig) toConfig() mem.Config {
	return mem.Config{
		AddressSpaceOffset: p.AddressSpaceOffset,
		AddressSpaceCount:  p.AddressSpaceCount,
		PointerMaxBits:     p.PointerMaxBits,
		TimestampMaxBits:   p.TimestampMaxBits,
		ChunkSize:          p.ChunkSize,
		AccessSizes:        p.AccessSizes,
	}
}

func (p *jsonTrace) initialImage() (*mem.Image, error) {
	image := mem.NewImage(0)
	//
	for _, cell := range p.Initial {
		value, err := parseValue(cell.Value)
		if err != nil {
			return nil, err
		}
		//
		image.Set(cell.Space, cell.Pointer, value)
	}
	//
	return image, nil
}

func parseValue(text string) (mem.Value, error) {
	var value mem.Value
	//
	if _, err := value.SetString(text); err != nil {
		return value, fmt.Errorf("invalid cell value %q: %w", text, err)
	}
	//
	return value, nil
}

func parseValues(texts []string) (mem.Block, error) {
	block := make(mem.Block, len(texts))
	//
	for i, text := range texts {
		var err error
		//
		if block[i], err = parseValue(text); err != nil {
			return nil, err
		}
	}
	//
	return block, nil
}
