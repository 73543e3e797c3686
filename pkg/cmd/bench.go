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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consensys/go-zkmem/pkg/mem"
	"github.com/consensys/go-zkmem/pkg/util"
	"github.com/consensys/go-zkmem/pkg/zkmem"
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench [flags]",
	Short: "Run a synthetic access workload and report finalize statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			n    = getUint(cmd, "accesses")
			seed = getUint64(cmd, "seed")
		)
		//
		if err := runBench(n, seed, getFlag(cmd, "persistent")); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	//
	benchCmd.Flags().Uint("accesses", 100000, "number of accesses to perform")
	benchCmd.Flags().Uint64("seed", 0, "workload seed")
	benchCmd.Flags().Bool("persistent", false, "commit boundaries via Merkle roots")
}

func runBench(n uint, seed uint64, persistent bool) error {
	var (
		config = mem.DefaultConfig()
		stats  = util.NewPerfStats()
	)
	//
	controller, err := benchController(config, persistent)
	if err != nil {
		return err
	}
	//
	if err := benchWorkload(controller, config, n, seed); err != nil {
		return err
	}
	//
	finalized, err := controller.Finalize()
	if err != nil {
		return err
	}
	//
	stats.Log("bench workload")
	//
	fmt.Printf("%d accesses, %d chunks, %d adapter steps\n",
		controller.Log().Len(), finalized.Equipartition().Len(), finalized.Inventory().Len())
	fmt.Printf("trace height %d (%d cells)\n",
		controller.ExpectedTraceHeight(), controller.ExpectedTraceCells())
	//
	return nil
}

func benchController(config mem.Config, persistent bool) (*zkmem.Controller, error) {
	if !persistent {
		return zkmem.NewVolatile(config, nil, nil)
	}
	//
	controller, err := zkmem.NewPersistent(config, nil, nil)
	if err != nil {
		return nil, err
	}
	//
	return controller, controller.SetInitialMemory(nil)
}

// benchWorkload drives a mixed read/write workload of aligned accesses with
// randomly chosen sizes over a bounded working set.
func benchWorkload(controller *zkmem.Controller, config mem.Config, n uint, seed uint64) error {
	const workingSet = 1 << 16
	//
	random := util.NewRandom(seed)
	//
	for i := uint(0); i < n; i++ {
		var (
			space = config.AddressSpaceOffset + mem.Space(random.Uint32N(config.AddressSpaceCount))
			size  = config.AccessSizes[random.IntN(len(config.AccessSizes))]
			ptr   = random.Uint64N(workingSet/uint64(size)) * uint64(size)
		)
		//
		if random.IntN(2) == 0 {
			if _, _, err := controller.Read(space, ptr, size); err != nil {
				return err
			}
		} else {
			values := make(mem.Block, size)
			for j := range values {
				values[j] = mem.NewValue(random.Uint64())
			}
			//
			if _, _, err := controller.Write(space, ptr, values); err != nil {
				return err
			}
		}
	}
	//
	return nil
}
