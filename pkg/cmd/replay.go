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

	"github.com/consensys/go-zkmem/pkg/zkmem"
)

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay [flags] trace_file",
	Short: "Replay a recorded access trace and print the finalized memory state.",
	Long: `Replay a recorded access trace (JSON) through a memory controller,
finalize it and print the resulting equipartition along with adapter step
counts.  With --persistent, the initial and final Merkle roots are printed
as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		persistent := getFlag(cmd, "persistent")
		trace := readTraceFile(args[0])
		//
		if err := runTrace(trace, persistent); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	//
	replayCmd.Flags().Bool("persistent", false, "commit boundaries via Merkle roots")
}

func runTrace(trace *jsonTrace, persistent bool) error {
	controller, err := buildController(trace, persistent)
	if err != nil {
		return err
	}
	//
	for _, access := range trace.Accesses {
		if err := runAccess(controller, access); err != nil {
			return err
		}
	}
	//
	finalized, err := controller.Finalize()
	if err != nil {
		return err
	}
	//
	printFinalized(controller, finalized)
	//
	return nil
}

func buildController(trace *jsonTrace, persistent bool) (*zkmem.Controller, error) {
	image, err := trace.initialImage()
	if err != nil {
		return nil, err
	}
	//
	if !persistent {
		return zkmem.NewVolatile(trace.Config.toConfig(), nil, image)
	}
	//
	controller, err := zkmem.NewPersistent(trace.Config.toConfig(), nil, nil)
	if err != nil {
		return nil, err
	}
	//
	return controller, controller.SetInitialMemory(image)
}

func runAccess(controller *zkmem.Controller, access jsonAccess) error {
	switch access.Op {
	case "read":
		_, _, err := controller.Read(access.Space, access.Pointer, access.Size)
		return err
	case "write":
		values, err := parseValues(access.Values)
		if err != nil {
			return err
		}
		//
		_, _, err = controller.Write(access.Space, access.Pointer, values)
		//
		return err
	}
	//
	return fmt.Errorf("unknown access op %q", access.Op)
}

func printFinalized(controller *zkmem.Controller, finalized *zkmem.Finalized) {
	partition := finalized.Equipartition()
	//
	for _, chunk := range partition.Chunks() {
		fmt.Printf("%d:%d @%d =", chunk.Space, chunk.Pointer(partition.ChunkSize()), chunk.Timestamp)
		//
		for i := range chunk.Values {
			fmt.Printf(" %s", chunk.Values[i].String())
		}
		//
		fmt.Println()
	}
	//
	fmt.Printf("%d chunks, %d adapter steps, trace height %d (%d cells)\n",
		partition.Len(), finalized.Inventory().Len(),
		controller.ExpectedTraceHeight(), controller.ExpectedTraceCells())
	//
	if root, ok := finalized.InitialRoot(); ok {
		fmt.Printf("initial root: %x\n", root)
	}
	//
	if root, ok := finalized.FinalRoot(); ok {
		fmt.Printf("final root:   %x\n", root)
	}
}
