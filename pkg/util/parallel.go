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

import "sync"

// BatchJob represents an atomic division of work which is composed of one or
// more jobs.  All jobs of one batch must be computed together; batches whose
// dependencies are already complete may run concurrently with each other.
type BatchJob interface {
	// Jobs returns the job identifiers covered by this batch.
	Jobs() []uint
	// Dependencies returns the jobs which must be complete before this batch
	// can run.
	Dependencies() []uint
	// Run this batch job.
	Run() error
}

// ParExec executes a set of batch jobs using goroutines, running each wave
// of ready batches concurrently.  The first error encountered (if any) is
// returned once every started batch has completed.
func ParExec[J BatchJob](worklist []J) error {
	todo := initToDoList(worklist)
	//
	for len(worklist) > 0 {
		var wave []J
		//
		wave, worklist = selectWave(todo, worklist)
		//
		if err := runWave(wave); err != nil {
			return err
		}
		// Mark all jobs in the wave as done
		for _, batch := range wave {
			for _, j := range batch.Jobs() {
				todo[j] = false
			}
		}
	}
	//
	return nil
}

// Initialise the set of jobs which remain to be completed.  Jobs not present
// in any batch are assumed to be already completed.
func initToDoList[J BatchJob](batches []J) []bool {
	n := uint(0)
	//
	for _, b := range batches {
		for _, j := range b.Jobs() {
			n = max(n, j+1)
		}
	}
	//
	todo := make([]bool, n)
	//
	for _, b := range batches {
		for _, j := range b.Jobs() {
			todo[j] = true
		}
	}
	//
	return todo
}

// Select every ready batch from the worklist.  A batch is ready if all of
// its dependencies are completed.  If no batch is ready then the dependency
// graph is cyclic, which is an error.
func selectWave[J BatchJob](todo []bool, worklist []J) ([]J, []J) {
	var ready, waiting []J
	//
	for _, b := range worklist {
		if readyJob(todo, b) {
			ready = append(ready, b)
		} else {
			waiting = append(waiting, b)
		}
	}
	//
	if len(ready) == 0 {
		panic("no job is ready to run")
	}
	//
	return ready, waiting
}

// Run all batches of one wave concurrently, retaining the first error.
func runWave[J BatchJob](wave []J) error {
	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		first error
	)
	//
	for _, batch := range wave {
		wg.Add(1)
		//
		go func(b J) {
			defer wg.Done()
			//
			if err := b.Run(); err != nil {
				mutex.Lock()
				if first == nil {
					first = err
				}
				mutex.Unlock()
			}
		}(batch)
	}
	//
	wg.Wait()
	//
	return first
}

// Check whether all dependencies of a given batch are complete.
func readyJob[J BatchJob](todo []bool, batch J) bool {
	for _, dep := range batch.Dependencies() {
		if dep < uint(len(todo)) && todo[dep] {
			return false
		}
	}
	//
	return true
}
