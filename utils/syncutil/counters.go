// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syncutil provides small thread-safe primitives shared across the
// scheduling loops.
package syncutil

import "sync"

// Counters is a fixed-size slice of int counters guarded by a single mutex,
// used by the tracker-client executor to count how many tasks each worker
// slot has processed.
type Counters struct {
	mu     sync.Mutex
	counts []int
}

// NewCounters creates n zeroed Counters.
func NewCounters(n int) *Counters {
	return &Counters{counts: make([]int, n)}
}

// Len returns the number of counters.
func (c *Counters) Len() int {
	return len(c.counts)
}

// Increment increments the counter at index i.
func (c *Counters) Increment(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[i]++
}

// Decrement decrements the counter at index i.
func (c *Counters) Decrement(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[i]--
}

// Set sets the counter at index i to v.
func (c *Counters) Set(i, v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[i] = v
}

// Get returns the current value of the counter at index i.
func (c *Counters) Get(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[i]
}
