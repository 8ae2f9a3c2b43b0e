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
package timeutil

import (
	"sync"
	"time"
)

// Timer wraps time.Timer with idempotent Start/Cancel semantics: calling
// Start or Cancel when the timer is already in that state is a no-op that
// reports false, rather than panicking or double-firing.
type Timer struct {
	d time.Duration

	mu      sync.Mutex
	running bool
	t       *time.Timer
	c       chan time.Time

	C <-chan time.Time
}

// NewTimer creates a Timer which, once Started, fires after d.
func NewTimer(d time.Duration) *Timer {
	c := make(chan time.Time, 1)
	return &Timer{
		d: d,
		c: c,
		C: c,
	}
}

// Start arms the timer. Returns false if already running.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return false
	}
	t.running = true
	t.t = time.AfterFunc(t.d, func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		select {
		case t.c <- time.Now():
		default:
		}
	})
	return true
}

// Cancel disarms the timer. Returns false if not running (either never
// started, or already fired).
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return false
	}
	t.running = false
	return t.t.Stop()
}
