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

// Package backoff implements exponential backoff with a bounded retry
// window, used by the hit-and-run store to retry a failed write of
// elapsed-times.json.
package backoff

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config configures a Backoff.
type Config struct {
	Min          time.Duration
	Max          time.Duration
	Factor       float64
	NoJitter     bool
	RetryTimeout time.Duration
}

// Backoff generates successive delays per Config.
type Backoff struct {
	config Config
}

// New creates a Backoff from config.
func New(config Config) *Backoff {
	return &Backoff{config: config}
}

// delay returns the wait before the (n+1)th attempt, given n prior attempts
// have already completed.
func (b *Backoff) delay(n int) time.Duration {
	d := float64(b.config.Min) * math.Pow(b.config.Factor, float64(n-1))
	if b.config.Max > 0 && d > float64(b.config.Max) {
		d = float64(b.config.Max)
	}
	if !b.config.NoJitter {
		d = d * (0.5 + rand.Float64())
	}
	return time.Duration(d)
}

// Attempts starts a new sequence of retry attempts.
func (b *Backoff) Attempts() *Attempts {
	return &Attempts{b: b}
}

// Attempts iterates over a bounded sequence of retry delays.
type Attempts struct {
	b   *Backoff
	n   int
	t0  time.Time
	err error
}

// WaitForNext blocks until the next attempt should be made, returning false
// once RetryTimeout has elapsed. The first attempt always executes
// immediately regardless of RetryTimeout.
func (a *Attempts) WaitForNext() bool {
	if a.n == 0 {
		a.n++
		a.t0 = time.Now()
		return true
	}
	d := a.b.delay(a.n)
	if a.b.config.RetryTimeout > 0 && time.Since(a.t0)+d > a.b.config.RetryTimeout {
		a.err = fmt.Errorf("backoff: retry timeout of %s exceeded after %d attempts", a.b.config.RetryTimeout, a.n)
		return false
	}
	time.Sleep(d)
	a.n++
	return true
}

// Err returns the error explaining why WaitForNext returned false. Nil if
// WaitForNext has not yet returned false.
func (a *Attempts) Err() error {
	return a.err
}
