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

// Package announcer models the per-torrent announce state machine: which
// event to send next, which tracker URL to try, and how many times in a row
// every tracker in every tier has failed.
package announcer

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/seedkeeper/seedkeeper/core"
)

// Announcer tracks one torrent's progress through the announce lifecycle.
// It is not safe to share a single Announcer across torrents, but its own
// methods are safe for concurrent use.
type Announcer struct {
	config Config

	mu          sync.Mutex
	infoHash    core.InfoHash
	tiers       *tiers
	state       State
	stopPending bool

	consecutiveFailures int

	interval atomic.Duration

	uploaded   atomic.Int64
	downloaded atomic.Int64
	left       atomic.Int64
}

// New creates an Announcer for infoHash, seeded with the torrent's tracker
// tiers (tierList).
// left is the number of bytes remaining to download, which for a seed is
// always 0.
func New(infoHash core.InfoHash, tierList [][]string, left int64, config Config) *Announcer {
	config.applyDefaults()
	a := &Announcer{
		config:   config,
		infoHash: infoHash,
		tiers:    newTiers(tierList),
		state:    StateNew,
	}
	a.interval.Store(config.DefaultInterval)
	a.left.Store(left)
	return a
}

// InfoHash returns the torrent this Announcer is tracking.
func (a *Announcer) InfoHash() core.InfoHash {
	return a.infoHash
}

// State returns the Announcer's current lifecycle phase.
func (a *Announcer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// RequestStop arranges for the next announce to carry the "stopped" event.
// It is idempotent.
func (a *Announcer) RequestStop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopPending = true
}

// NextEvent returns the event that should be sent on the next announce.
func (a *Announcer) NextEvent() core.AnnounceEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.stopPending && a.state != StateStopped:
		return core.Stopped
	case a.state == StateNew:
		return core.Started
	default:
		return core.None
	}
}

// CurrentTrackerURL returns the tracker URL that should be used for the next
// attempt. Returns "" if there are no trackers at all.
func (a *Announcer) CurrentTrackerURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tiers.current()
}

// AdvanceTracker moves to the next tracker URL after a failed attempt
// against the current one. It reports fullPass == true once every tracker
// in every tier has been tried since the last success, which the caller
// should treat as the completion of a single announce attempt.
func (a *Announcer) AdvanceTracker() (fullPass bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tiers.advance()
}

// Interval returns the currently active announce interval.
func (a *Announcer) Interval() time.Duration {
	return a.interval.Load()
}

// Snapshot reports the Announcer's fabricated transfer counters.
func (a *Announcer) Snapshot() (uploaded, downloaded, left int64) {
	return a.uploaded.Load(), a.downloaded.Load(), a.left.Load()
}

// AddUploaded accumulates n fabricated uploaded bytes.
func (a *Announcer) AddUploaded(n int64) {
	if n > 0 {
		a.uploaded.Add(n)
	}
}

// RecordSuccess applies the effects of a successful announce for event: it
// promotes the current tracker, resets the consecutive-failure counter,
// clamps and stores the next interval, and advances the state machine.
func (a *Announcer) RecordSuccess(event core.AnnounceEvent, resp *core.AnnounceResponse) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tiers.promote()
	a.consecutiveFailures = 0

	if resp != nil {
		a.interval.Store(a.clampInterval(resp))
	}

	switch event {
	case core.Started:
		a.state = StateStarted
	case core.Stopped:
		a.state = StateStopped
		a.stopPending = false
	case core.None, core.Completed:
		a.state = StateRegular
	}
}

func (a *Announcer) clampInterval(resp *core.AnnounceResponse) time.Duration {
	iv := time.Duration(resp.Interval) * time.Second
	if iv <= 0 {
		iv = a.config.DefaultInterval
	}
	if iv < a.config.MinInterval {
		iv = a.config.MinInterval
	}
	if iv > a.config.MaxInterval {
		iv = a.config.MaxInterval
	}
	return iv
}

// RecordFailure applies the effects of one failed announce attempt (i.e.
// every tracker in every tier was tried and none succeeded). It returns the
// new consecutive-failure count and the backoff delay the caller should use
// before retrying.
func (a *Announcer) RecordFailure() (consecutiveFailures int, backoff time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.consecutiveFailures++

	delay := a.interval.Load()
	if delay > a.config.MaxBackoffInterval {
		delay = a.config.MaxBackoffInterval
	}
	return a.consecutiveFailures, delay
}

// TooManyFailures reports whether the consecutive-failure count has reached
// the configured threshold.
func (a *Announcer) TooManyFailures() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.consecutiveFailures >= a.config.MaxConsecutiveFailures
}

// Tiers returns a defensive copy of the current tier ordering, for
// diagnostics and tests.
func (a *Announcer) Tiers() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tiers.snapshot()
}
