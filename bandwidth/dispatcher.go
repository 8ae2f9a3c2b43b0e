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

// Package bandwidth fabricates plausible per-torrent upload speeds out of a
// shared global budget, re-allocated on a tick, weighted by each torrent's
// reported peer counts.
package bandwidth

import (
	"math/rand"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/utils/memsize"
)

// Listener is notified whenever the dispatcher recomputes per-torrent
// speeds. At most one listener is registered at a time.
type Listener interface {
	OnSpeedChange(speeds map[core.InfoHash]int64)
}

type torrentState struct {
	seeders, leechers int64
	speed             int64
	uploadedBytes     int64
}

// Dispatcher periodically recomputes each registered torrent's fabricated
// upload speed from a shared global budget, and accumulates uploaded-byte
// tallies between ticks.
type Dispatcher struct {
	config Config
	clk    clock.Clock
	log    *zap.SugaredLogger
	stats  tally.Scope

	mu       sync.RWMutex
	torrents map[core.InfoHash]*torrentState
	listener Listener

	budget int64

	tickCount int
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Dispatcher. Call Start to begin the tick loop.
func New(config Config, clk clock.Clock, log *zap.SugaredLogger, stats tally.Scope) *Dispatcher {
	config.applyDefaults()
	return &Dispatcher{
		config:   config,
		clk:      clk,
		log:      log,
		stats:    stats,
		torrents: make(map[core.InfoHash]*torrentState),
		budget:   config.MinUploadRate,
		stop:     make(chan struct{}),
	}
}

// SetListener installs the single listener notified on every speed
// recomputation. Must be called before Start.
func (d *Dispatcher) SetListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

// RegisterTorrent begins tracking h with zero peers until UpdatePeers is
// called. Re-registering an already-tracked torrent is a no-op.
func (d *Dispatcher) RegisterTorrent(h core.InfoHash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.torrents[h]; !ok {
		d.torrents[h] = &torrentState{}
	}
}

// UnregisterTorrent stops tracking h, recomputing every remaining torrent's
// speed against the reduced weight total. Its final upload tally is
// discarded.
func (d *Dispatcher) UnregisterTorrent(h core.InfoHash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.torrents, h)
	d.recomputeSpeedsLocked()
}

// UpdatePeers updates the peer counts used to weight h, then immediately
// recomputes every registered torrent's speed so Speed never reflects a
// stale weight. It is a no-op if h is not registered.
func (d *Dispatcher) UpdatePeers(h core.InfoHash, seeders, leechers int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.torrents[h]; ok {
		t.seeders = seeders
		t.leechers = leechers
		d.recomputeSpeedsLocked()
	}
}

// PeerCounts returns the seeder/leecher counts last reported via
// UpdatePeers, for diagnostics and tests.
func (d *Dispatcher) PeerCounts(h core.InfoHash) (seeders, leechers int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.torrents[h]; ok {
		return t.seeders, t.leechers
	}
	return 0, 0
}

// Speed returns h's current fabricated upload speed in bytes/sec.
func (d *Dispatcher) Speed(h core.InfoHash) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.torrents[h]; ok {
		return t.speed
	}
	return 0
}

// UploadedBytes returns h's accumulated fabricated upload total.
func (d *Dispatcher) UploadedBytes(h core.InfoHash) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if t, ok := d.torrents[h]; ok {
		return t.uploadedBytes
	}
	return 0
}

// TakeUploadedBytes returns and resets h's accumulated upload total, for a
// caller (the response handler chain) that wants to fold it into a
// per-announce delta exactly once.
func (d *Dispatcher) TakeUploadedBytes(h core.InfoHash) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.torrents[h]
	if !ok {
		return 0
	}
	n := t.uploadedBytes
	t.uploadedBytes = 0
	return n
}

// Start launches the tick loop in a background goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.tickLoop()
}

// Stop halts the tick loop and blocks until it has exited. Safe to call
// multiple times and from multiple goroutines.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
}

func (d *Dispatcher) tickLoop() {
	defer d.wg.Done()

	ticker := d.clk.Ticker(d.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.tick()
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) tick() {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("recovered from panic in bandwidth tick: %v", r)
		}
	}()

	d.mu.Lock()
	d.tickCount++
	if d.tickCount%d.config.BudgetRegenTicks == 0 {
		d.budget = d.randomBudget()
		d.log.Infof("regenerated global upload budget: %s/s", memsize.Format(uint64(d.budget)))
	}

	tickSeconds := d.config.TickInterval.Seconds()
	for _, t := range d.torrents {
		// Accumulate bytes uploaded since the last tick at the *previous*
		// speed, multiplying before dividing to avoid truncating small
		// per-tick fractions to zero.
		t.uploadedBytes += int64(float64(t.speed) * tickSeconds)
	}

	speeds := d.recomputeSpeedsLocked()

	listener := d.listener
	stats := d.stats
	d.mu.Unlock()

	if stats != nil {
		stats.Gauge("bandwidth.budget").Update(float64(d.currentBudget()))
	}
	if listener != nil {
		listener.OnSpeedChange(speeds)
	}
}

// recomputeSpeedsLocked re-derives every registered torrent's weight from
// its last-reported peer counts and reallocates the current budget across
// them. Callers must hold d.mu for writing. Used by the periodic tick and
// by UpdatePeers/UnregisterTorrent, so a torrent's speed never reflects a
// stale peer count for longer than the caller's own critical section.
func (d *Dispatcher) recomputeSpeedsLocked() map[core.InfoHash]int64 {
	var totalWeight int64
	weights := make(map[core.InfoHash]int64, len(d.torrents))
	for h, t := range d.torrents {
		w := Weight(t.seeders, t.leechers)
		weights[h] = w
		totalWeight += w
	}

	speeds := make(map[core.InfoHash]int64, len(d.torrents))
	for h, t := range d.torrents {
		if totalWeight > 0 {
			t.speed = d.budget * weights[h] / totalWeight
		} else {
			t.speed = 0
		}
		speeds[h] = t.speed
	}
	return speeds
}

func (d *Dispatcher) currentBudget() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.budget
}

func (d *Dispatcher) randomBudget() int64 {
	lo, hi := d.config.MinUploadRate, d.config.MaxUploadRate
	if hi <= lo {
		return lo
	}
	return lo + rand.Int63n(hi-lo+1)
}
