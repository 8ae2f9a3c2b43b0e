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
package hitandrun

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/core"
)

// record is one torrent's elapsed-seeding bookkeeping. totalSeeding never
// includes the time since seedingStart until StopSeeding folds it in
// (TotalSeedingTime and SaveStore add the in-progress session to their own
// result without storing it), so a restart (stop then start again) is additive: the total
// after two sessions equals the sum of each session's own duration.
type record struct {
	totalSeeding    time.Duration
	seedingStart    time.Time // zero if not currently seeding
	nonSeedingStart time.Time // zero if currently seeding, or never started
	warningSent     bool
}

// Tracker accumulates per-torrent seeding time and reviews pending torrents
// for hit-and-run violations on a timer.
type Tracker struct {
	config Config
	clk    clock.Clock
	log    *zap.SugaredLogger

	mu      sync.Mutex
	records map[core.InfoHash]*record

	onViolation func(infoHash core.InfoHash)

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Tracker. onViolation is invoked, from the review loop's own
// goroutine, the first time a torrent crosses MaxNonSeedingTime before
// reaching RequiredSeedingTime.
func New(config Config, clk clock.Clock, log *zap.SugaredLogger, onViolation func(infoHash core.InfoHash)) *Tracker {
	config.applyDefaults()
	return &Tracker{
		config:      config,
		clk:         clk,
		log:         log,
		records:     make(map[core.InfoHash]*record),
		onViolation: onViolation,
		stop:        make(chan struct{}),
	}
}

// Restore seeds a torrent's bookkeeping from a previously persisted
// totalSeeding, e.g. loaded from elapsed-times.json at startup. warningSent
// is deliberately not part of the persisted state (spec.md §6 only persists
// the total), so a restored torrent is always re-evaluated for a warning on
// its next review.
func (t *Tracker) Restore(h core.InfoHash, totalSeeding time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[h] = &record{totalSeeding: totalSeeding}
}

func (t *Tracker) get(h core.InfoHash) *record {
	r, ok := t.records[h]
	if !ok {
		r = &record{}
		t.records[h] = r
	}
	return r
}

// StartSeeding marks h as actively seeding as of now. Idempotent.
func (t *Tracker) StartSeeding(h core.InfoHash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.get(h)
	if !r.seedingStart.IsZero() {
		return
	}
	r.seedingStart = t.clk.Now()
	r.nonSeedingStart = time.Time{}
}

// StopSeeding folds the just-finished seeding session into the total and
// starts the non-seeding clock. Idempotent.
func (t *Tracker) StopSeeding(h core.InfoHash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.get(h)
	if r.seedingStart.IsZero() {
		return
	}
	r.totalSeeding += t.clk.Now().Sub(r.seedingStart)
	r.seedingStart = time.Time{}
	r.nonSeedingStart = t.clk.Now()
}

// Forget discards h's bookkeeping entirely, e.g. once it's archived.
func (t *Tracker) Forget(h core.InfoHash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, h)
}

// TotalSeedingTime returns h's cumulative seeding time, including the
// in-progress session if it is currently seeding.
func (t *Tracker) TotalSeedingTime(h core.InfoHash) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[h]
	if !ok {
		return 0
	}
	total := r.totalSeeding
	if !r.seedingStart.IsZero() {
		total += t.clk.Now().Sub(r.seedingStart)
	}
	return total
}

// Start launches the background review loop.
func (t *Tracker) Start() {
	t.wg.Add(1)
	go t.loop()
}

// Stop halts the review loop and blocks until it exits.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	t.wg.Wait()
}

func (t *Tracker) loop() {
	defer t.wg.Done()

	ticker := t.clk.Ticker(t.config.ReviewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.review()
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) review() {
	defer func() {
		if r := recover(); r != nil {
			t.log.Errorf("recovered from panic in hit-and-run review: %v", r)
		}
	}()

	now := t.clk.Now()

	t.mu.Lock()
	var violators []core.InfoHash
	for h, r := range t.records {
		if r.warningSent {
			continue
		}
		total := r.totalSeeding
		if !r.seedingStart.IsZero() {
			total += now.Sub(r.seedingStart)
		}
		if total >= t.config.RequiredSeedingTime {
			continue
		}
		if r.nonSeedingStart.IsZero() {
			continue
		}
		if now.Sub(r.nonSeedingStart) >= t.config.MaxNonSeedingTime {
			r.warningSent = true
			violators = append(violators, h)
		}
	}
	t.mu.Unlock()

	for _, h := range violators {
		t.onViolation(h)
	}
}
