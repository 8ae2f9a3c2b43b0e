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

// Package delayqueue provides a time-ordered queue of pending announces, one
// slot per torrent. Unlike a plain FIFO, entries become visible only once
// their delay has elapsed, and adding a new entry for a torrent that already
// has one pending replaces it rather than queuing both.
package delayqueue

import (
	"context"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"

	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/utils/heap"
)

// Entry is a single pending announce, ready to be picked up once ReadyAt has
// elapsed.
type Entry struct {
	InfoHash core.InfoHash
	Event    core.AnnounceEvent
	ReadyAt  time.Time
}

// slot is the queue's internal bookkeeping for one torrent. seq disambiguates
// stale heap items left behind by addOrReplace: only the item whose seq
// matches the slot's current seq is live.
type slot struct {
	entry Entry
	seq   uint64
}

// Queue is a min-heap of pending announces ordered by ReadyAt, keyed by
// InfoHash so that at most one entry is outstanding per torrent at a time.
// It satisfies invariant Q1: addOrReplace is atomic with respect to
// concurrent getAvailable/drainAll calls, and never produces duplicate or
// double entries for the same torrent.
type Queue struct {
	clk clock.Clock

	mu     sync.Mutex
	slots  map[core.InfoHash]*slot
	pq     *heap.PriorityQueue
	nextSeq uint64

	wake chan struct{}
}

// New creates an empty Queue using clk as its time source.
func New(clk clock.Clock) *Queue {
	return &Queue{
		clk:   clk,
		slots: make(map[core.InfoHash]*slot),
		pq:    heap.NewPriorityQueue(),
		wake:  make(chan struct{}, 1),
	}
}

// AddOrReplace schedules event for infoHash to become available after delay
// elapses. If infoHash already has a pending entry, it is replaced: the old
// entry will never be returned by GetAvailable or DrainAll.
func (q *Queue) AddOrReplace(infoHash core.InfoHash, event core.AnnounceEvent, delay time.Duration) {
	q.mu.Lock()
	q.nextSeq++
	seq := q.nextSeq
	readyAt := q.clk.Now().Add(delay)
	s := &slot{
		entry: Entry{InfoHash: infoHash, Event: event, ReadyAt: readyAt},
		seq:   seq,
	}
	q.slots[infoHash] = s
	q.pq.Push(&heap.Item{Value: item{infoHash: infoHash, seq: seq}, Priority: readyAt.UnixNano()})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// item is the payload stored in the underlying heap. The live entry itself
// lives in Queue.slots; item only carries enough to look it up and check
// staleness.
type item struct {
	infoHash core.InfoHash
	seq      uint64
}

// popReady pops and returns every entry whose ReadyAt has elapsed, discarding
// any heap items that have been superseded by a later AddOrReplace. It must
// be called with q.mu held. It also returns the time until the next entry
// becomes ready, or false if the queue is empty after popping.
func (q *Queue) popReady(now time.Time) ([]Entry, time.Duration, bool) {
	var ready []Entry
	for {
		it, err := q.pq.Pop()
		if err != nil {
			return ready, 0, false
		}
		i := it.Value.(item)
		s, ok := q.slots[i.infoHash]
		if !ok || s.seq != i.seq {
			// Stale: either drained already or superseded by a replace.
			continue
		}
		if s.entry.ReadyAt.After(now) {
			wait := s.entry.ReadyAt.Sub(now)
			q.pq.Push(it)
			return ready, wait, true
		}
		delete(q.slots, i.infoHash)
		ready = append(ready, s.entry)
	}
}

// GetAvailable blocks until at least one entry's ReadyAt has elapsed, then
// returns and removes all such entries in ReadyAt order. It returns early
// with whatever is already available (possibly none) if ctx is canceled.
func (q *Queue) GetAvailable(ctx context.Context) []Entry {
	for {
		q.mu.Lock()
		now := q.clk.Now()
		ready, wait, hasMore := q.popReady(now)
		q.mu.Unlock()

		if len(ready) > 0 {
			return ready
		}

		var timer <-chan time.Time
		if hasMore {
			timer = q.clk.After(wait)
		}

		select {
		case <-q.wake:
		case <-timer:
		case <-ctx.Done():
			return nil
		}
	}
}

// DrainAll returns every pending entry, regardless of readiness, and empties
// the queue. It never blocks.
func (q *Queue) DrainAll() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, 0, len(q.slots))
	for _, s := range q.slots {
		entries = append(entries, s.entry)
	}
	q.slots = make(map[core.InfoHash]*slot)
	q.pq = heap.NewPriorityQueue()
	return entries
}

// Len returns the number of torrents with a pending entry.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}
