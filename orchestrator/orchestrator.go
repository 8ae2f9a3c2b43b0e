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
package orchestrator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/seedkeeper/seedkeeper/announcer"
	"github.com/seedkeeper/seedkeeper/bandwidth"
	"github.com/seedkeeper/seedkeeper/core"
	"github.com/seedkeeper/seedkeeper/delayqueue"
	"github.com/seedkeeper/seedkeeper/hitandrun"
	"github.com/seedkeeper/seedkeeper/torrentfile"
	"github.com/seedkeeper/seedkeeper/trackerclient"
)

// Orchestrator owns the active set of seeding torrents: which torrents are
// currently being announced, and the scheduling loop that pulls due
// announces off the delay queue and submits them to the executor.
//
// It satisfies handlerchain.Registry (Announcer, Length) by structural
// typing without importing handlerchain, and torrentfile.Listener
// (OnTorrentFileAdded, OnTorrentFileRemoved), so the handler chain and the
// file provider each hold only a narrow capability onto it.
type Orchestrator struct {
	config          Config
	announcerConfig announcer.Config
	peerID          core.PeerID
	clk             clock.Clock
	log             *zap.SugaredLogger

	provider *torrentfile.Provider
	queue    *delayqueue.Queue
	executor *trackerclient.Executor
	bw       *bandwidth.Dispatcher
	hitrun   *hitandrun.Tracker
	events   WillAnnouncer

	mu          sync.RWMutex
	active      map[core.InfoHash]*announcer.Announcer
	activeOrder []core.InfoHash // least-recently-submitted first
	stopped     bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates an Orchestrator. It does not start anything; call Start once
// the torrent file provider has been scanned.
func New(
	config Config,
	announcerConfig announcer.Config,
	peerID core.PeerID,
	provider *torrentfile.Provider,
	queue *delayqueue.Queue,
	executor *trackerclient.Executor,
	bw *bandwidth.Dispatcher,
	hitrun *hitandrun.Tracker,
	events WillAnnouncer,
	clk clock.Clock,
	log *zap.SugaredLogger,
) *Orchestrator {
	config.applyDefaults()
	return &Orchestrator{
		config:          config,
		announcerConfig: announcerConfig,
		peerID:          peerID,
		clk:             clk,
		log:             log,
		provider:        provider,
		queue:           queue,
		executor:        executor,
		bw:              bw,
		hitrun:          hitrun,
		events:          events,
		active:          make(map[core.InfoHash]*announcer.Announcer),
		stop:            make(chan struct{}),
	}
}

// SetExecutor assigns the executor used to submit announces. Exists
// because the executor's handler chain itself needs a Registry view onto
// this Orchestrator, creating a construction cycle: New is called with a
// nil executor, and SetExecutor is called once the chain (and therefore
// the executor) has been built around it. Must be called before Start.
func (o *Orchestrator) SetExecutor(executor *trackerclient.Executor) {
	o.executor = executor
}

// Announcer looks up the Announcer currently tracking infoHash, if it is in
// the active set.
func (o *Orchestrator) Announcer(infoHash core.InfoHash) (*announcer.Announcer, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.active[infoHash]
	return a, ok
}

// Length returns the declared content length of infoHash, if known.
func (o *Orchestrator) Length(infoHash core.InfoHash) (int64, bool) {
	mi, ok := o.provider.Get(infoHash)
	if !ok {
		return 0, false
	}
	return mi.Length(), true
}

// ActiveCount returns the number of torrents currently in the active set.
func (o *Orchestrator) ActiveCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.active)
}

// Start selects the initial active set, registers as the file provider's
// listener, and spawns the scheduling loop.
func (o *Orchestrator) Start() {
	o.mu.Lock()
	all := o.provider.List()
	if o.config.SimultaneousSeed == -1 {
		for _, mi := range all {
			o.activateLocked(mi, 0)
		}
	} else {
		n := o.config.SimultaneousSeed
		if n > len(all) {
			n = len(all)
		}
		for _, i := range rand.Perm(len(all))[:n] {
			o.activateLocked(all[i], 0)
		}
	}
	o.mu.Unlock()

	o.provider.SetListener(o)

	o.wg.Add(1)
	go o.schedulingLoop()
}

// Stop runs the numbered shutdown sequence: stop accepting new work, detach
// from the file provider, join the scheduling loop, drain the delay queue
// (converting any non-started entry into a stopped announce), and block
// until every submitted task has been dispatched.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()

	o.provider.SetListener(nil)

	close(o.stop)
	o.wg.Wait()

	for _, e := range o.queue.DrainAll() {
		if e.Event == core.Started {
			// The tracker never learned of this torrent; nothing to undo.
			continue
		}
		o.submitStop(e.InfoHash)
	}

	o.executor.AwaitRunningTasks()
}

func (o *Orchestrator) submitStop(infoHash core.InfoHash) {
	o.mu.RLock()
	a, ok := o.active[infoHash]
	o.mu.RUnlock()
	if !ok {
		return
	}
	url := a.CurrentTrackerURL()
	if url == "" {
		return
	}
	uploaded, downloaded, left := a.Snapshot()
	o.events.WillAnnounce(infoHash, core.Stopped)
	o.executor.Submit(trackerclient.Task{
		InfoHash:   infoHash,
		PeerID:     o.peerID,
		TrackerURL: url,
		Event:      core.Stopped,
		Uploaded:   uploaded,
		Downloaded: downloaded,
		Left:       left,
	})
}

// activateLocked adds mi's torrent to the active set and enqueues its
// initial announce. Callers must hold o.mu. No-op if already active.
func (o *Orchestrator) activateLocked(mi *core.MetaInfo, delay time.Duration) {
	h := mi.InfoHash()
	if _, exists := o.active[h]; exists {
		return
	}
	a := announcer.New(h, mi.Tiers(), 0, o.announcerConfig)
	o.active[h] = a
	o.activeOrder = append(o.activeOrder, h)
	o.bw.RegisterTorrent(h)
	o.hitrun.StartSeeding(h)
	o.queue.AddOrReplace(h, core.Started, delay)
}

func removeFromOrder(order []core.InfoHash, h core.InfoHash) []core.InfoHash {
	for i, x := range order {
		if x == h {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
